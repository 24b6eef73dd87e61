package geo

import (
	"os"
	"testing"
)

func TestScorePerfectGuess(t *testing.T) {
	target := LatLng{Lat: 48.8566, Lng: 2.3522}
	score := Score(target, target)
	if score != MaxScore {
		t.Fatalf("expected perfect guess to score %d, got %d", MaxScore, score)
	}
}

func TestScoreMonotonicallyDecreasing(t *testing.T) {
	target := LatLng{Lat: 0, Lng: 0}
	near := LatLng{Lat: 0.1, Lng: 0.1}
	far := LatLng{Lat: 45, Lng: 45}

	scoreNear := Score(near, target)
	scoreFar := Score(far, target)

	if scoreNear <= scoreFar {
		t.Fatalf("expected nearer guess to score higher: near=%d far=%d", scoreNear, scoreFar)
	}
	if scoreFar > MaxScore || scoreNear > MaxScore {
		t.Fatalf("score exceeded MaxScore: near=%d far=%d", scoreNear, scoreFar)
	}
}

func TestScoreNeverNegative(t *testing.T) {
	target := LatLng{Lat: 0, Lng: 0}
	antipode := LatLng{Lat: 0, Lng: 180}
	score := Score(antipode, target)
	if score > MaxScore {
		t.Fatalf("score out of bounds: %d", score)
	}
}

func TestLocationsRandomReturnsKnownPoint(t *testing.T) {
	points := []LatLng{{Lat: 1, Lng: 1}, {Lat: 2, Lng: 2}, {Lat: 3, Lng: 3}}
	locs := NewLocations(points)

	for i := 0; i < 20; i++ {
		got := locs.Random()
		found := false
		for _, p := range points {
			if p == got {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("Random() returned a point not in the list: %+v", got)
		}
	}
}

func TestLoadLocationsRejectsEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/empty.ndjson"
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadLocations(path); err == nil {
		t.Fatal("expected error loading an empty locations file")
	}
}

func TestLoadLocationsParsesNDJSON(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/locations.ndjson"
	content := "{\"lat\": 1.5, \"lng\": 2.5}\n\n{\"lat\": -3, \"lng\": 10}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	locs, err := LoadLocations(path)
	if err != nil {
		t.Fatal(err)
	}
	if locs.Len() != 2 {
		t.Fatalf("expected 2 locations, got %d", locs.Len())
	}
}
