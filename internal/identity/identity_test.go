package identity

import "testing"

func TestGeneratedIDIsValid(t *testing.T) {
	id, err := GenerateID()
	if err != nil {
		t.Fatal(err)
	}
	if !PublicIDIsValid(id) {
		t.Fatalf("generated id %q failed validation", id)
	}
}

func TestDummyIDWithWrongLenIsNotValid(t *testing.T) {
	if PublicIDIsValid("ho ho ho!") {
		t.Fatal("expected short id to be invalid")
	}
}

func TestDummyIDWithRightLenIsNotValid(t *testing.T) {
	if PublicIDIsValid("here11chars") {
		t.Fatal("expected id without fixed separators to be invalid")
	}
}

func TestSignerRoundTrip(t *testing.T) {
	signer, err := NewSigner([]byte("test-signing-key"))
	if err != nil {
		t.Fatal(err)
	}

	publicID, err := GenerateID()
	if err != nil {
		t.Fatal(err)
	}
	privateID, err := GenerateID()
	if err != nil {
		t.Fatal(err)
	}

	token, err := signer.Issue(publicID, privateID)
	if err != nil {
		t.Fatal(err)
	}

	claims, err := signer.Decode(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.PublicID != publicID || claims.PrivateID != privateID {
		t.Fatalf("round trip mismatch: got %+v", claims)
	}
}

func TestDecodeFailsClosedOnTamperedToken(t *testing.T) {
	signer, err := NewSigner([]byte("key-one"))
	if err != nil {
		t.Fatal(err)
	}
	other, err := NewSigner([]byte("key-two"))
	if err != nil {
		t.Fatal(err)
	}

	token, err := signer.Issue("aaaeaaaRaaa", "bbbeBBBRbbb")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := other.Decode(token); err != ErrInvalidPasscode {
		t.Fatalf("expected ErrInvalidPasscode, got %v", err)
	}
	if _, err := signer.Decode("not-a-token"); err != ErrInvalidPasscode {
		t.Fatalf("expected ErrInvalidPasscode for malformed token, got %v", err)
	}
}
