package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eratosthenes/geoguess-server/internal/engine"
	"github.com/eratosthenes/geoguess-server/internal/geo"
	"github.com/eratosthenes/geoguess-server/internal/identity"
	"github.com/eratosthenes/geoguess-server/internal/rooms"
	"github.com/eratosthenes/geoguess-server/internal/sockets"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type noopUpgrader struct{}

func (noopUpgrader) Serve(c *gin.Context, claims identity.Claims) {
	c.AbortWithStatus(http.StatusNotImplemented)
}

func newTestServer(t *testing.T) (*Server, *identity.Signer) {
	t.Helper()
	signer, err := identity.NewSigner([]byte("test-signing-key"))
	require.NoError(t, err)
	locations := geo.NewLocations([]geo.LatLng{{Lat: 1, Lng: 1}})
	eng := engine.New(rooms.NewStore(), sockets.NewRegistry(), locations)
	s := NewServer(eng, signer, noopUpgrader{}, nil, nil, Config{AllowedOrigins: []string{"*"}})
	return s, signer
}

func issuePasscode(t *testing.T, signer *identity.Signer) (string, string) {
	t.Helper()
	publicID, err := identity.GenerateID()
	require.NoError(t, err)
	privateID, err := identity.GenerateID()
	require.NoError(t, err)
	token, err := signer.Issue(publicID, privateID)
	require.NoError(t, err)
	return token, publicID
}

func TestHealthCheckNeedsNoAuth(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health/check", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProtectedRouteWithoutPasscodeIs401(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/rooms", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateRoomThenCanConnect(t *testing.T) {
	s, signer := newTestServer(t)
	token, _ := issuePasscode(t, signer)

	req := httptest.NewRequest(http.MethodPost, "/rooms", nil)
	req.Header.Set("Passcode", token)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var created struct {
		RoomID string `json:"roomId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.RoomID)

	req = httptest.NewRequest(http.MethodGet, "/rooms/"+created.RoomID+"/can-connect?username=alice", nil)
	req.Header.Set("Passcode", token)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var canConnect struct {
		CanConnect bool `json:"canConnect"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &canConnect))
	assert.True(t, canConnect.CanConnect)
}

func TestCanConnectOnUnknownRoomReportsRoomNotFound(t *testing.T) {
	s, signer := newTestServer(t)
	token, _ := issuePasscode(t, signer)

	req := httptest.NewRequest(http.MethodGet, "/rooms/does-not-exist/can-connect?username=alice", nil)
	req.Header.Set("Passcode", token)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		CanConnect bool   `json:"canConnect"`
		ErrorCode  string `json:"errorCode"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.CanConnect)
	assert.Equal(t, "roomNotFound", body.ErrorCode)
}
