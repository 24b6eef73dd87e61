package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eratosthenes/geoguess-server/internal/geo"
	"github.com/eratosthenes/geoguess-server/internal/rooms"
	"github.com/eratosthenes/geoguess-server/internal/sockets"
)

func newTestEngine() *Engine {
	locations := geo.NewLocations([]geo.LatLng{{Lat: 48.8566, Lng: 2.3522}})
	return New(rooms.NewStore(), sockets.NewRegistry(), locations)
}

func mustCreateRoom(t *testing.T, e *Engine) string {
	t.Helper()
	roomID, err := e.CreateRoom()
	require.NoError(t, err)
	return roomID
}

func connectMember(t *testing.T, e *Engine, roomID, publicID, privateID, name string) sockets.ID {
	t.Helper()
	sid, _ := e.sockets.Add()
	isNew, err := e.Connect(roomID, publicID, privateID, name, "🙂", sid)
	require.NoError(t, err)
	require.True(t, isNew)
	return sid
}

func TestConnectFirstMemberBecomesHost(t *testing.T) {
	e := newTestEngine()
	roomID := mustCreateRoom(t, e)
	connectMember(t, e, roomID, "pub-1", "priv-1", "alice")

	isHost, err := e.AmIHost(roomID, "priv-1")
	require.NoError(t, err)
	assert.True(t, isHost)
}

func TestConnectRejectsDuplicateUsername(t *testing.T) {
	e := newTestEngine()
	roomID := mustCreateRoom(t, e)
	connectMember(t, e, roomID, "pub-1", "priv-1", "alice")

	sid, _ := e.sockets.Add()
	_, err := e.Connect(roomID, "pub-2", "priv-2", "alice", "🙂", sid)
	require.Error(t, err)
	engErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, "userAlreadyInRoom", engErr.Code)
}

func TestConnectReconnectPreservesHostAndUpdatesName(t *testing.T) {
	e := newTestEngine()
	roomID := mustCreateRoom(t, e)
	connectMember(t, e, roomID, "pub-1", "priv-1", "alice")

	newSocket, _ := e.sockets.Add()
	isNew, err := e.Connect(roomID, "pub-1", "priv-1", "alicia", "😎", newSocket)
	require.NoError(t, err)
	assert.False(t, isNew)

	users, err := e.Users(roomID)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.True(t, users[0].IsHost)
	assert.Equal(t, "alicia", users[0].Name)
}

// TestTwoPlayerRoundEndsOnUnanimity covers spec.md §8's scenario 1: both
// members submit and the round finishes immediately, without waiting
// for the timer.
func TestTwoPlayerRoundEndsOnUnanimity(t *testing.T) {
	e := newTestEngine()
	roomID := mustCreateRoom(t, e)
	connectMember(t, e, roomID, "pub-1", "priv-1", "alice")
	connectMember(t, e, roomID, "pub-2", "priv-2", "bob")

	require.NoError(t, e.RoundStarted(roomID, "priv-1"))

	status, err := e.Status(roomID)
	require.NoError(t, err)
	require.Equal(t, rooms.StatusPlaying, status.Type)

	require.NoError(t, e.SubmitGuess(roomID, "priv-1", geo.LatLng{Lat: 48.85, Lng: 2.35}))
	status, err = e.Status(roomID)
	require.NoError(t, err)
	assert.Equal(t, rooms.StatusPlaying, status.Type, "round must not finish until every member submits")

	require.NoError(t, e.SubmitGuess(roomID, "priv-2", geo.LatLng{Lat: 10, Lng: 10}))
	status, err = e.Status(roomID)
	require.NoError(t, err)
	assert.Equal(t, rooms.StatusWaiting, status.Type, "round finishes as soon as the last member submits")

	users, err := e.Users(roomID)
	require.NoError(t, err)
	for _, u := range users {
		assert.NotNil(t, u.LastRoundScore)
		assert.False(t, u.SubmittedGuess)
	}
}

func TestBanPreventsReconnectAndRemovesMember(t *testing.T) {
	e := newTestEngine()
	roomID := mustCreateRoom(t, e)
	connectMember(t, e, roomID, "pub-1", "priv-1", "alice")
	connectMember(t, e, roomID, "pub-2", "priv-2", "bob")

	require.NoError(t, e.Ban(roomID, "priv-1", "pub-2"))

	users, err := e.Users(roomID)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "pub-1", users[0].PublicID)

	sid, _ := e.sockets.Add()
	_, err = e.Connect(roomID, "pub-2", "priv-2", "bob", "🙂", sid)
	require.Error(t, err)
	engErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, "userBanned", engErr.Code)
}

func TestBanOfHostReassignsHost(t *testing.T) {
	e := newTestEngine()
	roomID := mustCreateRoom(t, e)
	connectMember(t, e, roomID, "pub-1", "priv-1", "alice")
	connectMember(t, e, roomID, "pub-2", "priv-2", "bob")

	require.NoError(t, e.Ban(roomID, "priv-1", "pub-1"))

	isHost, err := e.AmIHost(roomID, "priv-2")
	require.NoError(t, err)
	assert.True(t, isHost)
}

func TestNonHostActionsAreRejected(t *testing.T) {
	e := newTestEngine()
	roomID := mustCreateRoom(t, e)
	connectMember(t, e, roomID, "pub-1", "priv-1", "alice")
	connectMember(t, e, roomID, "pub-2", "priv-2", "bob")

	err := e.Mute(roomID, "priv-2", "pub-1")
	require.Error(t, err)
	engErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, "youAreNotTheHost", engErr.Code)
}

func TestMuteSuppressesChatWithoutError(t *testing.T) {
	e := newTestEngine()
	roomID := mustCreateRoom(t, e)
	connectMember(t, e, roomID, "pub-1", "priv-1", "alice")
	connectMember(t, e, roomID, "pub-2", "priv-2", "bob")

	require.NoError(t, e.Mute(roomID, "priv-1", "pub-2"))
	require.NoError(t, e.ChatMessage(roomID, "priv-2", "hello", nil))

	messages, err := e.Messages(roomID)
	require.NoError(t, err)
	for _, m := range messages {
		assert.NotEqual(t, "hello", m.Content)
	}
}

func TestGameFinishResetsScoresOnNextRound(t *testing.T) {
	e := newTestEngine()
	roomID := mustCreateRoom(t, e)
	connectMember(t, e, roomID, "pub-1", "priv-1", "alice")

	for round := 0; round < rooms.RoundsPerGame; round++ {
		require.NoError(t, e.RoundStarted(roomID, "priv-1"))
		require.NoError(t, e.SubmitGuess(roomID, "priv-1", geo.LatLng{Lat: 48.8566, Lng: 2.3522}))
	}

	users, err := e.Users(roomID)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Greater(t, users[0].Score, uint64(0))

	require.NoError(t, e.RoundStarted(roomID, "priv-1"))
	users, err = e.Users(roomID)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), users[0].Score, "score resets when a fresh game begins")
}

func TestDisconnectWithinGraceIsTransparentToReconnect(t *testing.T) {
	e := newTestEngine()
	roomID := mustCreateRoom(t, e)
	connectMember(t, e, roomID, "pub-1", "priv-1", "alice")

	e.Disconnect(roomID, "priv-1")

	newSocket, _ := e.sockets.Add()
	isNew, err := e.Connect(roomID, "pub-1", "priv-1", "alice", "🙂", newSocket)
	require.NoError(t, err)
	assert.False(t, isNew)

	users, err := e.Users(roomID)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.True(t, users[0].IsHost)
}

func TestSaveGuessAcceptedWhileWaiting(t *testing.T) {
	e := newTestEngine()
	roomID := mustCreateRoom(t, e)
	connectMember(t, e, roomID, "pub-1", "priv-1", "alice")

	require.NoError(t, e.SaveGuess(roomID, "priv-1", geo.LatLng{Lat: 1, Lng: 1}))
	users, err := e.Users(roomID)
	require.NoError(t, err)
	require.NotNil(t, users[0].LastGuess)
	assert.False(t, users[0].SubmittedGuess)
}

func TestChangeScoreClampsAtZero(t *testing.T) {
	e := newTestEngine()
	roomID := mustCreateRoom(t, e)
	connectMember(t, e, roomID, "pub-1", "priv-1", "alice")

	require.NoError(t, e.ChangeScore(roomID, "priv-1", "pub-1", -1000))
	users, err := e.Users(roomID)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), users[0].Score)
}

func TestUnknownRoomReturnsRoomNotFound(t *testing.T) {
	e := newTestEngine()
	_, err := e.AmIHost("does-not-exist", "priv-1")
	require.Error(t, err)
	assert.Same(t, ErrRoomNotFound, err)
}
