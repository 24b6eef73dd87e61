package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eratosthenes/geoguess-server/internal/geo"
	"github.com/eratosthenes/geoguess-server/internal/identity"
)

type guessBody struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type changeScoreBody struct {
	Amount int64 `json:"amount"`
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"error": false})
}

func (s *Server) decodePasscode(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": true, "reason": "invalidPasscode"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"error": false, "publicId": claims.PublicID})
}

func (s *Server) createRoom(c *gin.Context) {
	roomID, err := s.engine.CreateRoom()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": true, "errorCode": "internal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"roomId": roomID})
}

func (s *Server) canConnect(c *gin.Context) {
	roomID := c.Param("id")
	claims, _ := claimsFrom(c)
	username := c.Query("username")

	err := s.engine.CanConnect(roomID, claims.PublicID, claims.PrivateID, username)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"canConnect": false, "errorCode": errorCode(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"canConnect": true})
}

func (s *Server) amIHost(c *gin.Context) {
	roomID := c.Param("id")
	claims, _ := claimsFrom(c)

	isHost, err := s.engine.AmIHost(roomID, claims.PrivateID)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"error": true, "errorCode": errorCode(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"isHost": isHost})
}

func (s *Server) saveGuess(c *gin.Context) {
	roomID := c.Param("id")
	claims, _ := claimsFrom(c)

	var body guessBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": true, "errorCode": "malformedBody"})
		return
	}

	if err := s.engine.SaveGuess(roomID, claims.PrivateID, geo.LatLng{Lat: body.Lat, Lng: body.Lng}); err != nil {
		c.JSON(http.StatusOK, gin.H{"error": true, "errorCode": errorCode(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"error": false})
}

func (s *Server) submitGuess(c *gin.Context) {
	roomID := c.Param("id")
	claims, _ := claimsFrom(c)

	var body guessBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": true, "errorCode": "malformedBody"})
		return
	}

	if err := s.engine.SubmitGuess(roomID, claims.PrivateID, geo.LatLng{Lat: body.Lat, Lng: body.Lng}); err != nil {
		c.JSON(http.StatusOK, gin.H{"error": true, "errorCode": errorCode(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"error": false})
}

func (s *Server) revokeGuess(c *gin.Context) {
	roomID := c.Param("id")
	claims, _ := claimsFrom(c)

	if err := s.engine.RevokeGuess(roomID, claims.PrivateID); err != nil {
		c.JSON(http.StatusOK, gin.H{"error": true, "errorCode": errorCode(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"error": false})
}

func (s *Server) listUsers(c *gin.Context) {
	roomID := c.Param("id")

	users, err := s.engine.Users(roomID)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"error": true, "errorCode": errorCode(err)})
		return
	}
	status, err := s.engine.Status(roomID)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"error": true, "errorCode": errorCode(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"error": false, "users": users, "status": status})
}

func (s *Server) listMessages(c *gin.Context) {
	roomID := c.Param("id")

	messages, err := s.engine.Messages(roomID)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"error": true, "errorCode": errorCode(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"error": false, "messages": messages})
}

func (s *Server) muteUser(c *gin.Context) {
	roomID, targetID := c.Param("id"), c.Param("uid")
	claims, _ := claimsFrom(c)

	if err := s.engine.Mute(roomID, claims.PrivateID, targetID); err != nil {
		c.JSON(http.StatusOK, gin.H{"error": true, "errorCode": errorCode(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"error": false})
}

func (s *Server) unmuteUser(c *gin.Context) {
	roomID, targetID := c.Param("id"), c.Param("uid")
	claims, _ := claimsFrom(c)

	if err := s.engine.Unmute(roomID, claims.PrivateID, targetID); err != nil {
		c.JSON(http.StatusOK, gin.H{"error": true, "errorCode": errorCode(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"error": false})
}

func (s *Server) banUser(c *gin.Context) {
	roomID, targetID := c.Param("id"), c.Param("uid")
	claims, _ := claimsFrom(c)

	if err := s.engine.Ban(roomID, claims.PrivateID, targetID); err != nil {
		c.JSON(http.StatusOK, gin.H{"error": true, "errorCode": errorCode(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"error": false})
}

func (s *Server) changeScore(c *gin.Context) {
	roomID, targetID := c.Param("id"), c.Param("uid")
	claims, _ := claimsFrom(c)

	var body changeScoreBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": true, "errorCode": "malformedBody"})
		return
	}

	if err := s.engine.ChangeScore(roomID, claims.PrivateID, targetID, body.Amount); err != nil {
		c.JSON(http.StatusOK, gin.H{"error": true, "errorCode": errorCode(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"error": false})
}

// claimsForSocket resolves the passcode carried in the ws upgrade's
// query string - gorilla's upgrade path can't read a header round-trip
// the way a plain request can from the browser WebSocket API, so the
// token travels as ?passcode=... instead (spec.md §6).
func (s *Server) claimsForSocket(c *gin.Context) (identity.Claims, error) {
	passcode := c.Query("passcode")
	if passcode == "" {
		return identity.Claims{}, identity.ErrInvalidPasscode
	}
	return s.signer.Decode(passcode)
}
