// Package httpapi implements the HTTP control surface (component C7):
// a gin router whose handlers each resolve a RequestContext from the
// Passcode header and drive the same engine methods the WebSocket
// session (C6) drives, so the two transports can never disagree about
// what an action does (spec.md §4.6).
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/eratosthenes/geoguess-server/internal/engine"
	"github.com/eratosthenes/geoguess-server/internal/identity"
	"github.com/eratosthenes/geoguess-server/internal/telemetry"
	"github.com/eratosthenes/geoguess-server/internal/uploads"
)

// Upgrader is satisfied by the wsapi package; httpapi depends on it only
// through this interface to avoid an import cycle (wsapi, in turn,
// drives the engine directly).
type Upgrader interface {
	Serve(c *gin.Context, claims identity.Claims)
}

// Server wires the engine, the passcode signer and the WS upgrader into
// a gin.Engine.
type Server struct {
	router  *gin.Engine
	engine  *engine.Engine
	signer  *identity.Signer
	ws      Upgrader
	uploads *uploads.Store
}

// Config controls CORS and other router-level options.
type Config struct {
	AllowedOrigins []string
}

// NewServer builds the HTTP router and registers every route from
// spec.md §6. uploadStore may be nil, in which case the /uploads routes
// are not registered at all. shipper may be nil (telemetry disabled).
func NewServer(eng *engine.Engine, signer *identity.Signer, ws Upgrader, uploadStore *uploads.Store, shipper *telemetry.Shipper, cfg Config) *Server {
	router := gin.New()
	router.Use(RequestIDMiddleware(), LoggingMiddleware(shipper), RecoveryMiddleware())
	router.Use(corsMiddleware(cfg.AllowedOrigins))

	s := &Server{router: router, engine: eng, signer: signer, ws: ws, uploads: uploadStore}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for use with an
// http.Server (or for tests).
func (s *Server) Handler() http.Handler { return s.router }

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Passcode"},
		AllowCredentials: true,
	})
	return func(ctx *gin.Context) {
		c.HandlerFunc(ctx.Writer, ctx.Request)
		if ctx.Request.Method == http.MethodOptions {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}
		ctx.Next()
	}
}

func (s *Server) registerRoutes() {
	s.router.GET("/health/check", s.healthCheck)

	auth := s.router.Group("/")
	auth.Use(AuthMiddleware(s.signer))

	auth.GET("/auth/passcode/decode", s.decodePasscode)
	auth.POST("/rooms", s.createRoom)
	auth.GET("/rooms/:id/can-connect", s.canConnect)
	auth.GET("/rooms/:id/am-i-host", s.amIHost)
	auth.POST("/rooms/:id/save-guess", s.saveGuess)
	auth.POST("/rooms/:id/submit-guess", s.submitGuess)
	auth.POST("/rooms/:id/revoke-guess", s.revokeGuess)
	auth.GET("/rooms/:id/users", s.listUsers)
	auth.GET("/rooms/:id/messages", s.listMessages)
	auth.GET("/rooms/:id/users/:uid/mute", s.muteUser)
	auth.GET("/rooms/:id/users/:uid/unmute", s.unmuteUser)
	auth.POST("/rooms/:id/users/:uid/ban", s.banUser)
	auth.POST("/rooms/:id/users/:uid/change-score", s.changeScore)

	if s.uploads != nil && s.uploads.Healthy() {
		auth.POST("/uploads/images", s.uploadImages)
		auth.POST("/uploads/attachment-links", s.attachmentLinks)
	}

	// The WS upgrade carries its token on the query string rather than
	// a header, so it authenticates itself rather than going through
	// AuthMiddleware.
	s.router.GET("/rooms/:id/ws", s.handleWebSocket)
}

func (s *Server) handleWebSocket(c *gin.Context) {
	claims, err := s.claimsForSocket(c)
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	s.ws.Serve(c, claims)
}
