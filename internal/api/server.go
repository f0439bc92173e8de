// Package api is the REST Surface: a gin router over the Auth Data
// Layer and Credential Engine, exposing organizations, users, password
// resets, and login sessions.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/cassauth/authservicesapi/internal/authdb"
	"github.com/cassauth/authservicesapi/internal/config"
)

// Server wires the gin router to the Auth Data Layer.
type Server struct {
	cfg    *config.Config
	authDB *authdb.AuthDB
	router *gin.Engine
	http   *http.Server
}

// NewServer builds a Server and registers its routes.
func NewServer(cfg *config.Config, authDB *authdb.AuthDB) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	// "key" carries the session key on list/get session requests; see
	// internal/api/sessions.go.
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "key"},
		MaxAge:          12 * time.Hour,
	}))

	s := &Server{cfg: cfg, authDB: authDB, router: router}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	s.router.POST("/users", s.handleCreateUser)
	s.router.GET("/users/:userorg", s.handleGetUser)
	s.router.POST("/users/:userorg/requestpasswordreset", s.handleRequestPasswordReset)
	s.router.POST("/users/:userorg/completepasswordreset", s.handleCompletePasswordReset)

	s.router.POST("/sessions/:userorg", s.handleCreateSession)
	s.router.GET("/sessions/:userorg", s.handleListSessions)
	s.router.GET("/sessions/:userorg/:sessionid", s.handleGetSession)
}

// Run starts the HTTP listener; it blocks until the server stops.
func (s *Server) Run() error {
	s.http = &http.Server{
		Addr:         s.cfg.Server.Port,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}
	return s.http.ListenAndServe()
}

// Shutdown gracefully stops the HTTP listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
