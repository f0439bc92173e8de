package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cassauth/authservicesapi/internal/apperr"
)

type createSessionRequest struct {
	// Password is the client-computed PBKDF2 hash of the user's
	// password using "user@org" as the salt and count=10000, never the
	// raw password.
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleCreateSession(c *gin.Context) {
	username, org, ok := splitUserOrg(c.Param("userorg"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Ambiguous or malformed user identifier"})
		return
	}

	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing password"})
		return
	}

	ctx := c.Request.Context()

	exists, err := s.authDB.UserExists(ctx, org, username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "There was an error fulfilling your request"})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"message": fmt.Sprintf("Cannot open session for invalid user %q@%q.", username, org)})
		return
	}

	valid, err := s.authDB.ValidatePassword(ctx, org, username, req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "There was an error fulfilling your request"})
		return
	}
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("Password authentication failed for %q@%q.", username, org)})
		return
	}

	sessionID, err := s.authDB.CreateUserSession(ctx, org, username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to open session"})
		return
	}
	key, err := s.authDB.CreateUserSessionKey(ctx, org, username, sessionID, s.cfg.Auth.SessionKeyTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to open session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Session created",
		"id":      sessionID.String(),
		"key":     key,
	})
}

func (s *Server) handleListSessions(c *gin.Context) {
	username, org, ok := splitUserOrg(c.Param("userorg"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Ambiguous or malformed user identifier"})
		return
	}

	ctx := c.Request.Context()
	key := sessionKeyFromHeaderOrQuery(c.GetHeader("key"), c.Query("key"))

	valid, keyUser, keyOrg, err := s.authDB.ValidateSessionKey(ctx, key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "There was an error fulfilling your request"})
		return
	}
	if !valid {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired session key"})
		return
	}
	if keyUser != username || keyOrg != org {
		c.JSON(http.StatusForbidden, gin.H{"message": "Session key does not belong to this user"})
		return
	}

	sessions, err := s.authDB.GetUserSessions(ctx, org, username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "There was an error fulfilling your request"})
		return
	}

	out := make([]gin.H, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, gin.H{
			"sessionid":  sess.SessionID.String(),
			"startdate":  sess.StartDate,
			"lastupdate": sess.LastUpdate,
		})
	}
	c.JSON(http.StatusOK, gin.H{"message": "Sessions retrieved", "sessions": out})
}

func (s *Server) handleGetSession(c *gin.Context) {
	username, org, ok := splitUserOrg(c.Param("userorg"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Ambiguous or malformed user identifier"})
		return
	}

	sessionIDParam := c.Param("sessionid")
	sessionID, err := uuid.Parse(sessionIDParam)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid session id"})
		return
	}

	ctx := c.Request.Context()
	key := sessionKeyFromHeaderOrQuery(c.GetHeader("key"), c.Query("key"))

	valid, keyUser, keyOrg, err := s.authDB.ValidateSessionKey(ctx, key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "There was an error fulfilling your request"})
		return
	}
	if !valid {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired session key"})
		return
	}
	if keyUser != username || keyOrg != org {
		c.JSON(http.StatusForbidden, gin.H{"message": "Session key does not belong to this user"})
		return
	}

	sess, err := s.authDB.GetUserSession(ctx, org, username, sessionID)
	if errors.Is(err, apperr.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": fmt.Sprintf("No session matched %q", sessionIDParam)})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "There was an error fulfilling your request"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Session retrieved",
		"session": gin.H{
			"sessionid":  sess.SessionID.String(),
			"startdate":  sess.StartDate,
			"lastupdate": sess.LastUpdate,
		},
	})
}
