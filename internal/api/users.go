package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cassauth/authservicesapi/internal/apperr"
	"github.com/cassauth/authservicesapi/internal/authdb"
	"github.com/cassauth/authservicesapi/internal/credential"
)

type createUserRequest struct {
	Username   string `json:"username" binding:"required"`
	Org        string `json:"org" binding:"required"`
	Email      string `json:"email" binding:"required"`
	ParentUser string `json:"parentuser"`
}

func (s *Server) handleCreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"Message": "Missing required field: username, org, or email"})
		return
	}

	ctx := c.Request.Context()

	exists, err := s.authDB.UserExists(ctx, req.Org, req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"Message": "There was an error fulfilling your request"})
		return
	}
	if exists {
		c.JSON(http.StatusBadRequest, gin.H{"Message": fmt.Sprintf(
			"Cannot create user %q@%q, as it already exists.", req.Username, req.Org)})
		return
	}

	regOpen, hasSetting, err := s.authDB.GetOrgSetting(ctx, req.Org, "registrationOpen")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"Message": "There was an error fulfilling your request"})
		return
	}
	if !registrationOpen(regOpen, hasSetting) {
		c.JSON(http.StatusBadRequest, gin.H{"Message": fmt.Sprintf(
			"Cannot create user %q@%q. Organization is closed for registrations or does not exist.", req.Username, req.Org)})
		return
	}

	var parentUser *string
	if req.ParentUser != "" {
		parentUsername, parentOrg, ok := splitUserOrg(req.ParentUser)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"Message": fmt.Sprintf(
				"Cannot create user %q@%q. Parent user %q does not exist.", req.Username, req.Org, req.ParentUser)})
			return
		}

		parentExists, err := s.authDB.UserExists(ctx, parentOrg, parentUsername)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"Message": "There was an error fulfilling your request"})
			return
		}
		if !parentExists {
			c.JSON(http.StatusBadRequest, gin.H{"Message": fmt.Sprintf(
				"Cannot create user %q@%q. Parent user %q does not exist.", req.Username, req.Org, req.ParentUser)})
			return
		}

		key := sessionKeyFromHeaderOrQuery(c.GetHeader("key"), c.Query("key"))
		if key == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"Message": fmt.Sprintf(
				"Cannot create user %q@%q. Must provide a valid session key for %q.", req.Username, req.Org, req.ParentUser)})
			return
		}

		valid, sessionUser, sessionOrg, err := s.authDB.ValidateSessionKey(ctx, key)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"Message": "There was an error fulfilling your request"})
			return
		}
		if !valid || sessionUser != parentUsername || sessionOrg != parentOrg {
			c.JSON(http.StatusForbidden, gin.H{"Message": fmt.Sprintf(
				"Cannot create user %q@%q. Session key not valid for parent user %q.", req.Username, req.Org, req.ParentUser)})
			return
		}
		parentUser = &req.ParentUser
	}

	if err := s.authDB.CreateUser(ctx, req.Org, req.Username, req.Email, parentUser, authdb.QuorumWrite); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"Message": "There was an error fulfilling your request"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"Message": fmt.Sprintf("User \"%s@%s\" created.", req.Username, req.Org)})
}

func (s *Server) handleGetUser(c *gin.Context) {
	username, org, ok := splitUserOrg(c.Param("userorg"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"Message": "Ambiguous or malformed user identifier"})
		return
	}

	user, err := s.authDB.GetUser(c.Request.Context(), org, username)
	if errors.Is(err, apperr.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"Message": fmt.Sprintf("No user matched %q@%q", username, org)})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"Message": "There was an error fulfilling your request"})
		return
	}

	resp := gin.H{
		"username":   user.Username,
		"org":        user.Org,
		"createdate": user.CreateDate,
	}
	if user.ParentUser != nil {
		resp["parentuser"] = *user.ParentUser
	} else {
		resp["parentuser"] = nil
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleRequestPasswordReset(c *gin.Context) {
	username, org, ok := splitUserOrg(c.Param("userorg"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"Message": "Ambiguous or malformed user identifier"})
		return
	}

	ctx := c.Request.Context()
	exists, err := s.authDB.UserExists(ctx, org, username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"Message": "There was an error fulfilling your request"})
		return
	}
	if !exists {
		c.JSON(http.StatusBadRequest, gin.H{"Message": fmt.Sprintf("Cannot reset password for invalid user %q@%q", username, org)})
		return
	}

	if _, err := s.authDB.CreatePasswordReset(ctx, org, username); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"Message": fmt.Sprintf("Unable to reset password for %q@%q", username, org)})
		return
	}

	// TODO: deliver resetid to the user out of band (email); this
	// service only records the request.
	c.JSON(http.StatusOK, gin.H{"Message": fmt.Sprintf("Password reset for %q@%q", username, org)})
}

type completePasswordResetRequest struct {
	ResetID  string `json:"resetid" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleCompletePasswordReset(c *gin.Context) {
	username, org, ok := splitUserOrg(c.Param("userorg"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Ambiguous or malformed user identifier"})
		return
	}

	var req completePasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing resetid or password"})
		return
	}

	ctx := c.Request.Context()
	exists, err := s.authDB.UserExists(ctx, org, username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "There was an error fulfilling your request"})
		return
	}
	if !exists {
		c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("Cannot change password for invalid user %q@%q", username, org)})
		return
	}

	valid, err := s.authDB.ValidatePasswordReset(ctx, org, username, req.ResetID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "There was an error fulfilling your request"})
		return
	}
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("Cannot change password for %q@%q. Invalid or expired resetid", username, org)})
		return
	}

	var setErr error
	salt, saltErr := credential.GenerateSalt()
	if saltErr != nil {
		setErr = saltErr
	} else {
		hash, hashErr := credential.HashPassword("argon2", req.Password, salt, credential.DefaultParams())
		if hashErr != nil {
			setErr = hashErr
		} else {
			setErr = s.authDB.SetPassword(ctx, org, username, hash, salt)
		}
	}

	// Always attempt to clear the reset record, mirroring the original's
	// finally-block cleanup regardless of whether the password write
	// above succeeded.
	if derr := s.authDB.DeletePasswordReset(ctx, org, username); derr != nil {
		c.Error(derr)
	}

	if setErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": fmt.Sprintf("Error changing password for %q@%q", username, org)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Password updated for %q@%q.", username, org)})
}
