package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/cinestream/cinestream/pkg/apperr"
	"github.com/cinestream/cinestream/pkg/logger"
	"github.com/cinestream/cinestream/pkg/metrics"
	"github.com/cinestream/cinestream/pkg/models"
	"github.com/cinestream/cinestream/pkg/utils"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	store     *Store
	jwtSecret string
	tokenTTL  time.Duration
}

func NewHandler(store *Store, jwtSecret string, tokenTTL time.Duration) *Handler {
	return &Handler{
		store:     store,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
	}
}

func (h *Handler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.AuthEvents.WithLabelValues("register", "invalid").Inc()
		if utils.FieldFailed(err, "Email", "email") {
			apperr.Respond(c, apperr.Validation("Invalid email format"))
			return
		}
		apperr.Respond(c, apperr.Validation("All fields are required"))
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	ctx := c.Request.Context()
	taken, err := h.store.Taken(ctx, req.Username, req.Email, 0)
	if err != nil {
		apperr.Respond(c, apperr.Internal("Registration failed", err))
		return
	}
	if taken {
		metrics.AuthEvents.WithLabelValues("register", "exists").Inc()
		apperr.Respond(c, apperr.Validation("User already exists"))
		return
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		apperr.Respond(c, apperr.Internal("Registration failed", err))
		return
	}

	user, err := h.store.Create(ctx, req.Username, req.Email, hashedPassword, false)
	if err != nil {
		// A concurrent register can still lose the unique race after the check above.
		if errors.Is(err, ErrUserExists) {
			metrics.AuthEvents.WithLabelValues("register", "exists").Inc()
			apperr.Respond(c, apperr.Validation("User already exists"))
			return
		}
		apperr.Respond(c, apperr.Internal("Registration failed", err))
		return
	}

	token, expiresAt, err := utils.GenerateJWT(user.ID, h.jwtSecret, h.tokenTTL)
	if err != nil {
		apperr.Respond(c, apperr.Internal("Failed to generate token", err))
		return
	}

	metrics.AuthEvents.WithLabelValues("register", "ok").Inc()
	logger.GetLogger().Info("user_registered", "user_id", user.ID, "username", user.Username)

	c.JSON(http.StatusCreated, models.AuthResponse{
		Message:   "User created successfully",
		Token:     token,
		User:      user.Identity(),
		ExpiresAt: expiresAt,
	})
}

func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		metrics.AuthEvents.WithLabelValues("login", "invalid").Inc()
		apperr.Respond(c, apperr.Validation("Email and password are required"))
		return
	}

	user, err := h.store.GetByEmail(c.Request.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			metrics.AuthEvents.WithLabelValues("login", "denied").Inc()
			apperr.Respond(c, apperr.Authentication("Invalid credentials"))
			return
		}
		apperr.Respond(c, apperr.Internal("Login failed", err))
		return
	}

	if err := utils.CheckPassword(user.PasswordHash, req.Password); err != nil {
		metrics.AuthEvents.WithLabelValues("login", "denied").Inc()
		apperr.Respond(c, apperr.Authentication("Invalid credentials"))
		return
	}

	token, expiresAt, err := utils.GenerateJWT(user.ID, h.jwtSecret, h.tokenTTL)
	if err != nil {
		apperr.Respond(c, apperr.Internal("Failed to generate token", err))
		return
	}

	metrics.AuthEvents.WithLabelValues("login", "ok").Inc()
	c.JSON(http.StatusOK, models.AuthResponse{
		Message:   "Login successful",
		Token:     token,
		User:      user.Identity(),
		ExpiresAt: expiresAt,
	})
}

func (h *Handler) Profile(c *gin.Context) {
	identity, ok := CurrentIdentity(c)
	if !ok {
		apperr.Respond(c, apperr.Authentication("Authentication required"))
		return
	}
	user, err := h.store.GetByID(c.Request.Context(), identity.ID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			apperr.Respond(c, apperr.NotFound("User not found"))
			return
		}
		apperr.Respond(c, apperr.Internal("Server error", err))
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	identity, ok := CurrentIdentity(c)
	if !ok {
		apperr.Respond(c, apperr.Authentication("Authentication required"))
		return
	}

	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if utils.FieldFailed(err, "Email", "email") {
			apperr.Respond(c, apperr.Validation("Invalid email format"))
			return
		}
		apperr.Respond(c, apperr.Validation(err.Error()))
		return
	}
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	if username == "" {
		username = identity.Username
	}
	if email == "" {
		email = identity.Email
	}

	ctx := c.Request.Context()
	taken, err := h.store.Taken(ctx, username, email, identity.ID)
	if err != nil {
		apperr.Respond(c, apperr.Internal("Update failed", err))
		return
	}
	if taken {
		apperr.Respond(c, apperr.Validation("Username or email already in use"))
		return
	}

	if err := h.store.UpdateProfile(ctx, identity.ID, username, email); err != nil {
		switch {
		case errors.Is(err, ErrUserExists):
			apperr.Respond(c, apperr.Validation("Username or email already in use"))
		case errors.Is(err, ErrUserNotFound):
			apperr.Respond(c, apperr.NotFound("User not found"))
		default:
			apperr.Respond(c, apperr.Internal("Update failed", err))
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully"})
}

func (h *Handler) ChangePassword(c *gin.Context) {
	identity, ok := CurrentIdentity(c)
	if !ok {
		apperr.Respond(c, apperr.Authentication("Authentication required"))
		return
	}

	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.Validation("Current password and a new password of at least 6 characters are required"))
		return
	}

	ctx := c.Request.Context()
	user, err := h.store.GetByID(ctx, identity.ID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			apperr.Respond(c, apperr.NotFound("Account not found"))
			return
		}
		apperr.Respond(c, apperr.Internal("Database error", err))
		return
	}
	if err := utils.CheckPassword(user.PasswordHash, req.CurrentPassword); err != nil {
		metrics.AuthEvents.WithLabelValues("change_password", "denied").Inc()
		apperr.Respond(c, apperr.Authentication("Invalid credentials"))
		return
	}
	newHash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		apperr.Respond(c, apperr.Internal("Failed to hash password", err))
		return
	}
	if err := h.store.UpdatePassword(ctx, identity.ID, newHash); err != nil {
		apperr.Respond(c, apperr.Internal("Failed to update password", err))
		return
	}
	metrics.AuthEvents.WithLabelValues("change_password", "ok").Inc()
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}
