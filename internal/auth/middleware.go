package auth

import (
	"errors"
	"strings"

	"github.com/cinestream/cinestream/pkg/apperr"
	"github.com/cinestream/cinestream/pkg/models"
	"github.com/cinestream/cinestream/pkg/utils"
	"github.com/gin-gonic/gin"
)

const (
	identityKey = "identity"
	userIDKey   = "user_id"

	// AccessTokenParam carries the token for clients that cannot set headers,
	// such as a <video> element.
	AccessTokenParam = "access_token"
)

// AuthMiddleware rejects the request with 401 unless it carries a valid
// bearer token for an existing user.
func AuthMiddleware(store *Store, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := authenticate(c, store, secret, bearerToken(c))
		if err != nil {
			if apperr.KindOf(err) == apperr.KindInternal {
				apperr.Respond(c, err)
				return
			}
			apperr.Respond(c, apperr.Authentication("Please authenticate"))
			return
		}
		setIdentity(c, identity)
		c.Next()
	}
}

// OptionalAuth attaches an identity when a valid token is presented and lets
// anonymous requests through otherwise. When allowQuery is set the token may
// also come from the access_token query parameter.
func OptionalAuth(store *Store, secret string, allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" && allowQuery {
			token = c.Query(AccessTokenParam)
		}
		if token != "" {
			if identity, err := authenticate(c, store, secret, token); err == nil {
				setIdentity(c, identity)
			}
		}
		c.Next()
	}
}

// AdminMiddleware must run after AuthMiddleware.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok {
			apperr.Respond(c, apperr.Authentication("Authentication required"))
			return
		}
		if !identity.IsAdmin {
			apperr.Respond(c, apperr.Authorization("Admin access required"))
			return
		}
		c.Next()
	}
}

// CurrentIdentity returns the identity attached by the auth middleware, if any.
func CurrentIdentity(c *gin.Context) (models.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return models.Identity{}, false
	}
	identity, ok := v.(models.Identity)
	return identity, ok
}

func setIdentity(c *gin.Context, identity models.Identity) {
	c.Set(identityKey, identity)
	c.Set(userIDKey, identity.ID)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func authenticate(c *gin.Context, store *Store, secret, token string) (models.Identity, error) {
	if token == "" {
		return models.Identity{}, apperr.Authentication("no token")
	}
	claims, err := utils.ValidateJWT(token, secret)
	if err != nil {
		return models.Identity{}, apperr.Authentication(err.Error())
	}
	user, err := store.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return models.Identity{}, apperr.Authentication("unknown user")
		}
		return models.Identity{}, apperr.Internal("Server error", err)
	}
	return user.Identity(), nil
}
