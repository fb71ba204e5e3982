package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/brestid/internal/common"
	"github.com/dmitrijs2005/brestid/internal/server/models"
)

// identityKey is the gin context key under which requireAuth stores the
// resolved caller identity.
const identityKey = "identity"

// bearerToken extracts the token from the Authorization header. Returns ""
// when the header is absent or not a bearer scheme.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader(common.AuthorizationHeaderName)
	if header == "" || !strings.HasPrefix(header, common.BearerPrefix) {
		return ""
	}
	return strings.TrimPrefix(header, common.BearerPrefix)
}

// requireAuth authenticates the request's bearer token. A missing token is
// 401; an invalid or expired one is 403. On success the identity is stored
// in the context for handlers downstream.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := s.auth.Authenticate(c.Request.Context(), bearerToken(c))
		if err != nil {
			switch {
			case errors.Is(err, common.ErrMissingToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			case errors.Is(err, common.ErrInvalidOrExpiredToken):
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid or expired token"})
			default:
				s.logger.Error(c.Request.Context(), "authentication failed", "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "authentication error"})
			}
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// requireAdmin gates the operator endpoints. There is no role model yet, so
// any authenticated caller passes.
// TODO: check a role column once users carry one.
func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
	}
}

// identityFrom returns the identity stored by requireAuth.
func identityFrom(c *gin.Context) *models.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, ok := v.(*models.Identity)
	if !ok {
		return nil
	}
	return identity
}
