package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/calcount/calcount-api/internal/application"
	"github.com/calcount/calcount-api/pkg/helpers"
	"github.com/calcount/calcount-api/pkg/response"
)

const principalKey = "principal"

// Principal is the resolved identity of the caller.
type Principal struct {
	UserID   string
	Username string
}

type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (application.Identity, error)
}

// Auth resolves the bearer token (Authorization header, then the access_token
// cookie) into a Principal stored in the Gin context.
func Auth(resolver TokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.Error[any](c, http.StatusUnauthorized, "missing access token", response.ErrorBody{Code: "missing_token"})
			return
		}

		id, err := resolver.ResolveToken(c.Request.Context(), token)
		switch {
		case errors.Is(err, application.ErrSessionNotFound):
			response.Error[any](c, http.StatusUnauthorized, "session not found", response.ErrorBody{Code: "session_not_found"})
			return
		case errors.Is(err, application.ErrInvalidToken):
			response.Error[any](c, http.StatusUnauthorized, "invalid access token", response.ErrorBody{Code: "invalid_token"})
			return
		case err != nil:
			_ = c.Error(err)
			response.Error[any](c, http.StatusInternalServerError, "an unexpected error occurred", response.ErrorBody{Code: "internal_error"})
			return
		}

		c.Set(principalKey, Principal{UserID: id.UserID, Username: id.Username})
		c.Set("userID", id.UserID) // read by KeyByUserID
		c.Next()
	}
}

// CurrentPrincipal returns the Principal set by Auth.
func CurrentPrincipal(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

// SetPrincipal is used by tests and internal callers that authenticate by other means.
func SetPrincipal(c *gin.Context, p Principal) {
	c.Set(principalKey, p)
	c.Set("userID", p.UserID)
}

func bearerToken(c *gin.Context) string {
	if h := strings.TrimSpace(c.GetHeader("Authorization")); h != "" {
		if scheme, tok, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
	}
	if tok, err := c.Cookie(helpers.AccessTokenCookie); err == nil {
		return tok
	}
	return ""
}
