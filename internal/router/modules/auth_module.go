package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/calcount/calcount-api/internal/interface/http"
	"github.com/calcount/calcount-api/internal/interface/middleware"
)

// AuthModule serves registration, login and logout.
type AuthModule struct {
	Handler  *handlers.AuthHandler
	Resolver middleware.TokenResolver
	Redis    *redis.Client
}

func NewAuthModule(h *handlers.AuthHandler, resolver middleware.TokenResolver, rdb *redis.Client) *AuthModule {
	return &AuthModule{Handler: h, Resolver: resolver, Redis: rdb}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	// Public endpoints with IP+route limits
	registerLimiter := middleware.RateLimit(m.Redis, 5, time.Minute, middleware.KeyByIPAndPath(), nil)
	loginLimiter := middleware.RateLimit(m.Redis, 10, time.Minute, middleware.KeyByIPAndPath(), nil)

	rg.POST("/auth/register", registerLimiter, m.Handler.Register)
	rg.POST("/auth/login", loginLimiter, m.Handler.Login)

	auth := rg.Group("/auth")
	auth.Use(middleware.Auth(m.Resolver))
	{
		auth.POST("/logout", m.Handler.Logout)
	}
}
