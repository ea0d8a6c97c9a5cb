package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/calcount/calcount-api/internal/interface/http"
	"github.com/calcount/calcount-api/internal/interface/middleware"
)

// UserModule wires the caller's weight log and user lookups.
// Protected: /api/user/weight-log, /api/users/*
type UserModule struct {
	Handler  *handlers.UserHandler
	Resolver middleware.TokenResolver
	Redis    *redis.Client
}

func NewUserModule(h *handlers.UserHandler, resolver middleware.TokenResolver, rdb *redis.Client) *UserModule {
	return &UserModule{Handler: h, Resolver: resolver, Redis: rdb}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	authed := []gin.HandlerFunc{
		middleware.Auth(m.Resolver),
		middleware.RateLimit(m.Redis, 120, time.Minute, middleware.KeyByUserID(), nil),
	}

	me := rg.Group("/user", authed...)
	{
		me.GET("/weight-log", m.Handler.GetWeightLog)
		me.POST("/weight-log", m.Handler.AddWeightLogEntry)
	}

	users := rg.Group("/users", authed...)
	{
		users.GET("/search", m.Handler.Search)
		users.GET("/usernames", m.Handler.Usernames)
		users.GET("/id/:id", m.Handler.GetByID)
		users.GET("/:username", m.Handler.GetByUsername)
	}
}
