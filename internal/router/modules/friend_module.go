package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/calcount/calcount-api/internal/interface/http"
	"github.com/calcount/calcount-api/internal/interface/middleware"
)

type FriendModule struct {
	Handler  *handlers.FriendHandler
	Resolver middleware.TokenResolver
	Redis    *redis.Client
}

func NewFriendModule(h *handlers.FriendHandler, resolver middleware.TokenResolver, rdb *redis.Client) *FriendModule {
	return &FriendModule{Handler: h, Resolver: resolver, Redis: rdb}
}

func (m *FriendModule) Register(rg *gin.RouterGroup) {
	friends := rg.Group("/friends")
	friends.Use(middleware.Auth(m.Resolver))
	// request mutations are tighter than reads
	mutate := middleware.RateLimit(m.Redis, 30, time.Minute, middleware.KeyByUserID(), nil)
	{
		friends.GET("", m.Handler.List)
		friends.GET("/weight-logs", m.Handler.WeightLogs)
		friends.GET("/requests/received", m.Handler.Received)
		friends.GET("/requests/sent", m.Handler.Sent)
		friends.POST("/requests/:id", mutate, m.Handler.SendRequest)
		friends.PUT("/requests", mutate, m.Handler.AcceptRequest)
		friends.DELETE("/:id", mutate, m.Handler.Remove)
	}
}
