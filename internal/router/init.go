package router

import (
	"context"

	appuser "github.com/calcount/calcount-api/internal/application"
	"github.com/calcount/calcount-api/internal/container"
	"github.com/calcount/calcount-api/internal/infrastructure/search"
	handlers "github.com/calcount/calcount-api/internal/interface/http"
	"github.com/calcount/calcount-api/internal/router/modules"
)

type ModuleDeps struct {
	Users   *appuser.Service
	Friends *appuser.FriendService

	Auth   *handlers.AuthHandler
	User   *handlers.UserHandler
	Friend *handlers.FriendHandler
}

func buildDeps() ModuleDeps {
	cfg := container.GetConfig()
	logger := container.GetLogger()

	var searcher appuser.UserSearcher
	if es := container.GetES(); es != nil {
		searcher = search.NewUserIndex(es, cfg.ESUsersIndex)
	}

	users := appuser.NewService(
		container.GetUserRepo(),
		container.GetWeightRepo(),
		container.GetJWT(),
		container.GetRedis(),
		logger,
		searcher,
	)

	var notifier appuser.Notifier
	if pub := container.GetPublisher(); pub != nil {
		notifier = appuser.NewQueueNotifier(pub, cfg, logger)
	}
	friends := appuser.NewFriendService(container.GetUserRepo(), container.GetWeightRepo(), notifier, logger)

	return ModuleDeps{
		Users:   users,
		Friends: friends,
		Auth:    handlers.NewAuthHandler(users, logger, cfg.CookieDomain, cfg.CookieSecure),
		User:    handlers.NewUserHandler(users, logger),
		Friend:  handlers.NewFriendHandler(friends, logger),
	}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	deps := buildDeps()
	rdb := container.GetRedis()

	debug := modules.NewDebugModule(r.Engine, container.GetConfig().DebugMetricsEnabled)
	debug.Logger = container.GetLogger()
	if pool := container.GetPGPool(); pool != nil {
		debug.WithCheck("postgres", pool.Ping)
	}
	if mc := container.GetMongo(); mc != nil {
		debug.WithCheck("mongo", func(ctx context.Context) error { return mc.Ping(ctx, nil) })
	}
	if rdb != nil {
		debug.WithCheck("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}
	r.Add(debug)
	r.Add(modules.NewAuthModule(deps.Auth, deps.Users, rdb))
	r.Add(modules.NewUserModule(deps.User, deps.Users, rdb))
	r.Add(modules.NewFriendModule(deps.Friend, deps.Users, rdb))
}
