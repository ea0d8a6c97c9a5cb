package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/civil"
	"github.com/joho/godotenv"

	"github.com/calcount/calcount-api/config"
	userapp "github.com/calcount/calcount-api/internal/application"
	"github.com/calcount/calcount-api/internal/bootstrap"
	"github.com/calcount/calcount-api/internal/domain/entity"
	"github.com/calcount/calcount-api/internal/infrastructure/search"
	"github.com/calcount/calcount-api/pkg/helpers"
)

const demoPassword = "password123"

var demoUsers = []userapp.RegisterInput{
	{Username: "alice", FullName: entity.FullName{FirstName: "Alice", LastName: "Smith"}, Email: "alice@example.com"},
	{Username: "bob", FullName: entity.FullName{FirstName: "Bob", LastName: "Jones"}, Email: "bob@example.com"},
	{Username: "carol", FullName: entity.FullName{FirstName: "Carol", MiddleName: "Ann", LastName: "White"}, Email: "carol@example.com"},
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)
	ctx := context.Background()

	stores, err := bootstrap.OpenStores(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer stores.Close()

	var idx *search.UserIndex
	if cfg.ElasticsearchEnabled {
		es, err := helpers.NewESClient(cfg)
		if err != nil {
			log.Fatalf("failed to init elasticsearch: %v", err)
		}
		idx = search.NewUserIndex(es, cfg.ESUsersIndex)
		if err := idx.EnsureIndex(ctx); err != nil {
			log.Fatalf("failed to prepare search index: %v", err)
		}
	}

	var searcher userapp.UserSearcher
	if idx != nil {
		searcher = idx
	}
	users := userapp.NewService(stores.Users, stores.Weights, helpers.NewJWTManager(cfg.JWTSecret), nil, logger, searcher)
	friends := userapp.NewFriendService(stores.Users, stores.Weights, nil, logger)

	ids := make(map[string]string, len(demoUsers))
	for _, in := range demoUsers {
		in.Password = demoPassword
		u, err := users.Register(ctx, in)
		if errors.Is(err, userapp.ErrUsernameTaken) || errors.Is(err, userapp.ErrEmailTaken) {
			u, err = users.GetByUsername(ctx, in.Username)
		}
		if err != nil {
			log.Fatalf("failed to seed user %s: %v", in.Username, err)
		}
		ids[u.Username] = u.ID
		fmt.Printf("seeded user: id=%s username=%s password=%s\n", u.ID, u.Username, demoPassword)
	}

	// re-runs skip Register, so make sure existing users are indexed too
	if idx != nil {
		n, err := idx.Backfill(ctx, stores.Users)
		if err != nil {
			log.Fatalf("failed to index users: %v", err)
		}
		fmt.Printf("indexed %d users\n", n)
	}

	// alice and bob are friends; carol has a pending request to alice
	step(friends.SendFriendRequest(ctx, ids["alice"], ids["bob"]), "alice -> bob request")
	step(friends.AcceptFriendRequest(ctx, ids["bob"], ids["alice"]), "bob accepts alice")
	step(friends.SendFriendRequest(ctx, ids["carol"], ids["alice"]), "carol -> alice request")

	today := civil.DateOf(time.Now())
	for name, start := range map[string]float64{"alice": 68.4, "bob": 82.0} {
		for i := 0; i < 5; i++ {
			w := start - float64(i)*0.3
			d := today.AddDays(i - 4)
			if err := users.AddWeightLogEntry(ctx, ids[name], entity.WeightLogEntry{Weight: &w, Date: &d}); err != nil {
				log.Fatalf("failed to seed weight log for %s: %v", name, err)
			}
		}
	}
	fmt.Println("seeded weight logs for alice and bob")
}

// step tolerates re-runs: an already-established relationship is not fatal.
func step(err error, what string) {
	switch {
	case err == nil:
		fmt.Println("ok:", what)
	case errors.Is(err, userapp.ErrAlreadyFriends),
		errors.Is(err, userapp.ErrDuplicateRequest),
		errors.Is(err, userapp.ErrNoRequestFound):
		fmt.Println("skipped:", what, "-", err)
	default:
		log.Fatalf("%s: %v", what, err)
	}
}
