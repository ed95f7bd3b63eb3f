package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/omarabozied5/zonak-sub000/internal/api"
	"github.com/omarabozied5/zonak-sub000/internal/config"
	"github.com/omarabozied5/zonak-sub000/internal/identity"
	"github.com/omarabozied5/zonak-sub000/internal/orders"
	"github.com/omarabozied5/zonak-sub000/internal/registry"
	"github.com/omarabozied5/zonak-sub000/internal/storage"
)

// orderstate runs the order-lifecycle subsystem headless: it resolves an
// identity from SESSION_TOKEN, polls the marketplace for that identity's
// current orders and logs every status transition until interrupted.
func main() {
	cfg := config.Load()
	ctx := context.Background()

	backend := pickBackend(ctx, cfg)

	id := identity.Guest
	if token := os.Getenv("SESSION_TOKEN"); token != "" {
		resolved, err := identity.FromSessionToken(token, cfg.JWTSecret)
		if err != nil {
			log.Fatalf("Invalid session token: %v", err)
		}
		id = resolved
		log.Printf("Resolved identity %s", id.UserID())
	} else {
		log.Println("No SESSION_TOKEN, running as guest")
	}

	client := api.NewClient(cfg.APIBaseURL, os.Getenv("SESSION_TOKEN"))
	reg := registry.New(backend, client, cfg)
	reg.StartSweeper(ctx)

	store := reg.Orders(ctx, id)
	unsubscribe := store.Subscribe(func() {
		for _, o := range store.Active() {
			log.Printf("order %s: %s", o.ID, o.Status)
		}
	})
	defer unsubscribe()

	poller := orders.NewPoller(store, cfg)
	poller.Start(ctx)
	defer poller.Stop()

	log.Printf("Polling %s for current orders", cfg.APIBaseURL)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("Shutting down")
}

// pickBackend chooses the durable layer: MongoDB when MONGO_URI is set,
// Redis otherwise, in-memory only on explicit request.
func pickBackend(ctx context.Context, cfg config.Config) storage.Backend {
	if os.Getenv("STORAGE") == "memory" {
		log.Println("Using in-memory storage")
		return storage.NewMemoryBackend()
	}

	if cfg.MongoURI != "" {
		db, err := storage.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		log.Printf("Connected to MongoDB at %s", cfg.MongoURI)
		return storage.NewMongoBackend(db)
	}

	redisClient := config.MustInitRedis(cfg)
	log.Println("Redis ping succeeded")
	return storage.NewRedisBackend(redisClient)
}
