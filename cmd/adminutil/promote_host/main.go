package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/sudo-init-do/staybook/internal/admin"
	"github.com/sudo-init-do/staybook/internal/app"
	"github.com/sudo-init-do/staybook/internal/config"
	"github.com/sudo-init-do/staybook/internal/domain"
)

// promote_host sets a user's role to 'host' by email so they can publish listings.
// Usage:
//
//	go run cmd/adminutil/promote_host/main.go -email user@example.com
func main() {
	email := flag.String("email", "", "Email of the user to promote to host")
	flag.Parse()

	if *email == "" {
		log.Fatalf("usage: go run cmd/adminutil/promote_host/main.go -email user@example.com")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if err := app.RequireSharedStore(cfg); err != nil {
		log.Fatalf("%v", err)
	}

	ctx := context.Background()
	st, closeStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer closeStore()

	u, err := admin.NewService(st, nil).SetRole(ctx, *email, domain.RoleHost)
	if err != nil {
		log.Fatalf("failed to promote %s to host: %v", *email, err)
	}

	fmt.Printf("User %s (%s) promoted to host.\n", u.Email, u.ID)
}
