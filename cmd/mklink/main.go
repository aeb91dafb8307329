// mklink issues a magic link for an address against the configured database
// and prints it, skipping email delivery.
// Run: go run ./cmd/mklink -email you@example.com
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/ErlanBelekov/magic-link-auth/config"
	"github.com/ErlanBelekov/magic-link-auth/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/magic-link-auth/internal/usecase"
)

func main() {
	addr := flag.String("email", "", "address to issue a link for")
	flag.Parse()
	if *addr == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	uc := usecase.NewAuthUsecase(
		postgres.NewUserRepository(pool),
		postgres.NewMagicLinkRepository(pool),
		nil, nil, nil,
		usecase.AuthConfig{TokenTTL: cfg.TokenTTL, StoreTimeout: cfg.StoreTimeout},
		logger,
	)

	issued, err := uc.Issue(ctx, *addr)
	if err != nil {
		log.Fatalf("issue: %v", err)
	}
	link, err := usecase.BuildLink(cfg.MagicLinkBase, issued.Token)
	if err != nil {
		log.Fatalf("build link: %v", err)
	}

	fmt.Println("Magic link issued")
	fmt.Println()
	fmt.Printf("  User ID:    %s\n", issued.UserID)
	fmt.Printf("  Expires at: %s\n", issued.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("  Link:       %s\n", link)
	fmt.Println()
	fmt.Println("Redeem it with:")
	fmt.Println()
	fmt.Printf("  curl -s '%s'\n", link)
	fmt.Println("  # then: curl -s http://localhost:8080/me -H \"Authorization: Bearer $JWT\"")
}
