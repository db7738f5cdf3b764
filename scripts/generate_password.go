// scripts/generate_password.go
//
// Prints a bcrypt hash for seeding or resetting an account by hand:
//
//	go run scripts/generate_password.go [-cost 12] <password>
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/pkg/auth"
	"github.com/your-org/storefront/internal/pkg/logger"
)

func main() {
	log := logger.New(config.LoggingConfig{Level: "info", Format: "text"})

	cost := flag.Int("cost", 12, "bcrypt cost")
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatal("Usage: go run scripts/generate_password.go [-cost 12] <password>")
	}
	password := flag.Arg(0)

	passwords := auth.NewPasswordManager(&config.Config{Security: config.SecurityConfig{BcryptCost: *cost}})

	hash, err := passwords.HashPassword(password)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}
	if err := passwords.VerifyPassword(password, hash); err != nil {
		log.Fatalf("Hash verification failed: %v", err)
	}

	fmt.Fprintln(os.Stdout, hash)
}
