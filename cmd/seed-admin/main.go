// seed-admin creates (or resets the password of) a single user account. Run
// it once after the initial migration to bootstrap the first admin login.
//
// Usage: go run ./cmd/seed-admin -username admin -email admin@example.com -role admin
//
// The password is read from the SEED_PASSWORD environment variable so it never
// appears in shell history or process listings.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"stockroom/internal/db"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	username := flag.String("username", "", "login name for the account")
	email := flag.String("email", "", "email address for the account")
	role := flag.String("role", "admin", "role: member, reviewer, or admin")
	flag.Parse()

	if *username == "" || *email == "" {
		log.Fatal("both -username and -email are required")
	}
	switch *role {
	case "member", "reviewer", "admin":
	default:
		log.Fatalf("unknown role %q", *role)
	}

	_ = godotenv.Load()
	password := os.Getenv("SEED_PASSWORD")
	if password == "" {
		log.Fatal("SEED_PASSWORD environment variable not set")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, dbURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO users (username, email, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, true)
		ON CONFLICT (username) DO UPDATE
		  SET email = EXCLUDED.email,
		      password_hash = EXCLUDED.password_hash,
		      role = EXCLUDED.role,
		      is_active = true;
	`, *username, *email, string(hash), *role)
	if err != nil {
		log.Fatalf("upsert user: %v", err)
	}

	log.Printf("user %q (%s) is ready", *username, *role)
}
