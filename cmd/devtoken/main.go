// cmd/devtoken/main.go
// Prints a signed bearer token for local testing.
//
// Usage:
//
//	JWT_SECRET=dev go run ./cmd/devtoken -sub s-1001
//	JWT_SECRET=dev go run ./cmd/devtoken -sub c-01 -role coordinator -ttl 1h
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/portalacademico/portal-backend/internal/auth"
)

func main() {
	sub := flag.String("sub", "", "subject (student or staff id)")
	role := flag.String("role", "student", "role claim")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()

	if *sub == "" {
		log.Fatal("-sub is required")
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	tok, err := auth.Sign([]byte(secret), *sub, *role, *ttl)
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	fmt.Println(tok)
}
