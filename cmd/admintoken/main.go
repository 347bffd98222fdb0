package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	jwtsvc "courseledger/internal/pkg/jwt"

	"github.com/joho/godotenv"
)

// Mints an admin bearer token for the ledger read API. Tokens are issued
// out of band; there is no login endpoint.
func main() {
	email := flag.String("email", "", "operator email to embed in the token")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *email == "" {
		log.Fatal("-email is required")
	}

	_ = godotenv.Load()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is empty")
	}

	token, err := jwtsvc.New(secret, *ttl).GenerateToken(*email, "admin")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(token)
}
