package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/buzzn/myBuzzn-backend-sub000/internal/auth"
)

func main() {
	userID := flag.String("user", "", "user id placed in the user_id claim")
	role := flag.String("role", string(auth.RoleUser), "user, employee or admin")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	secret := flag.String("secret", os.Getenv("AUTH_JWT_SECRET"), "HS256 secret")
	flag.Parse()

	if *secret == "" {
		log.Fatal("AUTH_JWT_SECRET or -secret is required")
	}
	normalized, ok := auth.NormalizeRole(*role)
	if !ok {
		log.Fatalf("invalid role %q", *role)
	}
	token, err := auth.IssueJWT(*userID, normalized, *ttl, []byte(*secret))
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Println(token)
}
