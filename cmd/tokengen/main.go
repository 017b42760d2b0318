package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// tokengen mints a session token for local testing, so the protected
// endpoints can be exercised with curl without a login flow.
func main() {
	secret := flag.String("secret", "very-secure-jwt-secret", "Secret key for signing the token")
	issuer := flag.String("issuer", "tasknest", "Issuer of the token")
	audience := flag.String("audience", "tasknest", "Audience of the token")
	userID := flag.String("user-id", "", "Account ID to embed (defaults to a random UUID)")
	email := flag.String("email", "dev@example.com", "Email claim")
	verified := flag.Bool("verified", false, "Set the email_verified claim")
	expiry := flag.Duration("expiry", 30*time.Minute, "Token expiry duration (e.g., 30m, 1h, 24h)")
	outputFormat := flag.String("format", "compact", "Output format: compact or debug")
	flag.Parse()

	id := *userID
	if id == "" {
		id = uuid.New().String()
	} else if _, err := uuid.Parse(id); err != nil {
		fmt.Fprintf(os.Stderr, "Error: -user-id must be a UUID: %v\n", err)
		os.Exit(1)
	}

	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"iss":            *issuer,
		"aud":            *audience,
		"sub":            id,
		"iat":            now.Unix(),
		"exp":            now.Add(*expiry).Unix(),
		"user_id":        id,
		"email":          *email,
		"email_verified": *verified,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString([]byte(*secret))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to sign token: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "compact":
		fmt.Println(tokenStr)
	case "debug":
		fmt.Printf("=== Token ===\n%s\n\n=== Claims ===\n", tokenStr)
		claimsJSON, _ := json.MarshalIndent(claims, "", "  ")
		fmt.Printf("%s\n\nExpires: %s\n", claimsJSON, now.Add(*expiry).Format(time.RFC3339))
	default:
		fmt.Fprintf(os.Stderr, "Error: Unknown output format: %s\n", *outputFormat)
		os.Exit(1)
	}
}
