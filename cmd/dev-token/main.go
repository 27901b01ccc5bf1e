// Command dev-token prints a bearer token accepted by the board host when it
// runs with AUTH0_TEST_MODE=1.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

func main() {
	var (
		audience = flag.String("aud", os.Getenv("AUTH0_AUDIENCE"), "audience claim")
		ttl      = flag.Duration("ttl", time.Hour, "token lifetime")
	)
	flag.Parse()
	_ = godotenv.Load()

	sub := "local-member"
	if args := flag.Args(); len(args) > 0 {
		sub = args[0]
	}
	tok, err := devToken(os.Getenv("TEST_JWT_SECRET"), sub, *audience, *ttl, time.Now())
	if err != nil {
		log.Fatalf("generate token: %v", err)
	}
	fmt.Print(tok)
}

func devToken(secret, sub, audience string, ttl time.Duration, now time.Time) (string, error) {
	if secret == "" {
		return "", errors.New("TEST_JWT_SECRET must be set")
	}
	if ttl <= 0 {
		return "", errors.New("ttl must be positive")
	}
	claims := jwt.MapClaims{
		"sub": sub,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if audience != "" {
		claims["aud"] = audience
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
