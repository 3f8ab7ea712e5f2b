package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/tutorlink/tutorlink-utils-tokenx"
)

type config struct {
	Secret   string        `env:"TUTORLINK_JWT_SECRET"`
	Issuer   string        `env:"TUTORLINK_JWT_ISSUER"`
	Audience string        `env:"TUTORLINK_JWT_AUDIENCE"`
	TTL      time.Duration `env:"TUTORLINK_DEV_TOKEN_TTL" envDefault:"1h"`
}

func main() {
	envPath := ".env"
	if path := os.Getenv("TOKENX_ENV_FILE"); path != "" {
		envPath = path
	}
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("warning: load %s: %v", envPath, err)
	}

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("parse env: %v", err)
	}

	dev := tokenx.DefaultDevBypassClaims("")
	role := flag.String("role", dev.Role, "Role claim (admin, center, staff, parent, ...)")
	userID := flag.String("user-id", dev.UserID, "UserId claim")
	name := flag.String("name", dev.Name, "UserName claim")
	email := flag.String("email", dev.Email, "Email claim")
	phone := flag.String("phone", "", "PhoneNumber claim")
	secret := flag.String("secret", cfg.Secret, "HMAC secret; empty mints an unsigned token (env TUTORLINK_JWT_SECRET)")
	issuer := flag.String("issuer", cfg.Issuer, "iss claim (env TUTORLINK_JWT_ISSUER)")
	audience := flag.String("audience", cfg.Audience, "aud claim (env TUTORLINK_JWT_AUDIENCE)")
	ttl := flag.Duration("ttl", cfg.TTL, "Token lifetime")
	flag.Parse()

	claims := tokenx.DevBypassClaims{
		UserID:      *userID,
		Name:        *name,
		Email:       *email,
		Role:        *role,
		PhoneNumber: *phone,
	}.Claims()

	now := time.Now()
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(*ttl).Unix()
	if *issuer != "" {
		claims["iss"] = *issuer
	}
	if *audience != "" {
		claims["aud"] = *audience
	}

	var (
		token string
		err   error
	)
	if *secret != "" {
		token, err = tokenx.SignHS256(claims, *secret)
	} else {
		log.Println("no secret configured; minting unsigned token")
		token, err = tokenx.EncodeUnsigned(claims)
	}
	if err != nil {
		log.Fatalf("mint token: %v", err)
	}
	fmt.Println(token)
}
