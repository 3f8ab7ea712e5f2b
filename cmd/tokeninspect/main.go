package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/tutorlink/tutorlink-utils-tokenx"
)

type config struct {
	Token    string        `env:"TUTORLINK_TOKEN"`
	Secret   string        `env:"TUTORLINK_JWT_SECRET"`
	JWKSURL  string        `env:"TUTORLINK_JWKS_URL"`
	Issuer   string        `env:"TUTORLINK_JWT_ISSUER"`
	Audience string        `env:"TUTORLINK_JWT_AUDIENCE"`
	Timeout  time.Duration `env:"TUTORLINK_TIMEOUT" envDefault:"5s"`
}

func main() {
	envPath := defaultEnvPath()
	if err := loadEnvFile(envPath); err != nil {
		log.Printf("warning: load %s: %v", envPath, err)
	}

	cfg, err := env.ParseAs[config]()
	if err != nil {
		log.Fatalf("parse env: %v", err)
	}

	token := flag.String("token", cfg.Token, "Token to inspect (env TUTORLINK_TOKEN); may also be the first argument")
	verify := flag.Bool("verify", false, "Verify the signature before printing")
	secret := flag.String("secret", cfg.Secret, "HMAC secret (env TUTORLINK_JWT_SECRET)")
	jwksURL := flag.String("jwks-url", cfg.JWKSURL, "JWKS URL (env TUTORLINK_JWKS_URL)")
	issuer := flag.String("issuer", cfg.Issuer, "Expected issuer (env TUTORLINK_JWT_ISSUER)")
	audience := flag.String("audience", cfg.Audience, "Expected audience (env TUTORLINK_JWT_AUDIENCE)")
	timeout := flag.Duration("timeout", cfg.Timeout, "Timeout for key fetches")
	flag.Parse()

	if *token == "" && flag.NArg() > 0 {
		*token = flag.Arg(0)
	}
	*token = strings.TrimSpace(*token)
	if *token == "" {
		flag.Usage()
		log.Fatal("token is required (via flag, argument, .env, or environment variables)")
	}

	if !*verify {
		claims, err := tokenx.ParseClaims(*token)
		if err != nil {
			log.Fatalf("decode failed: %v", err)
		}
		printIdentity(tokenx.DefaultReader().IdentityFromClaims(claims), false)
		return
	}

	verifier, err := tokenx.NewVerifier(tokenx.VerifierConfig{
		Issuers: []tokenx.IssuerConfig{{
			Name:        "tutorlink",
			Secret:      *secret,
			JWKSURL:     *jwksURL,
			Issuer:      *issuer,
			Audience:    *audience,
			HTTPTimeout: *timeout,
		}},
	})
	if err != nil {
		log.Fatalf("create verifier: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := verifier.Warmup(ctx, "tutorlink"); err != nil {
		log.Printf("warmup warning: %v", err)
	}

	identity, err := verifier.Verify(ctx, *token, "tutorlink")
	if err != nil {
		log.Fatalf("verification failed: %v", err)
	}
	printIdentity(identity, true)
}

func printIdentity(identity *tokenx.Identity, verified bool) {
	if verified {
		fmt.Println("== TutorLink Token Verified ==")
	} else {
		fmt.Println("== TutorLink Token (signature not verified) ==")
	}
	fmt.Printf("role         : %s\n", identity.Role)
	printClaim("id", identity.ID)
	printClaim("name", identity.Name)
	printClaim("email", identity.Email)
	printClaim("phone_number", identity.PhoneNumber)
	if exp, ok := identity.Raw["exp"].(float64); ok {
		fmt.Printf("expires_at   : %s\n", time.Unix(int64(exp), 0).UTC().Format(time.RFC3339))
	}
	if len(identity.Raw) > 0 {
		fmt.Println("raw_claims:")
		for _, k := range slices.Sorted(maps.Keys(identity.Raw)) {
			fmt.Printf("  %s: %v\n", k, identity.Raw[k])
		}
	}
}

func printClaim(label string, claim tokenx.Claim) {
	switch {
	case !claim.Present:
		fmt.Printf("%-13s: <absent>\n", label)
	case claim.IsNull():
		fmt.Printf("%-13s: <null>\n", label)
	default:
		fmt.Printf("%-13s: %s\n", label, claim.String())
	}
}

func defaultEnvPath() string {
	if path := os.Getenv("TOKENX_ENV_FILE"); path != "" {
		return path
	}
	return ".env"
}

// loadEnvFile loads path without overriding variables already set.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
