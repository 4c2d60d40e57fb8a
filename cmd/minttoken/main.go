// Command minttoken issues a bearer token for the mint endpoint, signed with
// the server's key from the environment. Operators run it instead of
// hand-rolling a signer:
//
//	WHALED_JWT_SIGNING_KEY=... minttoken -subject ops@example.com -ttl 24h
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"whaled/internal/minttoken"
	"whaled/internal/platform/config"
)

func main() {
	subject := flag.String("subject", "", "token subject, recorded as the audit actor (required)")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	if err := run(*subject, *ttl); err != nil {
		fmt.Fprintf(os.Stderr, "minttoken: %v\n", err)
		os.Exit(1)
	}
}

func run(subject string, ttl time.Duration) error {
	if subject == "" {
		return fmt.Errorf("-subject is required")
	}
	if ttl <= 0 {
		return fmt.Errorf("-ttl must be positive")
	}

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	token, err := minttoken.NewService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer).
		GenerateMinterToken(subject, ttl)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}

	fmt.Println(token)
	return nil
}
