// Command tokengen mints a custody access token for local development.
//
//	JWT_SIGNING_KEY=dev go run ./cmd/tokengen -issuer OrgA -subject Alice -role evidence_collector
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"chainguard/internal/identity"
	"chainguard/internal/platform/config"
	"chainguard/pkg/domain"
)

func main() {
	issuer := flag.String("issuer", "", "issuing organisation (no colons)")
	subject := flag.String("subject", "", "subject within the issuer")
	role := flag.String("role", "", "custody role; empty for a role-less identity")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	r := domain.Role(*role)
	if *role != "" && !r.Known() {
		fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
		os.Exit(2)
	}

	cfg := config.FromEnv()
	tokens := identity.NewTokenService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTAudience)
	token, err := tokens.IssueToken(domain.Identity{Issuer: *issuer, Subject: *subject, Role: r}, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
}
