// Command issue-token mints a bearer token for the gateway or an operator.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/spec-kit/support-bot/internal/auth"
	"github.com/spec-kit/support-bot/internal/config"
	"github.com/spec-kit/support-bot/internal/domain"
)

func main() {
	subject := flag.String("subject", "gateway", "subject id placed in the token")
	kind := flag.String("kind", string(domain.SubjectTypeGateway), "GATEWAY or OPERATOR")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	subjectType := domain.SubjectType(strings.ToUpper(*kind))
	if subjectType != domain.SubjectTypeGateway && subjectType != domain.SubjectTypeOperator {
		log.Fatalf("unknown kind %q", *kind)
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	token, expiresAt, err := tokens.GenerateToken(*subject, subjectType)
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	fmt.Println(token)
	log.Printf("expires at %s", expiresAt.Format("2006-01-02 15:04:05 MST"))
}
