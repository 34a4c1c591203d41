// Command devtoken prints a signed access token for local testing of the
// admin endpoints.  Production tokens come from the auth provider that
// shares JWT_SECRET with the API.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/iliyamo/condo-water-billing/internal/config"
	"github.com/iliyamo/condo-water-billing/internal/utils"
)

func main() {
	sub := flag.String("sub", "dev-admin", "token subject (user id)")
	role := flag.String("role", "ADMIN", "role claim")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("load .env: %v", err)
	}
	tok, err := utils.NewAccessToken(os.Getenv("JWT_SECRET"), *sub, *role, *ttl)
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	fmt.Println(tok.Token)
	fmt.Fprintf(os.Stderr, "expires %s\n", tok.Exp.Format(time.RFC3339))
}
