package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fekuna/omnipos-inventory-service/config"
	"github.com/fekuna/omnipos-inventory-service/internal/auth"
	"github.com/google/subcommands"
)

type tokenCmd struct {
	userID int64
	role   string
	ttl    time.Duration
}

func (*tokenCmd) Name() string     { return "token" }
func (*tokenCmd) Synopsis() string { return "issue a bearer token for the HTTP API" }
func (*tokenCmd) Usage() string {
	return `inventoryctl token -user <id> [-role <role>] [-ttl <duration>]

  Signs a token with JWT_SECRET_KEY. The user id ends up on every stock
  transaction and order the caller records.
`
}

func (c *tokenCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.userID, "user", 0, "user id carried by the token")
	f.StringVar(&c.role, "role", "staff", "role carried by the token")
	f.DurationVar(&c.ttl, "ttl", 0, "token lifetime (defaults to JWT_TOKEN_TTL)")
}

func (c *tokenCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.userID <= 0 {
		fmt.Fprintln(os.Stderr, "-user is required")
		f.Usage()
		return subcommands.ExitUsageError
	}

	cfg := config.LoadEnv()
	ttl := c.ttl
	if ttl <= 0 {
		ttl = cfg.JWT.TokenTTL
	}

	token, err := auth.GenerateToken(cfg.JWT.SecretKey, c.userID, c.role, ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Println(token)
	return subcommands.ExitSuccess
}
