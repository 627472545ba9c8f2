package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/fekuna/omnipos-inventory-service/config"
	"github.com/fekuna/omnipos-inventory-service/internal/database"
	"github.com/google/subcommands"
)

type migrateCmd struct{}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "create the inventory tables if they are missing" }
func (*migrateCmd) Usage() string {
	return `inventoryctl migrate

  Applies the embedded schema. Every statement is idempotent, so running it
  against an up-to-date database changes nothing.
`
}

func (*migrateCmd) SetFlags(f *flag.FlagSet) {}

func (*migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg := config.LoadEnv()
	db, err := openDB(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("schema applied to %s\n", cfg.Postgres.DBName)
	return subcommands.ExitSuccess
}
