package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type reconcileCmd struct{}

func (*reconcileCmd) Name() string     { return "reconcile" }
func (*reconcileCmd) Synopsis() string { return "resum every product's stock from its batches" }
func (*reconcileCmd) Usage() string {
	return `inventoryctl reconcile

  Recomputes currentStock from the remaining quantity of each product's
  batches and prints every product that had drifted.
`
}

func (*reconcileCmd) SetFlags(f *flag.FlagSet) {}

func (*reconcileCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	svc, err := openServices(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer svc.close()

	drifts, err := svc.inventory.Reconcile(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if len(drifts) == 0 {
		fmt.Println("all products match their batches")
		return subcommands.ExitSuccess
	}
	for _, d := range drifts {
		fmt.Printf("%s (%d): %d -> %d\n", d.ProductName, d.ProductID, d.CachedStock, d.BatchStock)
	}
	return subcommands.ExitSuccess
}
