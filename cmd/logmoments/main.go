package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/logmoments/internal/client/cli"
	"github.com/dmitrijs2005/logmoments/internal/client/config"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "logmoments",
		Short:         "Offline-first journal with background sync",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, os.Stdout, true, func(ctx context.Context, rt *cli.Runtime) error {
				cli.NewApp(rt).Run(ctx)
				return nil
			})
		},
	}
	config.RegisterFlags(root.PersistentFlags())
	root.AddCommand(syncCmd(), daemonCmd(), migrateCmd(), remoteMigrateCmd(), statusCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withRuntime loads the configuration from cmd's flags, opens the client
// and runs fn until it returns or the process is interrupted.
func withRuntime(cmd *cobra.Command, notices io.Writer, start bool, fn func(context.Context, *cli.Runtime) error) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := cli.NewRuntime(ctx, cfg, notices)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.Close(); cerr != nil {
			rt.Log.Warn(context.Background(), "shutdown", "error", cerr)
		}
	}()

	if err := rt.Open(ctx); err != nil {
		return err
	}
	if start {
		rt.Start(ctx)
	}
	return fn(ctx, rt)
}
