package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dmitrijs2005/logmoments/internal/client/cli"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, os.Stdout, false, func(ctx context.Context, rt *cli.Runtime) error {
				if err := rt.Monitor.Initialize(ctx); err != nil {
					rt.Log.Warn(ctx, "connectivity monitor degraded", "error", err)
				}
				res := rt.Scheduler.SyncNow(ctx)
				fmt.Fprintln(cmd.OutOrStdout(), res.String())
				if res.Reason != nil {
					return res.Reason
				}
				return nil
			})
		},
	}
}

// daemonCmd keeps the scheduler running without a REPL. SIGHUP asks for a
// foreground sync.
func daemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Sync in the background until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, nil, true, func(ctx context.Context, rt *cli.Runtime) error {
				rt.Log.Info(ctx, "daemon started", "data_dir", rt.Config.DataDir, "remote", rt.Config.RemoteBackend)

				hup := make(chan os.Signal, 1)
				signal.Notify(hup, syscall.SIGHUP)
				defer signal.Stop(hup)

				g, gctx := errgroup.WithContext(ctx)
				g.Go(func() error {
					for {
						select {
						case <-gctx.Done():
							return nil
						case <-hup:
							rt.Scheduler.Foreground(gctx)
						}
					}
				})
				g.Go(func() error {
					<-gctx.Done()
					rt.Log.Info(context.Background(), "daemon stopping")
					return nil
				})
				return g.Wait()
			})
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply local schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, nil, false, func(ctx context.Context, rt *cli.Runtime) error {
				v, err := rt.Store.Version(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "local schema at version %d\n", v)
				return nil
			})
		},
	}
}

func remoteMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remote-migrate",
		Short: "Apply the remote Postgres schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, nil, false, func(ctx context.Context, rt *cli.Runtime) error {
				if err := rt.RemoteMigrate(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "remote schema up to date")
				return nil
			})
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show local store and sync diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, nil, false, func(ctx context.Context, rt *cli.Runtime) error {
				out := cmd.OutOrStdout()
				st, err := rt.Store.Status(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "database:     %s (open=%v, schema v%d, %d moments)\n", st.Path, st.Open, st.Version, st.MomentCount)
				for _, t := range st.Tables {
					fmt.Fprintf(out, "  %-20s %s\n", t.Name, strings.Join(t.Indexes, ", "))
				}
				fmt.Fprintf(out, "remote:       %s\n", orNone(rt.Config.RemoteBackend))
				fmt.Fprintf(out, "storage mode: %s\n", rt.Engine.StorageMode(ctx))
				last := "never"
				if t, err := rt.Engine.LastSynced(ctx); err == nil && t != nil {
					last = t.Local().Format(time.DateTime)
				}
				fmt.Fprintf(out, "last synced:  %s\n", last)
				if staged, err := rt.Staging.GetUnsyncedMoments(ctx); err == nil {
					fmt.Fprintf(out, "staged:       %d\n", len(staged))
				}
				return nil
			})
		},
	}
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
