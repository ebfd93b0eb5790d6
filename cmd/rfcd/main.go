// Command rfcd runs a standalone RFC runtime process: it serves the
// authenticated RFC endpoint, executes registered operations, and answers a
// development-mode peer. Configuration comes from GZ_-prefixed environment
// variables; the shared secret is required and the daemon refuses to start
// without one.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GaryOcean428/gary-zero-sub006/config"
	"github.com/GaryOcean428/gary-zero-sub006/dispatch"
	"github.com/GaryOcean428/gary-zero-sub006/middleware"
	"github.com/GaryOcean428/gary-zero-sub006/registry"
	"github.com/GaryOcean428/gary-zero-sub006/server"
)

const version = "0.1.0"

const shutdownGrace = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rfcd",
		Short:         "RFC runtime process daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var (
		listenAddr    string
		advertiseAddr string
		etcdEndpoints []string
		rateLimit     float64
		rateBurst     int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the RFC endpoint until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}

			log, err := zap.NewProduction()
			if err != nil {
				return err
			}
			defer log.Sync()

			srv, err := server.New(cfg, builtinOperations(cfg), server.WithLogger(log))
			if err != nil {
				return err
			}
			srv.Use(middleware.Logging(log))
			srv.Use(middleware.Recover(log))
			srv.Use(middleware.RateLimit(rateLimit, rateBurst))

			var reg registry.Registry
			if len(etcdEndpoints) > 0 {
				etcdReg, err := registry.NewEtcdRegistry(etcdEndpoints)
				if err != nil {
					return err
				}
				defer etcdReg.Close()
				reg = etcdReg
			}

			if listenAddr == "" {
				listenAddr = cfg.ListenAddr()
			}
			if advertiseAddr == "" {
				advertiseAddr = listenAddr
			}

			// Shut down cleanly on SIGINT/SIGTERM: withdraw from discovery
			// first, then drain in-flight calls.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				log.Info("shutting down", zap.Duration("grace", shutdownGrace))
				if err := srv.Shutdown(shutdownGrace); err != nil {
					log.Warn("shutdown incomplete", zap.Error(err))
				}
			}()

			return srv.Serve(listenAddr, advertiseAddr, reg)
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (default from GZ_HOST/GZ_PORT)")
	cmd.Flags().StringVar(&advertiseAddr, "advertise", "", "address announced in discovery (default --listen)")
	cmd.Flags().StringSliceVar(&etcdEndpoints, "etcd", nil, "etcd endpoints for discovery; empty disables announcement")
	cmd.Flags().Float64Var(&rateLimit, "rate", 50, "calls per second before rate limiting")
	cmd.Flags().IntVar(&rateBurst, "burst", 100, "rate limit burst size")
	return cmd
}

// builtinOperations is the daemon's own closed operation set. Applications
// embedding the server register their privileged operations the same way;
// these three exist so a freshly deployed runtime can be probed end to end.
func builtinOperations(cfg *config.Config) *dispatch.Registry {
	ops := dispatch.NewRegistry()

	ops.MustRegister(dispatch.Sync("runtime", "ping",
		func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
			return "pong", nil
		}))

	ops.MustRegister(dispatch.Sync("runtime", "echo",
		func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
			return map[string]any{"args": args, "kwargs": kwargs}, nil
		}))

	ops.MustRegister(dispatch.Sync("runtime", "info",
		func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
			return map[string]any{
				"version": version,
				"mode":    string(cfg.Mode()),
			}, nil
		}))

	return ops
}
