package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/insightforge/company-intel/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the analysis API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		// Terminal job records are only useful while a client might still
		// poll them; sweep old ones periodically.
		if evictAfter := cfg.Jobs.EvictAfter(); evictAfter > 0 {
			go func() {
				ticker := time.NewTicker(time.Hour)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
					}
					n, err := env.Orch.Evict(ctx, evictAfter)
					if err != nil {
						zap.L().Warn("job eviction failed", zap.Error(err))
						continue
					}
					if n > 0 {
						zap.L().Info("evicted terminal jobs", zap.Int("count", n))
					}
				}
			}()
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		return server.New(env.Orch, env.Store, port).Start(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
