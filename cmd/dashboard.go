package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/talentscout/screener/internal/dashboard"
	"github.com/talentscout/screener/internal/logger"
	"github.com/talentscout/screener/internal/store"
)

const shutdownGrace = 10 * time.Second

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Serve the read-only manager dashboard over HTTP",
	Run: func(cmd *cobra.Command, _ []string) {
		runDashboard(cmd)
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)

	dashboardCmd.Flags().StringP("addr", "a", "", "listen address (default :8080)")
	viper.BindPFlag("dashboard.addr", dashboardCmd.Flags().Lookup("addr"))
}

func runDashboard(_ *cobra.Command) {
	log0, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		log0.Fatal("getting a config", zap.Error(err))
	}

	path := databasePath(config)
	st, err := store.Open(path)
	if err != nil {
		log0.Fatal("opening the database", zap.Error(err),
			zap.String("path", path),
			zap.String("hint", "run 'screener init' first"))
	}
	defer st.Close()

	addr := viper.GetString("dashboard.addr")
	if config != nil && config.Dashboard != nil && config.Dashboard.Addr != "" {
		addr = config.Dashboard.Addr
	}

	server := dashboard.New(st, log0)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() {
		errs <- server.Start(addr)
	}()

	select {
	case <-ctx.Done():
		log0.Info("shutting down the dashboard")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log0.Error("shutdown failed", zap.Error(err))
		}
	case err := <-errs:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log0.Fatal("dashboard server failed", zap.Error(err))
		}
	}
}
