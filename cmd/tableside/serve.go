package main

import (
	"log/slog"

	"github.com/Veraticus/tableside/internal/api"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the turn API over HTTP",
		Long: `Start the HTTP channel adapter.

POST /v1/turns handles one utterance; the response carries the session
attributes the channel must send back with the next turn. GET /healthz
reports liveness and the metrics path exposes Prometheus counters.`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "listen address (default from server.addr)")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := slog.Default()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	a.matcher.Start(ctx)

	router := api.NewRouter(a.orchestrator, api.Options{
		Metrics:     a.metrics.Handler(),
		MetricsPath: cfg.Server.MetricsPath,
	}, logger)

	slog.Info("Serving turns",
		"addr", cfg.Server.Addr,
		"restaurant", cfg.Restaurant.Name,
		"llm", cfg.LLM.Provider,
		"policy", cfg.Recommend.Policy)

	return api.Serve(ctx, cfg.Server.Addr, router, logger)
}
