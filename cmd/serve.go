package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/roomie-matcher/internal/api"
	"github.com/spigell/roomie-matcher/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the matching API over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "address to listen on (default from server.listen)")
	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the roomie-matcher api", zap.String("version", version))

	built, err := buildComponents(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing matcher", zap.Error(err))
	}
	defer built.Close()

	server := api.NewServer(built.store, built.ranker, api.Config{
		MaxResults: config.Matching.MaxResults,
		MinScore:   config.Matching.MinScore,
		AIEnabled:  built.aiEnabled,
	}, logger)

	if err := server.ListenAndServe(ctx, config.Server.Listen); err != nil {
		logger.Error("http server stopped", zap.Error(err))
		return
	}
	logger.Info("http server stopped")
}
