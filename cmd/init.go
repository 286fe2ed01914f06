package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/talentscout/screener/internal/logger"
	"github.com/talentscout/screener/internal/store"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database schema",
	Run: func(cmd *cobra.Command, _ []string) {
		runInit(cmd)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().Bool("force", false, "drop and recreate existing tables, destroying all stored data")
}

func runInit(cmd *cobra.Command) {
	log0, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		log0.Fatal("getting a config", zap.Error(err))
	}

	path := databasePath(config)
	force, _ := cmd.Flags().GetBool("force")

	st, err := store.Open(path)
	if err != nil {
		log0.Fatal("opening the database", zap.Error(err), zap.String("path", path))
	}
	defer st.Close()

	outcome, err := st.Init(context.Background(), force)
	if err != nil {
		log0.Fatal("initializing the schema", zap.Error(err))
	}

	switch outcome {
	case store.SchemaExists:
		log0.Info("schema already exists, nothing to do",
			zap.String("path", path),
			zap.String("hint", "pass --force to drop and recreate it"))
	case store.SchemaRecreated:
		log0.Warn("schema recreated, previous data destroyed", zap.String("path", path))
	default:
		log0.Info("schema created", zap.String("path", path))
	}
}

func databasePath(config *Config) string {
	if config != nil && config.Database != nil && config.Database.Path != "" {
		return config.Database.Path
	}
	return viper.GetString("database.path")
}
