package cmd

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "screener"
)

type Config struct {
	Database  *DatabaseConfig  `mapstructure:"database"`
	Interview *InterviewConfig `mapstructure:"interview"`
	AI        *AIConfig        `mapstructure:"ai"`
	Dashboard *DashboardConfig `mapstructure:"dashboard"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type InterviewConfig struct {
	// Catalog points to a YAML question catalog. Empty means the built-in
	// catalog.
	Catalog string `mapstructure:"catalog"`
	// TechnicalQuestions overrides how many technical questions are asked.
	// Zero keeps the default.
	TechnicalQuestions int `mapstructure:"technical-questions"`
}

type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type DashboardConfig struct {
	Addr string `mapstructure:"addr"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "screener is a cli for running scripted candidate screening interviews",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("database.path", "SCREENER_DB"); err != nil {
		log.Fatalf("binding SCREENER_DB environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is screener.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// A .env file is optional; absence is not an error.
	_ = godotenv.Load()

	viper.SetDefault("database.path", app+".db")
	viper.SetDefault("dashboard.addr", ":8080")
	viper.SetDefault("ai.gemini.model", "gemini-2.5-flash")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// The config file is optional, but one that exists and fails to parse
	// is fatal.
	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
