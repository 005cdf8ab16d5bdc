package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/roomie-matcher/internal/ai/cache"
)

const (
	app = "roomie-matcher"
)

type Config struct {
	Profiles *ProfilesConfig `mapstructure:"profiles"`
	Matching *MatchingConfig `mapstructure:"matching"`
	AI       *AIConfig       `mapstructure:"ai"`
	Server   *ServerConfig   `mapstructure:"server"`
}

type ProfilesConfig struct {
	Driver      string `mapstructure:"driver"`
	Path        string `mapstructure:"path"`
	DismissFile string `mapstructure:"dismiss-file"`
}

type MatchingConfig struct {
	MaxResults  int     `mapstructure:"max-results"`
	MinScore    float64 `mapstructure:"min-score"`
	Concurrency int     `mapstructure:"concurrency"`

	// DisabledFilters names candidate filters to skip, e.g. "dismissed".
	DisabledFilters []string `mapstructure:"disabled-filters"`
}

type AIConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Provider     string        `mapstructure:"provider"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxLogLength int           `mapstructure:"max-log-length"`
	Gemini       *GeminiConfig `mapstructure:"gemini"`
	Cache        *CacheConfig  `mapstructure:"cache"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
}

type CacheConfig struct {
	Driver string            `mapstructure:"driver"`
	TTL    time.Duration     `mapstructure:"ttl"`
	Redis  cache.RedisConfig `mapstructure:"redis"`
}

type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "roomie-matcher scores roommate compatibility and ranks candidate matches",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	setDefaults(viper.GetViper())

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is roomie-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("profiles.driver", "file")
	v.SetDefault("profiles.path", "profiles.json")
	v.SetDefault("profiles.dismiss-file", "dismissed.json")

	v.SetDefault("matching.max-results", 10)
	v.SetDefault("matching.min-score", 60)
	v.SetDefault("matching.concurrency", 4)

	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.timeout", "15s")
	v.SetDefault("ai.max-log-length", 200)
	v.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	v.SetDefault("ai.cache.driver", cache.DriverNone)
	v.SetDefault("ai.cache.ttl", "24h")

	v.SetDefault("server.listen", ":8080")
}

func initConfig() {
	// .env is optional; values already in the environment win.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	// Every key has a default, so only an explicit or broken config is fatal.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
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
