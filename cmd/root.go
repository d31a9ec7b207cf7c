package cmd

import (
	"errors"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/job-matcher/internal/matching"
)

const (
	app = "job-matcher"
)

type Config struct {
	Resume        string           `mapstructure:"resume"`
	Jobs          string           `mapstructure:"jobs"`
	JobsTokenFile string           `mapstructure:"jobs-token-file"`
	ExcludeFile   string           `mapstructure:"exclude-file"`
	Filters       *FiltersConfig   `mapstructure:"filters"`
	Matching      *matching.Config `mapstructure:"matching"`
	AI            *AIConfig        `mapstructure:"ai"`
}

type FiltersConfig struct {
	Categories []string `mapstructure:"categories"`
	MaxAgeDays int      `mapstructure:"max-age-days"`
}

type AIConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Provider        string        `mapstructure:"provider"`
	Top             int           `mapstructure:"top"`
	MinimumFitScore float64       `mapstructure:"minimum-fit-score"`
	Instructions    string        `mapstructure:"instructions"`
	Gemini          *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile        string `mapstructure:"api-key-file"`
	Model             string `mapstructure:"model"`
	MaxRetries        int    `mapstructure:"max-retries"`
	MaxLogLength      int    `mapstructure:"max-log-length"`
	RequestsPerMinute int    `mapstructure:"requests-per-minute"`
	BreakerFailures   int    `mapstructure:"breaker-failures"`
}

const defaultAITop = 5

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "job-matcher ranks job postings against a parsed resume",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("jobs-token-file", "JOB_MATCHER_TOKEN_FILE"); err != nil {
		log.Fatalf("binding JOB_MATCHER_TOKEN_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is job-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Secrets such as GEMINI_API_KEY_FILE may live in a .env file.
	_ = godotenv.Load()

	// Config needed only for match command. Other commands skip it.
	if matchCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// Flags alone are enough when there is no default config file.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	defaults := matching.DefaultConfig()
	// Keyword overrides are merged into the built-in table later.
	defaults.CategoryKeywords = nil

	config := &Config{
		Filters:  &FiltersConfig{},
		Matching: &defaults,
		AI:       &AIConfig{Top: defaultAITop, Gemini: &GeminiConfig{}},
	}

	if err := viper.Unmarshal(config); err != nil {
		return nil, err
	}

	if config.Filters == nil {
		config.Filters = &FiltersConfig{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{Top: defaultAITop}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}

	return config, nil
}
