// File: internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ServerPort    string        `yaml:"server_port"`
	DBDriver      string        `yaml:"db_driver"`
	DBDSN         string        `yaml:"db_dsn"`
	SessionSecret string        `yaml:"session_secret"`
	ModelProvider string        `yaml:"model_provider"`
	ModelName     string        `yaml:"model_name"`
	ModelAPIKey   string        `yaml:"model_api_key"`
	ModelBaseURL  string        `yaml:"model_base_url"`
	ModelTimeout  time.Duration `yaml:"model_timeout"`
	// Sends per minute per principal.
	SendRateLimit int    `yaml:"send_rate_limit"`
	LogLevel      string `yaml:"log_level"`
	LogFile       string `yaml:"log_file"`
	Environment   string `yaml:"env"`
}

func defaults() *Config {
	return &Config{
		ServerPort:    "8080",
		DBDriver:      "sqlite",
		DBDSN:         "gemchat.db",
		ModelProvider: "openai",
		ModelName:     "gemini-2.0-flash",
		ModelTimeout:  60 * time.Second,
		SendRateLimit: 20,
		LogLevel:      "info",
	}
}

// Load reads configuration from the .env file (outside production), the
// optional YAML file named by CONFIG_FILE, and then environment variables,
// each layer overriding the previous one.
func Load() (*Config, error) {
	env := os.Getenv("ENV")
	if !isProduction(env) {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found; continuing with environment variables")
		}
	}

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.ServerPort = getEnv("SERVER_PORT", cfg.ServerPort)
	cfg.DBDriver = strings.ToLower(getEnv("DB_DRIVER", cfg.DBDriver))
	cfg.DBDSN = getEnv("DB_DSN", cfg.DBDSN)
	cfg.SessionSecret = getEnv("SESSION_SECRET", cfg.SessionSecret)
	cfg.ModelProvider = strings.ToLower(getEnv("MODEL_PROVIDER", cfg.ModelProvider))
	cfg.ModelName = getEnv("MODEL_NAME", cfg.ModelName)
	cfg.ModelAPIKey = getEnv("MODEL_API_KEY", cfg.ModelAPIKey)
	cfg.ModelBaseURL = getEnv("MODEL_BASE_URL", cfg.ModelBaseURL)
	cfg.ModelTimeout = getEnvAsDuration("MODEL_TIMEOUT", cfg.ModelTimeout)
	cfg.SendRateLimit = getEnvAsInt("SEND_RATE_LIMIT", cfg.SendRateLimit)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile = getEnv("LOG_FILE", cfg.LogFile)
	cfg.Environment = getEnv("ENV", cfg.Environment)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges always and required secrets in production.
func (c *Config) Validate() error {
	if c.DBDriver != "sqlite" && c.DBDriver != "postgres" {
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if c.ModelTimeout <= 0 {
		return fmt.Errorf("MODEL_TIMEOUT must be positive")
	}
	if c.SendRateLimit < 0 {
		return fmt.Errorf("SEND_RATE_LIMIT cannot be negative")
	}

	if c.IsProduction() {
		missing := []string{}
		if c.SessionSecret == "" {
			missing = append(missing, "SESSION_SECRET")
		}
		if c.ModelAPIKey == "" && c.ModelProvider != "ollama" {
			missing = append(missing, "MODEL_API_KEY")
		}
		if len(missing) > 0 {
			return fmt.Errorf("missing required production environment variables: %v", missing)
		}
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return isProduction(c.Environment)
}

func isProduction(env string) bool {
	return strings.ToLower(env) == "production"
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an env var as an integer, with a fallback.
func getEnvAsInt(key string, defaultValue int) int {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(strValue)
	if err != nil {
		log.Printf("Warning: could not parse env var %s as integer. Using default value.", key)
		return defaultValue
	}
	return intValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(strValue)
	if err != nil {
		log.Printf("Warning: could not parse env var %s as duration. Using default value.", key)
		return defaultValue
	}
	return d
}
