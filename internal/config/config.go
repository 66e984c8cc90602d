/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the ledger-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort           string `mapstructure:"SERVER_PORT"`
	DatabaseURL          string `mapstructure:"DATABASE_URL"`
	RabbitMQURL          string `mapstructure:"RABBITMQ_URL"`
	RedisURL             string `mapstructure:"REDIS_URL"`
	StatementCachePrefix string `mapstructure:"STATEMENT_CACHE_PREFIX"`
	StatementCacheTTLMs  int    `mapstructure:"STATEMENT_CACHE_TTL_MS"`
	AccountSeed          string `mapstructure:"ACCOUNT_SEED"`
}

// AccountSeedEntry is one pre-provisioned account: its id and credit limit.
type AccountSeedEntry struct {
	ID          int64
	CreditLimit int64
}

// defaultAccountSeed provisions the canonical five-account fixture used by
// the load-test scenarios.
const defaultAccountSeed = "1:100000,2:80000,3:1000000,4:10000000,5:500000"

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("STATEMENT_CACHE_PREFIX", "ledger:statement")
	viper.SetDefault("STATEMENT_CACHE_TTL_MS", 1000)
	viper.SetDefault("ACCOUNT_SEED", defaultAccountSeed)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("STATEMENT_CACHE_PREFIX")
	_ = viper.BindEnv("STATEMENT_CACHE_TTL_MS")
	_ = viper.BindEnv("ACCOUNT_SEED")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.StatementCachePrefix = strings.TrimSpace(config.StatementCachePrefix)
	if config.StatementCachePrefix == "" {
		config.StatementCachePrefix = "ledger:statement"
	}
	if config.StatementCacheTTLMs <= 0 {
		config.StatementCacheTTLMs = 1000
	}
	if strings.TrimSpace(config.AccountSeed) == "" {
		config.AccountSeed = defaultAccountSeed
	}

	return
}

// ParseAccountSeed decodes an "id:creditLimit,id:creditLimit,..." seed string.
func ParseAccountSeed(seed string) ([]AccountSeedEntry, error) {
	var entries []AccountSeedEntry
	for _, part := range strings.Split(seed, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.SplitN(part, ":", 2)
		if len(fields) != 2 {
			return nil, fmt.Errorf("malformed account seed entry %q", part)
		}
		id, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed account id in seed entry %q: %w", part, err)
		}
		limit, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed credit limit in seed entry %q: %w", part, err)
		}
		if limit < 0 {
			return nil, fmt.Errorf("credit limit must be non-negative in seed entry %q", part)
		}
		entries = append(entries, AccountSeedEntry{ID: id, CreditLimit: limit})
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("account seed %q provisions no accounts", seed)
	}
	return entries, nil
}
