package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// MongoDB holds the viewer watch history.
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`

	// Redis configuration.
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisSessionDB int    `mapstructure:"REDIS_SESSION_DB"`
	RedisQueueDB   int    `mapstructure:"REDIS_QUEUE_DB"`

	// Firebase project hosting the content collections.
	FirebaseCredentialsPath string `mapstructure:"FIREBASE_CREDENTIALS_PATH"`
	FirebaseProjectID       string `mapstructure:"FIREBASE_PROJECT_ID"`

	// Cloudinary resolves media stored by public id.
	CloudinaryURL string `mapstructure:"CLOUDINARY_URL"`

	// Feed tuning.
	FeedFreshness               time.Duration `mapstructure:"FEED_FRESHNESS"`
	FeedSessionTTL              time.Duration `mapstructure:"FEED_SESSION_TTL"`
	FeedSourceLimit             int           `mapstructure:"FEED_SOURCE_LIMIT"`
	FeedAuthorLookupConcurrency int           `mapstructure:"FEED_AUTHOR_LOOKUP_CONCURRENCY"`
	FeedSeenHistoryLimit        int           `mapstructure:"FEED_SEEN_HISTORY_LIMIT"`
	FeedWarmSchedule            string        `mapstructure:"FEED_WARM_SCHEDULE"`
}

var AppConfig Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MAX_REQUESTS_PER_MIN", 200)
	v.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "reelfeed")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_SESSION_DB", 0)
	v.SetDefault("REDIS_QUEUE_DB", 1)
	v.SetDefault("FIREBASE_CREDENTIALS_PATH", "serviceAccountKey.json")
	v.SetDefault("FIREBASE_PROJECT_ID", "")
	v.SetDefault("CLOUDINARY_URL", "")
	v.SetDefault("FEED_FRESHNESS", "3m")
	v.SetDefault("FEED_SESSION_TTL", "30m")
	v.SetDefault("FEED_SOURCE_LIMIT", 200)
	v.SetDefault("FEED_AUTHOR_LOOKUP_CONCURRENCY", 8)
	v.SetDefault("FEED_SEEN_HISTORY_LIMIT", 200)
	v.SetDefault("FEED_WARM_SCHEDULE", "@every 2m")
}

// Load reads configuration from the given viper instance.
func Load(v *viper.Viper) (Config, error) {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	// Automatically use environment variables where available.
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func LoadConfig() {
	cfg, err := Load(viper.GetViper())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	AppConfig = cfg
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
