package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Log struct {
		Level string
	}
	Tracker struct {
		URL            string
		User           string
		Key            string
		TimeoutSeconds int
	}
	Download struct {
		Dir                string
		Limit              int
		Prefer             string
		OriginalComponent  string
		FileTimeoutMinutes int
	}
	History struct {
		Path string
	}
	Status struct {
		Addr string
	}
	Storage struct {
		Bucket    string
		KeyPrefix string
		Region    string
		Endpoint  string
	}
	AWS struct {
		Profile string
	}
	Credentials struct {
		Path string
	}
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	_ = godotenv.Load() // optional .env

	v := viper.New()
	v.SetEnvPrefix("MEDIAPULL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", "info")
	v.SetDefault("tracker.url", "")
	v.SetDefault("tracker.user", "")
	v.SetDefault("tracker.key", "")
	v.SetDefault("tracker.timeoutseconds", 30)
	v.SetDefault("download.dir", "data/downloads")
	v.SetDefault("download.limit", 4)
	v.SetDefault("download.prefer", "encoded")
	v.SetDefault("download.originalcomponent", "main")
	v.SetDefault("download.filetimeoutminutes", 0)
	v.SetDefault("history.path", "data/history.db")
	v.SetDefault("status.addr", "")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "media-pulls")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("credentials.path", "data/credentials.enc")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}
