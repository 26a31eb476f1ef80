package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for both daemons. It is constructed once at
// startup and passed by reference into every component that needs it.
type Config struct {
	Bluesky  BlueskyConfig `mapstructure:"bluesky"`
	Twitter  TwitterConfig `mapstructure:"twitter"`
	Preview  PreviewConfig `mapstructure:"preview"`
	Storage  StorageConfig `mapstructure:"storage"`
	LogLevel string        `mapstructure:"log_level"`
}

// BlueskyConfig covers the source platform: credentials, the author to
// mirror, and the poll cadence.
type BlueskyConfig struct {
	// Identifier is the login identifier passed to createSession.
	Identifier string `mapstructure:"identifier"`

	// Password is the app password paired with Identifier.
	Password string `mapstructure:"password"`

	// Username is the handle whose posts are relayed. Feed items authored
	// by anyone else are filtered out.
	Username string `mapstructure:"username"`

	// Actor is the DID (or handle) passed to getAuthorFeed.
	Actor string `mapstructure:"actor"`

	// PDSHost is the XRPC host used for authenticated calls.
	PDSHost string `mapstructure:"pds_host"`

	// Refresh is the delay between poll cycles, in seconds.
	Refresh int `mapstructure:"refresh"`

	// FeedLimit is the number of feed items requested per cycle.
	FeedLimit int `mapstructure:"feed_limit"`
}

// TwitterConfig carries the OAuth1 credentials for the destination platform.
type TwitterConfig struct {
	APIKey            string `mapstructure:"api_key"`
	APISecretKey      string `mapstructure:"api_secret_key"`
	AccessToken       string `mapstructure:"access_token"`
	AccessTokenSecret string `mapstructure:"access_token_secret"`
}

// PreviewConfig covers the preview service: the public hostname substituted
// into quote links and the address the HTTP server binds to.
type PreviewConfig struct {
	PublicHost string `mapstructure:"public_host"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// StorageConfig locates the on-disk store shared state lives in.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// RefreshInterval returns the poll cadence as a duration.
func (c BlueskyConfig) RefreshInterval() time.Duration {
	return time.Duration(c.Refresh) * time.Second
}

// LoadConfig reads config.toml from the given path, with environment
// variables (SKYRELAY_ prefix, e.g. SKYRELAY_BLUESKY_PASSWORD) taking
// precedence over file values.
func LoadConfig(path string) (Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("toml")

	viper.SetEnvPrefix("SKYRELAY")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		// Missing file is tolerated when env vars carry the config.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if config.Bluesky.Identifier == "" {
		return Config{}, fmt.Errorf("bluesky.identifier is not set")
	}
	if config.Bluesky.Password == "" {
		return Config{}, fmt.Errorf("bluesky.password is not set")
	}
	if config.Bluesky.Username == "" {
		return Config{}, fmt.Errorf("bluesky.username is not set")
	}
	if config.Bluesky.Actor == "" {
		// The author feed can be requested by handle as well as by DID.
		config.Bluesky.Actor = config.Bluesky.Username
	}
	if config.Bluesky.PDSHost == "" {
		config.Bluesky.PDSHost = "https://bsky.social"
	}
	if config.Bluesky.Refresh <= 0 {
		config.Bluesky.Refresh = 60
	}
	if config.Bluesky.FeedLimit <= 0 {
		config.Bluesky.FeedLimit = 30
	}
	if config.Preview.PublicHost == "" {
		return Config{}, fmt.Errorf("preview.public_host is not set")
	}
	if config.Preview.ListenAddr == "" {
		config.Preview.ListenAddr = ":3030"
	}
	if config.Storage.Path == "" {
		config.Storage.Path = "./badger_data"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}

	return config, nil
}
