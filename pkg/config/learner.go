package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// LearnerEnvPrefix prefixes environment overrides, e.g. LEARNER_API_URL.
const LearnerEnvPrefix = "LEARNER"

// Learner configures the learner CLI.
type Learner struct {
	APIURL       string `mapstructure:"api_url"`
	TokenStore   string `mapstructure:"token_store"` // file | sqlite
	TokenPath    string `mapstructure:"token_path"`
	ExportDir    string `mapstructure:"export_dir"`
	CallbackAddr string `mapstructure:"callback_addr"`
	LogLevel     string `mapstructure:"log_level"`
	JSONLogs     bool   `mapstructure:"json_logs"`
}

// LearnerFlags registers the learner flags on fs.
func LearnerFlags(fs *pflag.FlagSet) {
	fs.String("api_url", "http://localhost:3001/api", "course API root")
	fs.String("token_store", "file", "where the session token is kept: file or sqlite")
	fs.String("token_path", "", "token file or database path (default under the user config dir)")
	fs.String("export_dir", ".", "directory PDF exports are written to")
	fs.String("callback_addr", "127.0.0.1:3000", "loopback address that receives the login callback")
	fs.String("log_level", "warn", "logging level: debug, info, warn, error")
	fs.Bool("json_logs", false, "log as JSON")
	fs.String("config", "", "config file (default $XDG_CONFIG_HOME/coursepilot/learner.yaml)")
}

// LoadLearner resolves flags, LEARNER_* env vars and the optional config file,
// in that order of precedence.
func LoadLearner(fs *pflag.FlagSet) (*Learner, error) {
	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	v.SetEnvPrefix(LearnerEnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
	} else if dir, err := os.UserConfigDir(); err == nil {
		v.SetConfigName("learner")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(dir, "coursepilot"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := new(Learner)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	switch cfg.TokenStore {
	case "file", "sqlite":
	default:
		return nil, fmt.Errorf("token_store must be file or sqlite, got %q", cfg.TokenStore)
	}
	if cfg.TokenPath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("locate config dir: %w", err)
		}
		name := "token"
		if cfg.TokenStore == "sqlite" {
			name = "session.db"
		}
		cfg.TokenPath = filepath.Join(dir, "coursepilot", name)
	}
	return cfg, nil
}
