package config

import (
	"errors"
	"fmt"
	"io/fs"
	"lab-booking/internal/domain"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/BurntSushi/toml"
	"golang.org/x/crypto/bcrypt"
)

const (
	EnvConfigPath = "LAB_CONFIG"
	EnvDBPath     = "DB_PATH"
	EnvServerPort = "SERVER_PORT"
	EnvLogLevel   = "LAB_LOG_LEVEL"
	EnvSeedLabs   = "SEED_LABS"

	DefaultConfigPath = "lab.toml"
)

type Config struct {
	Addr          string           `toml:"addr"`
	DBPath        string           `toml:"db_path"`
	LogLevel      string           `toml:"log_level"`
	SessionCookie string           `toml:"session_cookie"`
	SecureCookie  bool             `toml:"secure_cookie"`
	BcryptCost    int              `toml:"bcrypt_cost"`
	SeedLabs      bool             `toml:"seed_labs"`
	Labs          []domain.LabSeed `toml:"labs"`
}

func Default() Config {
	return Config{
		Addr:          ":8080",
		DBPath:        "./data/lab.db",
		LogLevel:      "info",
		SessionCookie: "lab_session",
		BcryptCost:    10,
		SeedLabs:      true,
		Labs:          domain.DefaultLabSeeds(),
	}
}

// Load reads the TOML file at path over the defaults and then applies
// environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		cfg.Labs = nil
		meta, err := toml.DecodeFile(path, &cfg)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
		if err != nil || !meta.IsDefined("labs") {
			cfg.Labs = domain.DefaultLabSeeds()
		}
	}
	applyEnv(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Path returns the config file location from LAB_CONFIG.
func Path() string {
	return getEnv(EnvConfigPath, DefaultConfigPath)
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("config missing addr")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return fmt.Errorf("config missing db_path")
	}
	if strings.TrimSpace(cfg.SessionCookie) == "" {
		return fmt.Errorf("config missing session_cookie")
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt_cost %d outside [%d, %d]", cfg.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	for i, lab := range cfg.Labs {
		if strings.TrimSpace(lab.Name) == "" {
			return fmt.Errorf("labs[%d] missing name", i)
		}
		if utf8.RuneCountInString(lab.Name) > domain.MaxLabNameLen {
			return fmt.Errorf("labs[%d] name exceeds %d characters", i, domain.MaxLabNameLen)
		}
		if lab.Computers < 0 {
			return fmt.Errorf("labs[%d] has negative computers", i)
		}
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.DBPath = getEnv(EnvDBPath, cfg.DBPath)
	if port := getEnv(EnvServerPort, ""); port != "" {
		if !strings.Contains(port, ":") {
			port = ":" + port
		}
		cfg.Addr = port
	}
	cfg.LogLevel = getEnv(EnvLogLevel, cfg.LogLevel)
	if v, err := strconv.ParseBool(getEnv(EnvSeedLabs, "")); err == nil {
		cfg.SeedLabs = v
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
