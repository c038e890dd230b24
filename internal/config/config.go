package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port              string        `yaml:"port"`
	APIBaseURL        string        `yaml:"api_base_url"`
	StoreBackend      string        `yaml:"store_backend"` // sqlite | redis
	DBDSN             string        `yaml:"db_dsn"`
	RedisURL          string        `yaml:"redis_url"`
	LogFile           string        `yaml:"log_file"`
	LoginPromptTTL    time.Duration `yaml:"login_prompt_ttl"`
	AdminPollInterval time.Duration `yaml:"admin_poll_interval"`
	NoticeTTL         time.Duration `yaml:"notice_ttl"`
	HTTPTimeout       time.Duration `yaml:"http_timeout"`
	MaxProfiles       int           `yaml:"max_profiles"`
	ProfileIdle       time.Duration `yaml:"profile_idle"`
}

func Defaults() Config {
	return Config{
		Port:              "8081",
		APIBaseURL:        "http://localhost:8080/api",
		StoreBackend:      "sqlite",
		DBDSN:             "cdrive.db", // sqlite file in project root
		RedisURL:          "redis://localhost:6379/0",
		LogFile:           "./cdrive.log",
		LoginPromptTTL:    3 * time.Second,
		AdminPollInterval: 15 * time.Second,
		NoticeTTL:         4 * time.Second,
		HTTPTimeout:       10 * time.Second,
		MaxProfiles:       1000,
		ProfileIdle:       30 * time.Minute,
	}
}

// Load starts from Defaults, overlays the YAML file named by CDRIVE_CONFIG
// (if any), then applies environment variables.
func Load() Config {
	cfg := Defaults()
	if path := os.Getenv("CDRIVE_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			log.Printf("[warn] could not read config file %s: %v", path, err)
		}
	}
	applyEnv(&cfg, os.Getenv)

	log.Printf("[config] PORT=%s API_BASE_URL=%s STORE_BACKEND=%s DB_DSN=%s LOG_FILE=%s",
		cfg.Port, cfg.APIBaseURL, cfg.StoreBackend, cfg.DBDSN, cfg.LogFile)
	return cfg
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, cfg)
}

func applyEnv(cfg *Config, getenv func(string) string) {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			log.Printf("[warn] ignoring %s=%q: %v", key, v, err)
			return
		}
		*dst = d
	}
	num := func(key string, dst *int) {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			log.Printf("[warn] ignoring %s=%q", key, v)
			return
		}
		*dst = n
	}

	str("PORT", &cfg.Port)
	str("API_BASE_URL", &cfg.APIBaseURL)
	str("STORE_BACKEND", &cfg.StoreBackend)
	str("DB_DSN", &cfg.DBDSN)
	str("REDIS_URL", &cfg.RedisURL)
	str("LOG_FILE", &cfg.LogFile)
	dur("LOGIN_PROMPT_TTL", &cfg.LoginPromptTTL)
	dur("ADMIN_POLL_INTERVAL", &cfg.AdminPollInterval)
	dur("NOTICE_TTL", &cfg.NoticeTTL)
	dur("HTTP_TIMEOUT", &cfg.HTTPTimeout)
	num("MAX_PROFILES", &cfg.MaxProfiles)
	dur("PROFILE_IDLE", &cfg.ProfileIdle)

	cfg.StoreBackend = strings.ToLower(cfg.StoreBackend)
}
