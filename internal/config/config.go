package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Addr              string
	DatabaseURL       string
	DBMaxConns        int
	SecretKey         string
	Algorithm         string
	TokenTTL          time.Duration
	Gemini            Gemini
	GenerationTimeout time.Duration
	ContentLanguage   string
	RenderMarkdown    bool
	CORSOrigins       []string
	RedisURL          string
	RateLimits        RateLimits
	LogLevel          string
	LogFormat         string
}

type Gemini struct {
	APIKey  string
	Model   string
	BaseURL string
}

type RateLimits struct {
	GeneratePerMinute int
	LoginPerMinute    int
}

var defaultOrigins = []string{
	"https://martinramirez09.github.io",
	"http://localhost:3000",
	"http://localhost:8000",
}

var supportedAlgorithms = map[string]bool{
	"HS256": true,
	"HS384": true,
	"HS512": true,
}

// Load reads the configuration from the environment. The returned Config has
// already been validated; callers should treat an error as fatal.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("AIBLOG_ADDR", "")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("ALGORITHM", "HS256")
	v.SetDefault("ACCESS_TOKEN_EXPIRE_MINUTES", 60)
	v.SetDefault("GEMINI_MODEL_NAME", "gemini-2.5-flash")
	v.SetDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("GENERATION_TIMEOUT", "60s")
	v.SetDefault("CONTENT_LANGUAGE", "es")
	v.SetDefault("RENDER_MARKDOWN", false)
	v.SetDefault("CORS_ORIGINS", strings.Join(defaultOrigins, ","))
	v.SetDefault("RL_GENERATE_PER_MIN", 10)
	v.SetDefault("RL_LOGIN_PER_MIN", 20)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	addr := v.GetString("AIBLOG_ADDR")
	if addr == "" {
		if port := v.GetString("PORT"); port != "" {
			addr = ":" + port
		} else {
			addr = ":8000"
		}
	}

	cfg := Config{
		Addr:        addr,
		DatabaseURL: strings.TrimSpace(v.GetString("DATABASE_URL")),
		DBMaxConns:  v.GetInt("DB_MAX_CONNS"),
		SecretKey:   v.GetString("SECRET_KEY"),
		Algorithm:   strings.ToUpper(strings.TrimSpace(v.GetString("ALGORITHM"))),
		TokenTTL:    time.Duration(v.GetInt("ACCESS_TOKEN_EXPIRE_MINUTES")) * time.Minute,
		Gemini: Gemini{
			APIKey:  strings.TrimSpace(v.GetString("GEMINI_API_KEY")),
			Model:   v.GetString("GEMINI_MODEL_NAME"),
			BaseURL: strings.TrimSuffix(v.GetString("GEMINI_BASE_URL"), "/"),
		},
		GenerationTimeout: v.GetDuration("GENERATION_TIMEOUT"),
		ContentLanguage:   strings.ToLower(v.GetString("CONTENT_LANGUAGE")),
		RenderMarkdown:    v.GetBool("RENDER_MARKDOWN"),
		CORSOrigins:       splitList(v.GetString("CORS_ORIGINS")),
		RedisURL:          strings.TrimSpace(v.GetString("REDIS_URL")),
		RateLimits: RateLimits{
			GeneratePerMinute: v.GetInt("RL_GENERATE_PER_MIN"),
			LoginPerMinute:    v.GetInt("RL_LOGIN_PER_MIN"),
		},
		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every missing or invalid required setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Gemini.APIKey == "" {
		errs = append(errs, errors.New("GEMINI_API_KEY is not set"))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is not set"))
	}
	if c.SecretKey == "" {
		errs = append(errs, errors.New("SECRET_KEY is not set"))
	}
	if !supportedAlgorithms[c.Algorithm] {
		errs = append(errs, fmt.Errorf("unsupported ALGORITHM %q", c.Algorithm))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_EXPIRE_MINUTES must be positive"))
	}
	if c.GenerationTimeout <= 0 {
		errs = append(errs, errors.New("GENERATION_TIMEOUT must be a positive duration such as 60s"))
	}
	if c.ContentLanguage != "es" && c.ContentLanguage != "en" {
		errs = append(errs, fmt.Errorf("unsupported CONTENT_LANGUAGE %q", c.ContentLanguage))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
