package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backend modes.
const (
	ModeMemory     = "memory"
	ModeSelfHosted = "selfhosted"
)

type Config struct {
	Port           string
	FrontendURL    string
	AllowedOrigins []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL(s)
	Host           string   // Raw HOST env (e.g. https://app.vibes.dev)
	AllowedHost    string   // Hostname only for strict host check (production only)
	Environment    string   // ENV: production, development, etc.

	// BackendMode picks the gateway adapter: memory or selfhosted.
	BackendMode string
	// BackendURL and BackendAnonKey are the backend connection values the
	// client needs; login refuses to run without them.
	BackendURL     string
	BackendAnonKey string

	PostgresURI   string
	RedisURI      string
	MongoURI      string
	MongoDatabase string

	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	// SeedAdminEmail and SeedAdminPassword create an admin account at startup
	// in memory mode.
	SeedAdminEmail    string
	SeedAdminPassword string

	// TrustedProxies lists proxy CIDRs whose X-Forwarded-For is honoured.
	TrustedProxies []string

	LocalStoreQuota int           // bytes per client
	WorkspaceIdle   time.Duration // idle workspaces are closed after this
	RollbarToken    string
	Debug           bool
}

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))
	host := getEnv("HOST", "http://localhost:8080")

	// AllowedHost is only set in production; host check is skipped in development
	var allowedHost string
	if env == "production" {
		allowedHost = hostname(host)
	}

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		for _, u := range []string{getEnv("FRONTEND_URL", "http://localhost:3000"), getEnv("FRONTEND_URL_2", "")} {
			u = strings.TrimSpace(u)
			if u != "" {
				allowedOrigins = append(allowedOrigins, u)
			}
		}
	}
	// When HOST is an api host (e.g. api.vibes.dev), also allow https://domain and https://www.domain
	if h := hostname(host); h != "" && h != "localhost" {
		parts := strings.Split(h, ".")
		if len(parts) >= 3 {
			domain := strings.Join(parts[1:], ".")
			for _, origin := range []string{"https://" + domain, "https://www." + domain} {
				if !containsOrigin(allowedOrigins, origin) {
					allowedOrigins = append(allowedOrigins, origin)
				}
			}
		}
	}
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}

	mode := strings.ToLower(strings.TrimSpace(getEnv("BACKEND_MODE", ModeMemory)))
	backendURL := getEnv("BACKEND_URL", "")
	if backendURL == "" && mode == ModeMemory {
		backendURL = host
	}

	return &Config{
		Port:                getEnv("PORT", "8080"),
		FrontendURL:         getEnv("FRONTEND_URL", "http://localhost:3000"),
		AllowedOrigins:      allowedOrigins,
		Host:                host,
		AllowedHost:         allowedHost,
		Environment:         env,
		BackendMode:         mode,
		BackendURL:          backendURL,
		BackendAnonKey:      getEnv("BACKEND_ANON_KEY", ""),
		PostgresURI:         getEnv("POSTGRES_URI", "postgres://localhost:5432/vibes?sslmode=disable"),
		RedisURI:            getEnv("REDIS_URI", "redis://localhost:6379/0"),
		MongoURI:            getEnv("MONGODB_URI", getEnv("MONGO_URI", "mongodb://localhost:27017/vibes")),
		MongoDatabase:       getEnv("MONGODB_DATABASE", "vibes"),
		CloudinaryName:      getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		SeedAdminEmail:      getEnv("SEED_ADMIN_EMAIL", ""),
		SeedAdminPassword:   getEnv("SEED_ADMIN_PASSWORD", ""),
		TrustedProxies:      parseOrigins(getEnv("TRUSTED_PROXIES", "")),
		LocalStoreQuota:     getEnvInt("LOCAL_STORE_QUOTA", 5*1024*1024),
		WorkspaceIdle:       getEnvDuration("WORKSPACE_IDLE_TIMEOUT", 30*time.Minute),
		RollbarToken:        getEnv("ROLLBAR_TOKEN", ""),
		Debug:               getEnv("DEBUG", "") == "true",
	}
}

// Validate fails fast on settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("invalid ENV value %q: must be development, staging, or production", c.Environment)
	}
	if c.LocalStoreQuota < 0 {
		return fmt.Errorf("invalid LOCAL_STORE_QUOTA %d: must not be negative", c.LocalStoreQuota)
	}
	switch c.BackendMode {
	case ModeMemory:
		return nil
	case ModeSelfHosted:
	default:
		return fmt.Errorf("invalid BACKEND_MODE %q: must be %s or %s", c.BackendMode, ModeMemory, ModeSelfHosted)
	}

	var missing []string
	for key, v := range map[string]string{
		"BACKEND_URL":  c.BackendURL,
		"POSTGRES_URI": c.PostgresURI,
		"REDIS_URI":    c.RedisURI,
		"MONGODB_URI":  c.MongoURI,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missing)
	}
	if err := validateURL(c.PostgresURI, "postgres", "postgresql"); err != nil {
		return fmt.Errorf("invalid POSTGRES_URI: %w", err)
	}
	if err := validateURL(c.RedisURI, "redis", "rediss"); err != nil {
		return fmt.Errorf("invalid REDIS_URI: %w", err)
	}
	if err := validateURL(c.MongoURI, "mongodb", "mongodb+srv"); err != nil {
		return fmt.Errorf("invalid MONGODB_URI: %w", err)
	}
	return nil
}

// CloudinaryConfigured reports whether uploads can be stored.
func (c *Config) CloudinaryConfigured() bool {
	return c.CloudinaryName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

func validateURL(raw string, schemes ...string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("malformed URL: %w", err)
	}
	ok := false
	for _, s := range schemes {
		if parsed.Scheme == s {
			ok = true
		}
	}
	if !ok {
		return fmt.Errorf("URL must use one of %v schemes, got %q", schemes, parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL must include a host")
	}
	return nil
}

// hostname strips scheme, path and port.
func hostname(host string) string {
	for _, prefix := range []string{"https://", "http://"} {
		host = strings.TrimPrefix(host, prefix)
	}
	if idx := strings.Index(host, "/"); idx != -1 {
		host = host[:idx]
	}
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return strings.TrimSpace(host)
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func containsOrigin(list []string, o string) bool {
	o = strings.TrimSpace(strings.ToLower(o))
	for _, v := range list {
		if strings.TrimSpace(strings.ToLower(v)) == o {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt reads an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return intVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}
