// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"github.com/Corphon/StoryboardStudio/internal/utils"
)

// singleton state for the runtime configuration
var (
	currentConfig *AppConfig
	configMutex   sync.RWMutex
	configFile    string
	configSecret  string
)

// Features toggles the optional editor capabilities.
type Features struct {
	AssetCategories  bool `json:"asset_categories"`
	Cinematography   bool `json:"cinematography"`
	ScriptRefinement bool `json:"script_refinement"`
}

// GatewayConfig describes how to reach the generation backend.
type GatewayConfig struct {
	BaseURL    string        `json:"base_url"`
	APIKey     string        `json:"-"`
	SealedKey  string        `json:"api_key,omitempty"`
	Timeout    time.Duration `json:"timeout"`
	RatePerSec float64       `json:"rate_per_sec"`
	Burst      int           `json:"burst"`
}

// AppConfig is the merged env + config.json configuration.
type AppConfig struct {
	Port      string `json:"port"`
	DataDir   string `json:"data_dir"`
	LogDir    string `json:"log_dir"`
	LogLevel  string `json:"log_level"`
	DebugMode bool   `json:"debug_mode"`

	MaxRequestBytes   int64         `json:"max_request_bytes"`
	ProjectTTL        time.Duration `json:"project_ttl"`
	UploadConcurrency int           `json:"upload_concurrency"`
	CORSOrigins       []string      `json:"cors_origins"`
	APIRateLimit      int           `json:"api_rate_limit"`

	Gateway  GatewayConfig `json:"gateway"`
	Features Features      `json:"features"`
}

// Config holds the values read from the environment.
type Config struct {
	Port      string
	DataDir   string
	LogDir    string
	LogLevel  string
	DebugMode bool

	GatewayBaseURL    string
	GatewayAPIKey     string
	GatewayTimeout    time.Duration
	GatewayRatePerSec float64
	GatewayBurst      int

	MaxRequestMB      int
	ProjectTTL        time.Duration
	UploadConcurrency int
	CORSOrigins       []string
	APIRateLimit      int

	Features Features
	Secret   string
}

// Load reads the configuration from the environment, honouring an optional .env file.
func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		Port:      getEnv("PORT", "8080"),
		DataDir:   getEnvPath("DATA_DIR", "data"),
		LogDir:    getEnvPath("LOG_DIR", "logs"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		DebugMode: getEnvBool("DEBUG_MODE", false),

		GatewayBaseURL:    strings.TrimRight(getEnv("GATEWAY_BASE_URL", "http://localhost:8000/api"), "/"),
		GatewayAPIKey:     getEnv("GATEWAY_API_KEY", ""),
		GatewayTimeout:    getEnvDuration("GATEWAY_TIMEOUT", 120*time.Second),
		GatewayRatePerSec: getEnvFloat("GATEWAY_RATE_PER_SEC", 5),
		GatewayBurst:      getEnvInt("GATEWAY_BURST", 10),

		MaxRequestMB:      getEnvInt("MAX_REQUEST_MB", 45),
		ProjectTTL:        getEnvDuration("PROJECT_TTL", 24*time.Hour),
		UploadConcurrency: getEnvInt("UPLOAD_CONCURRENCY", 4),
		CORSOrigins:       strings.Split(getEnv("CORS_ORIGINS", "*"), ","),
		APIRateLimit:      getEnvInt("API_RATE_LIMIT", 120),

		Features: Features{
			AssetCategories:  getEnvBool("FEATURE_ASSET_CATEGORIES", true),
			Cinematography:   getEnvBool("FEATURE_CINEMATOGRAPHY", true),
			ScriptRefinement: getEnvBool("FEATURE_SCRIPT_REFINEMENT", true),
		},
		Secret: getEnv("CONFIG_SECRET", "storyboard-studio-local-secret"),
	}

	if cfg.MaxRequestMB <= 0 {
		return nil, fmt.Errorf("MAX_REQUEST_MB must be positive, got %d", cfg.MaxRequestMB)
	}
	if cfg.UploadConcurrency <= 0 {
		cfg.UploadConcurrency = 1
	}

	return cfg, nil
}

// getEnv returns the variable or the default when it is unset.
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvPath returns a directory path and makes sure it exists.
func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			log.Printf("warning: failed to create directory %s: %v", path, err)
		}
	}

	return path
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("warning: %s=%q is not an integer, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("warning: %s=%q is not a number, using %v", key, value, defaultValue)
		return defaultValue
	}
	return f
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("warning: %s=%q is not a duration, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}

// fromBase builds the runtime configuration from environment values.
func fromBase(base *Config) *AppConfig {
	return &AppConfig{
		Port:              base.Port,
		DataDir:           base.DataDir,
		LogDir:            base.LogDir,
		LogLevel:          base.LogLevel,
		DebugMode:         base.DebugMode,
		MaxRequestBytes:   int64(base.MaxRequestMB) * 1024 * 1024,
		ProjectTTL:        base.ProjectTTL,
		UploadConcurrency: base.UploadConcurrency,
		CORSOrigins:       base.CORSOrigins,
		APIRateLimit:      base.APIRateLimit,
		Gateway: GatewayConfig{
			BaseURL:    base.GatewayBaseURL,
			APIKey:     base.GatewayAPIKey,
			Timeout:    base.GatewayTimeout,
			RatePerSec: base.GatewayRatePerSec,
			Burst:      base.GatewayBurst,
		},
		Features: base.Features,
	}
}

// InitConfig loads the environment, merges data/config.json on top and persists the result.
// Process-level settings (port, directories, limits) always come from the environment;
// gateway settings and feature flags may be overridden by the saved file.
func InitConfig(dataDir string) error {
	configFile = filepath.Join(dataDir, "config.json")

	base, err := Load()
	if err != nil {
		return err
	}

	configMutex.Lock()
	defer configMutex.Unlock()

	configSecret = base.Secret
	currentConfig = fromBase(base)

	if data, err := os.ReadFile(configFile); err == nil {
		var saved AppConfig
		if json.Unmarshal(data, &saved) == nil {
			if saved.Gateway.BaseURL != "" {
				currentConfig.Gateway.BaseURL = saved.Gateway.BaseURL
			}
			if saved.Gateway.Timeout > 0 {
				currentConfig.Gateway.Timeout = saved.Gateway.Timeout
			}
			if saved.Gateway.RatePerSec > 0 {
				currentConfig.Gateway.RatePerSec = saved.Gateway.RatePerSec
			}
			if saved.Gateway.Burst > 0 {
				currentConfig.Gateway.Burst = saved.Gateway.Burst
			}
			if saved.Gateway.SealedKey != "" && base.GatewayAPIKey == "" {
				key, err := utils.Decrypt(saved.Gateway.SealedKey, configSecret)
				if err != nil {
					log.Printf("warning: could not unseal saved gateway key: %v", err)
				} else {
					currentConfig.Gateway.APIKey = key
				}
			}
			currentConfig.Features = saved.Features
		}
	}

	return saveLocked()
}

// GetCurrentConfig returns a copy of the active configuration.
func GetCurrentConfig() *AppConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if currentConfig == nil {
		base, err := Load()
		if err != nil {
			base = &Config{Port: "8080", DataDir: "data", LogDir: "logs", MaxRequestMB: 45, UploadConcurrency: 1}
		}
		return fromBase(base)
	}

	configCopy := *currentConfig
	configCopy.CORSOrigins = append([]string(nil), currentConfig.CORSOrigins...)
	return &configCopy
}

// UpdateGatewayConfig replaces the gateway settings. An empty APIKey keeps the current key.
func UpdateGatewayConfig(gw GatewayConfig) error {
	configMutex.Lock()
	defer configMutex.Unlock()

	if currentConfig == nil {
		return fmt.Errorf("configuration not initialized")
	}

	gw.BaseURL = strings.TrimRight(gw.BaseURL, "/")
	if gw.BaseURL == "" {
		return fmt.Errorf("gateway base url is required")
	}
	if gw.APIKey == "" {
		gw.APIKey = currentConfig.Gateway.APIKey
	}
	if gw.Timeout <= 0 {
		gw.Timeout = currentConfig.Gateway.Timeout
	}
	if gw.RatePerSec <= 0 {
		gw.RatePerSec = currentConfig.Gateway.RatePerSec
	}
	if gw.Burst <= 0 {
		gw.Burst = currentConfig.Gateway.Burst
	}
	currentConfig.Gateway = gw

	return saveLocked()
}

// UpdateFeatures replaces the feature flags.
func UpdateFeatures(f Features) error {
	configMutex.Lock()
	defer configMutex.Unlock()

	if currentConfig == nil {
		return fmt.Errorf("configuration not initialized")
	}
	currentConfig.Features = f

	return saveLocked()
}

// SaveConfig persists the current configuration to data/config.json.
func SaveConfig() error {
	configMutex.Lock()
	defer configMutex.Unlock()
	return saveLocked()
}

func saveLocked() error {
	if currentConfig == nil {
		return fmt.Errorf("no configuration to save")
	}

	dir := filepath.Dir(configFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out := *currentConfig
	out.Gateway.SealedKey = ""
	if out.Gateway.APIKey != "" {
		sealed, err := utils.Encrypt(out.Gateway.APIKey, configSecret)
		if err != nil {
			return fmt.Errorf("failed to seal gateway key: %w", err)
		}
		out.Gateway.SealedKey = sealed
	}

	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	return os.WriteFile(configFile, data, 0600)
}
