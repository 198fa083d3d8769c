// Package config loads application settings from the environment.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// RSS holds feed collection settings.
type RSS struct {
	Sources             []string
	Keywords            []string
	SimilarityThreshold float64
	MaxItems            int
}

// Gemini holds settings for all model calls (scoring, post, image).
type Gemini struct {
	APIKey     string
	ModelRank  string
	ModelPost  string
	ModelImage string
}

// Pexels holds image search settings.
type Pexels struct {
	APIKey  string
	Timeout time.Duration
	Enabled bool
}

// ImageHost holds settings of the image hosting endpoint.
type ImageHost struct {
	APIKey   string
	Endpoint string
	Timeout  time.Duration
}

// Sheets holds Google Sheets settings.
type Sheets struct {
	SheetID            string
	ServiceAccountJSON string
	Worksheet          string
}

// Scheduler holds run scheduling settings.
type Scheduler struct {
	Timezone       string
	RunHours       []int
	RunOnceOnStart bool
}

// Post holds composer length constraints.
type Post struct {
	LongBodyMin  int
	LongBodyMax  int
	ShortBodyMax int
}

// Config is the aggregate application configuration.
type Config struct {
	RSS       RSS
	Gemini    Gemini
	Pexels    Pexels
	ImageHost ImageHost
	Sheets    Sheets
	Scheduler Scheduler
	Post      Post

	CacheDir       string
	RecencyWindow  time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration
	LogLevel       string
}

// feedsFile is the YAML structure of the optional feeds config file.
type feedsFile struct {
	Feeds []string `yaml:"feeds"`
}

// Load reads configuration from the environment, consulting .env when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		RSS: RSS{
			Sources:             parseList(os.Getenv("RSS_SOURCES")),
			Keywords:            parseList(os.Getenv("KEYWORDS")),
			SimilarityThreshold: getEnvFloatOrDefault("SIMILARITY_THRESHOLD", 0.85),
			MaxItems:            getEnvIntOrDefault("PIPELINE_MAX_ITEMS", 25),
		},
		Gemini: Gemini{
			APIKey:     os.Getenv("GEMINI_API_KEY"),
			ModelRank:  getEnvOrDefault("GEMINI_MODEL_RANK", "gemini-1.5-flash"),
			ModelPost:  getEnvOrDefault("GEMINI_MODEL_POST", "gemini-1.5-pro"),
			ModelImage: getEnvOrDefault("GEMINI_MODEL_IMAGE", "gemini-2.0-flash-exp"),
		},
		Pexels: Pexels{
			APIKey:  os.Getenv("PEXELS_API_KEY"),
			Timeout: time.Duration(getEnvIntOrDefault("PEXELS_API_TIMEOUT", 20)) * time.Second,
			Enabled: getEnvBoolOrDefault("PEXELS_ENABLED", true),
		},
		ImageHost: ImageHost{
			APIKey:   os.Getenv("FREEIMAGEHOST_API_KEY"),
			Endpoint: getEnvOrDefault("FREEIMAGEHOST_API_ENDPOINT", "https://freeimage.host/api/1/upload"),
			Timeout:  time.Duration(getEnvIntOrDefault("FREEIMAGEHOST_API_TIMEOUT", 30)) * time.Second,
		},
		Sheets: Sheets{
			SheetID:            os.Getenv("SHEET_ID"),
			ServiceAccountJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
			Worksheet:          getEnvOrDefault("SHEET_WORKSHEET", "Sheet1"),
		},
		Scheduler: Scheduler{
			Timezone:       getEnvOrDefault("SCHEDULER_TIMEZONE", "Europe/Moscow"),
			RunHours:       parseHours(getEnvOrDefault("SCHEDULER_RUN_HOURS", "7,19")),
			RunOnceOnStart: getEnvBoolOrDefault("RUN_PIPELINE_ON_START", true),
		},
		Post: Post{
			LongBodyMin:  getEnvIntOrDefault("POST_LONG_BODY_MIN", 1500),
			LongBodyMax:  getEnvIntOrDefault("POST_LONG_BODY_MAX", 3000),
			ShortBodyMax: getEnvIntOrDefault("POST_SHORT_BODY_MAX", 600),
		},
		CacheDir:       getEnvOrDefault("CACHE_DIR", ".cache"),
		RecencyWindow:  12 * time.Hour,
		RetryAttempts:  getEnvIntOrDefault("RETRY_ATTEMPTS", 3),
		RetryBaseDelay: time.Duration(getEnvIntOrDefault("RETRY_BASE_DELAY_SEC", 1)) * time.Second,
		LogLevel:       getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	if path := os.Getenv("FEEDS_CONFIG_PATH"); path != "" && len(cfg.RSS.Sources) == 0 {
		sources, err := loadFeedsFile(path)
		if err != nil {
			return nil, fmt.Errorf("load feeds config: %w", err)
		}
		cfg.RSS.Sources = sources
	}

	return cfg, cfg.Validate()
}

// loadFeedsFile reads the feed source list from a YAML file.
func loadFeedsFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file feedsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	return file.Feeds, nil
}

// Validate rejects configurations that cannot start a run.
func (c *Config) Validate() error {
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.ImageHost.APIKey == "" {
		return fmt.Errorf("FREEIMAGEHOST_API_KEY is required")
	}
	if c.Sheets.SheetID == "" {
		return fmt.Errorf("SHEET_ID is required")
	}
	if c.Sheets.ServiceAccountJSON == "" {
		return fmt.Errorf("GOOGLE_SERVICE_ACCOUNT_JSON is required")
	}
	if c.Pexels.Enabled && c.Pexels.APIKey == "" {
		return fmt.Errorf("PEXELS_API_KEY is required when Pexels search is enabled")
	}
	if c.RSS.SimilarityThreshold <= 0 || c.RSS.SimilarityThreshold > 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be in (0,1]")
	}
	if c.RSS.MaxItems < 1 {
		return fmt.Errorf("PIPELINE_MAX_ITEMS must be at least 1")
	}
	if c.Post.LongBodyMin <= 0 || c.Post.LongBodyMax < c.Post.LongBodyMin {
		return fmt.Errorf("invalid long body bounds: %d-%d", c.Post.LongBodyMin, c.Post.LongBodyMax)
	}
	if len(c.Scheduler.RunHours) == 0 {
		return fmt.Errorf("SCHEDULER_RUN_HOURS must name at least one hour")
	}
	return nil
}

// EarliestRunHour returns the smallest configured run hour.
func (c *Config) EarliestRunHour() int {
	hours := append([]int(nil), c.Scheduler.RunHours...)
	sort.Ints(hours)
	return hours[0]
}

func parseList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseHours(value string) []int {
	var hours []int
	for _, part := range parseList(value) {
		if hour, err := strconv.Atoi(part); err == nil && hour >= 0 && hour <= 23 {
			hours = append(hours, hour)
		}
	}
	return hours
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return defaultValue
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
