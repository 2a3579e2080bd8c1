package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Elastic  ElasticConfig
	Firebase FirebaseConfig
	Queue    QueueConfig
	Quality  QualityConfig
	Cleanup  CleanupConfig
	RootNode string
	LogPath  string
	LogLevel string
	Zones    map[string]*ZoneConfig
}

type ElasticConfig struct {
	Host         string
	PageSize     int
	FacetSize    int
	ForceRefresh bool
}

type FirebaseConfig struct {
	DatabaseURL string
	AuthURL     string
	TokenURL    string
	APIKey      string
	Login       string
	Password    string
	PoolSize    int
	TokenTTL    time.Duration
}

type QueueConfig struct {
	DatabaseURL  string
	PollInterval time.Duration
}

// QualityConfig holds the weights and thresholds of the quality index.
// The defaults are inherited values with no documented rationale beyond
// "richer ads rank higher"; treat them as tunables.
type QualityConfig struct {
	TitleWeight       float64
	DescriptionWeight float64
	AreaWeight        float64
	MediaWeight       float64
	MediaThreshold    int
	FeatureWeight     float64
}

type CleanupConfig struct {
	// MaxDays is the number of days without an ingest after which a
	// listing is considered obsolete and swept from the index.
	MaxDays int
	Cron    string
}

// ZoneConfig describes one geographical zone, loaded from
// config/zones/*.yaml. The zone name doubles as the search index name and
// as the key of the per-zone preference subtrees.
type ZoneConfig struct {
	Zone     string `yaml:"zone"`
	LongName string `yaml:"long_name"`
	// MaxDays overrides Cleanup.MaxDays for this zone when > 0.
	MaxDays int `yaml:"max_days"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Elastic: ElasticConfig{
			Host:         getEnv("ES_HOST", "http://localhost:9200"),
			PageSize:     getEnvInt("ES_PAGE_SIZE", 20),
			FacetSize:    getEnvInt("ES_FACET_SIZE", 20),
			ForceRefresh: os.Getenv("ES_FORCE_REFRESH") == "true",
		},
		Firebase: FirebaseConfig{
			DatabaseURL: os.Getenv("FIREBASE_DB_URL"),
			AuthURL:     getEnv("FIREBASE_AUTH_URL", "https://identitytoolkit.googleapis.com"),
			TokenURL:    getEnv("FIREBASE_TOKEN_URL", "https://securetoken.googleapis.com"),
			APIKey:      os.Getenv("FIREBASE_API_KEY"),
			Login:       os.Getenv("FIREBASE_LOGIN"),
			Password:    os.Getenv("FIREBASE_PASSWORD"),
			PoolSize:    getEnvInt("FIREBASE_POOL", 2),
			TokenTTL:    getEnvDuration("FIREBASE_TOKEN_TTL", 10*time.Minute),
		},
		Queue: QueueConfig{
			DatabaseURL:  os.Getenv("DATABASE_URL"),
			PollInterval: getEnvDuration("QUEUE_POLL_INTERVAL", 2*time.Second),
		},
		Quality: QualityConfig{
			TitleWeight:       getEnvFloat("QUALITY_TITLE_WEIGHT", 1),
			DescriptionWeight: getEnvFloat("QUALITY_DESCRIPTION_WEIGHT", 1),
			AreaWeight:        getEnvFloat("QUALITY_AREA_WEIGHT", 2),
			MediaWeight:       getEnvFloat("QUALITY_MEDIA_WEIGHT", 2),
			MediaThreshold:    getEnvInt("QUALITY_MEDIA_THRESHOLD", 3),
			FeatureWeight:     getEnvFloat("QUALITY_FEATURE_WEIGHT", 2),
		},
		Cleanup: CleanupConfig{
			MaxDays: getEnvInt("CLEANUP_MAX_DAYS", 30),
			Cron:    getEnv("CLEANUP_CRON", "0 3 * * *"),
		},
		RootNode: getEnv("ROOT_NODE", "real-estate"),
		LogPath:  getEnv("LOG_PATH", "daemon.log"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Zones:    make(map[string]*ZoneConfig),
	}

	if err := cfg.loadZoneConfigs(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadZoneConfigs() error {
	configDir := "config/zones"
	entries, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		path := filepath.Join(configDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var zone ZoneConfig
		if err := yaml.Unmarshal(data, &zone); err != nil {
			return err
		}

		c.Zones[zone.Zone] = &zone
	}

	return nil
}

// MaxDaysFor returns the obsolescence threshold for a zone, falling back
// to the global default when the zone has no override.
func (c *Config) MaxDaysFor(zone string) int {
	if z, ok := c.Zones[zone]; ok && z.MaxDays > 0 {
		return z.MaxDays
	}
	return c.Cleanup.MaxDays
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
