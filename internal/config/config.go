package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Database  DatabaseConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Cache     CacheConfig
	Converter ConverterConfig
	Documents DocumentsConfig
	Worker    WorkerConfig
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Backend   string // "local" or "s3"
	LocalPath string
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

type CacheConfig struct {
	Path string
}

type ConverterConfig struct {
	PDFToPPMBin string
	SofficeBin  string
	TempDir     string
}

type DocumentsConfig struct {
	Language       string
	DisplaySize    string
	ZoomMin        int
	ZoomMax        int
	RecentCount    int
	DeletePeriod   int
	DeleteTimeUnit string
}

type WorkerConfig struct {
	Concurrency int
}

func Load() (*Config, error) {
	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	zoomMin, err := getEnvInt("DOCUMENTS_ZOOM_MIN", 25)
	if err != nil {
		return nil, fmt.Errorf("invalid DOCUMENTS_ZOOM_MIN: %w", err)
	}

	zoomMax, err := getEnvInt("DOCUMENTS_ZOOM_MAX", 300)
	if err != nil {
		return nil, fmt.Errorf("invalid DOCUMENTS_ZOOM_MAX: %w", err)
	}

	recentCount, err := getEnvInt("DOCUMENTS_RECENT_COUNT", 40)
	if err != nil {
		return nil, fmt.Errorf("invalid DOCUMENTS_RECENT_COUNT: %w", err)
	}

	deletePeriod, err := getEnvInt("DOCUMENTS_DELETE_PERIOD", 30)
	if err != nil {
		return nil, fmt.Errorf("invalid DOCUMENTS_DELETE_PERIOD: %w", err)
	}

	concurrency, err := getEnvInt("WORKER_CONCURRENCY", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid WORKER_CONCURRENCY: %w", err)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Storage: StorageConfig{
			Backend:   getEnv("STORAGE_BACKEND", "local"),
			LocalPath: getEnv("STORAGE_LOCAL_PATH", "data/documents"),
			Endpoint:  getEnv("STORAGE_S3_ENDPOINT", ""),
			Region:    getEnv("STORAGE_S3_REGION", ""),
			Bucket:    getEnv("STORAGE_S3_BUCKET", "documents"),
			AccessKey: getEnv("STORAGE_S3_ACCESS_KEY", ""),
			SecretKey: getEnv("STORAGE_S3_SECRET_KEY", ""),
			UseSSL:    getEnvBool("STORAGE_S3_USE_SSL", true),
		},
		Cache: CacheConfig{
			Path: getEnv("CACHE_PATH", "data/cache"),
		},
		Converter: ConverterConfig{
			PDFToPPMBin: getEnv("CONVERTER_PDFTOPPM_BIN", "pdftoppm"),
			SofficeBin:  getEnv("CONVERTER_SOFFICE_BIN", "soffice"),
			TempDir:     getEnv("CONVERTER_TEMP_DIR", os.TempDir()),
		},
		Documents: DocumentsConfig{
			Language:       getEnv("DOCUMENTS_LANGUAGE", "eng"),
			DisplaySize:    getEnv("DOCUMENTS_DISPLAY_SIZE", "1200"),
			ZoomMin:        zoomMin,
			ZoomMax:        zoomMax,
			RecentCount:    recentCount,
			DeletePeriod:   deletePeriod,
			DeleteTimeUnit: getEnv("DOCUMENTS_DELETE_TIME_UNIT", "days"),
		},
		Worker: WorkerConfig{
			Concurrency: concurrency,
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Storage.Backend == "s3" {
		if c.Storage.Endpoint == "" {
			missing = append(missing, "STORAGE_S3_ENDPOINT")
		}
		if c.Storage.AccessKey == "" {
			missing = append(missing, "STORAGE_S3_ACCESS_KEY")
		}
		if c.Storage.SecretKey == "" {
			missing = append(missing, "STORAGE_S3_SECRET_KEY")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	if c.Documents.ZoomMin <= 0 || c.Documents.ZoomMax < c.Documents.ZoomMin {
		return fmt.Errorf("invalid zoom range: min %d, max %d", c.Documents.ZoomMin, c.Documents.ZoomMax)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
