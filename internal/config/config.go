package config

import (
	"os"
	"strconv"
)

// Config holds the whole application configuration, populated from
// environment variables.
type Config struct {
	App     AppConfig
	Redis   RedisConfig
	MinIO   MinIOConfig
	GitHub  GitHubConfig
	Storage StorageConfig
}

type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Port        string
	BaseURL     string // absolute URL this server is reachable at
}

type RedisConfig struct {
	Host     string
	Password string
	DB       int
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL is the CDN/base URL that serves bucket objects to
	// listeners, e.g. https://media.example.com
	PublicURL string
}

// GitHubConfig identifies the version-controlled episode store. Token,
// Owner and Repo are all required for the remote client to be enabled;
// with any of them missing the application runs in local-only mode.
type GitHubConfig struct {
	Token     string
	Owner     string
	Repo      string
	Branch    string
	EnvFolder string // environment-scoped subdirectory, e.g. "production"
}

type StorageConfig struct {
	// PublicRoot is the local directory served as the public file root.
	// Uploaded audio lives under <PublicRoot>/audios.
	PublicRoot string
	// EpisodesDir holds the per-episode JSON fallback files.
	EpisodesDir string
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Podcast API"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			BaseURL:     getEnv("APP_BASE_URL", "http://localhost:8080"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			PublicURL: getEnv("MINIO_PUBLIC_URL", ""),
		},
		GitHub: GitHubConfig{
			Token:     getEnv("GITHUB_TOKEN", ""),
			Owner:     getEnv("EPISODES_REPO_OWNER", ""),
			Repo:      getEnv("EPISODES_REPO_NAME", ""),
			Branch:    getEnv("EPISODES_BRANCH", "main"),
			EnvFolder: getEnv("EPISODES_ENV", "production"),
		},
		Storage: StorageConfig{
			PublicRoot:  getEnv("STORAGE_PUBLIC_ROOT", "public"),
			EpisodesDir: getEnv("STORAGE_EPISODES_DIR", "storage/episodes"),
		},
	}

	return cfg, nil
}

// ObjectStorageReady reports whether all settings required for cloud
// uploads are present. The decision is recorded on each episode at write
// time so reads never need to re-derive it.
func (c *Config) ObjectStorageReady() bool {
	m := c.MinIO
	return m.Endpoint != "" && m.AccessKey != "" && m.Bucket != ""
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
