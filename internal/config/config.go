package config

import (
	"os"
	"strconv"

	"dario.cat/mergo"
	"github.com/pkg/errors"
)

// Question bank sources
const (
	SourceFile  = "file"
	SourceMongo = "mongo"
)

// Snapshot storage backends
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

type CORS struct {
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

type Config struct {
	Port           string
	QuestionSource string
	QuestionDir    string
	MongoURI       string
	MongoDB        string
	RedisURI       string
	StateStore     string
	SQLitePath     string
	DefaultCount   int
	APIURL         string
	CORS           CORS
}

// Load reads the environment. Fields set in overrides win over the environment;
// zero-valued override fields are ignored.
func Load(overrides ...Config) (*Config, error) {
	defaultCount, err := getEnvInt("QUIZ_DEFAULT_COUNT", 20)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		QuestionSource: getEnv("QUESTION_SOURCE", SourceFile),
		QuestionDir:    getEnv("QUESTION_DIR", "data"),
		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:        getEnv("MONGO_DB", "timedquiz"),
		RedisURI:       getEnv("REDIS_URI", "redis://localhost:6379/0"),
		StateStore:     getEnv("STATE_STORE", StoreMemory),
		SQLitePath:     getEnv("SQLITE_PATH", "quiz.db"),
		DefaultCount:   defaultCount,
		APIURL:         getEnv("QUIZ_API_URL", "http://localhost:8080"),
		CORS: CORS{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET, OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type"),
		},
	}

	for _, o := range overrides {
		if err := mergo.Merge(cfg, o, mergo.WithOverride); err != nil {
			return nil, errors.Wrap(err, "failed to apply config overrides")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unknown backends and negative counts
func (c *Config) Validate() error {
	switch c.QuestionSource {
	case SourceFile, SourceMongo:
	default:
		return errors.Errorf("unknown QUESTION_SOURCE %q", c.QuestionSource)
	}
	switch c.StateStore {
	case StoreMemory, StoreRedis, StoreSQLite:
	default:
		return errors.Errorf("unknown STATE_STORE %q", c.StateStore)
	}
	if c.DefaultCount < 0 {
		return errors.Errorf("QUIZ_DEFAULT_COUNT must not be negative, got %d", c.DefaultCount)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", key)
	}
	return n, nil
}
