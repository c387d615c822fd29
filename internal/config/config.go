package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr      string
	JWTSecret string
	TokenTTL  time.Duration
	LogLevel  string

	MySQLDSN    string
	MongoURI    string
	MongoDBName string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RoleCacheTTL  time.Duration

	// RequireConfirmedEmail holds self-registered accounts until an admin
	// confirms them.
	RequireConfirmedEmail bool
}

// Load reads the env file named by $START (".env" when unset) and exits if a
// required variable is missing.
func Load() *Config {
	file := os.Getenv("START")
	if file == "" {
		file = ".env"
	}
	if err := godotenv.Load(file); err != nil {
		log.Printf("env file %s not loaded: %v", file, err)
	}

	cfg, err := FromEnv()
	if err != nil {
		log.Fatalf("%v", err)
	}
	return cfg
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		Addr:          getenv("ADDR", ":8082"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		MySQLDSN:      os.Getenv("MYSQL_DSN"),
		MongoURI:      os.Getenv("MONGO_URI"),
		MongoDBName:   os.Getenv("MONGO_DB_NAME"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
	}

	required := []struct{ name, value string }{
		{"JWT_SECRET", cfg.JWTSecret},
		{"MYSQL_DSN", cfg.MySQLDSN},
		{"MONGO_URI", cfg.MongoURI},
		{"MONGO_DB_NAME", cfg.MongoDBName},
		{"REDIS_ADDR", cfg.RedisAddr},
	}
	for _, r := range required {
		if r.value == "" {
			return nil, fmt.Errorf("%s is not set in environment", r.name)
		}
	}

	var err error
	if cfg.TokenTTL, err = duration("TOKEN_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.RoleCacheTTL, err = duration("ROLE_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if cfg.RedisDB, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("REDIS_DB: %w", err)
		}
	}
	if v := os.Getenv("REQUIRE_CONFIRMED_EMAIL"); v != "" {
		if cfg.RequireConfirmedEmail, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("REQUIRE_CONFIRMED_EMAIL: %w", err)
		}
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func duration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
