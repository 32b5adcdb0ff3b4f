package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Client holds the CLI settings.
type Client struct {
	APIURL        string
	WSURL         string
	TokenFile     string
	LogFile       string
	LogLevel      string
	TrackInterval time.Duration
	FeedRetries   uint
}

// Server holds the dev API settings.
type Server struct {
	ListenAddr string
	Store      string
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	LogFile    string
	LogLevel   string

	HoursLimit     float64
	RefuelMiles    float64
	LocationPerSec float64

	// AdminUsername is created as an admin at startup when set.
	AdminUsername string
	AdminPassword string

	DB Database
}

type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	TimeZone string
}

// loadDotEnv reads .env when present; the environment always wins.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, relying on env vars")
	}
}

func LoadClient() Client {
	loadDotEnv()
	return Client{
		APIURL:        getEnv("LOGBOOK_API_URL", "http://localhost:8080/api"),
		WSURL:         getEnv("LOGBOOK_WS_URL", ""),
		TokenFile:     getEnv("LOGBOOK_TOKEN_FILE", defaultTokenFile()),
		LogFile:       getEnv("LOGBOOK_LOG_FILE", ""),
		LogLevel:      getEnv("LOGBOOK_LOG_LEVEL", "warn"),
		TrackInterval: getDuration("LOGBOOK_TRACK_INTERVAL", time.Second),
		FeedRetries:   uint(getInt("LOGBOOK_FEED_RETRIES", 5)),
	}
}

func LoadServer() Server {
	loadDotEnv()
	return Server{
		ListenAddr:     getEnv("LISTEN_ADDR", "0.0.0.0:8080"),
		Store:          getEnv("STORE", "memory"),
		JWTSecret:      getEnv("JWT_SECRET", "supersecret"),
		AccessTTL:      getDuration("JWT_ACCESS_TTL", time.Hour),
		RefreshTTL:     getDuration("JWT_REFRESH_TTL", 7*24*time.Hour),
		LogFile:        getEnv("LOG_FILE", "./logs/app.log"),
		LogLevel:       getEnv("LOG_LEVEL", "debug"),
		HoursLimit:     getFloat("HOURS_LIMIT", 70),
		RefuelMiles:    getFloat("REFUEL_MILES", 1000),
		LocationPerSec: getFloat("LOCATION_RATE", 1),
		AdminUsername:  getEnv("ADMIN_USERNAME", ""),
		AdminPassword:  getEnv("ADMIN_PASSWORD", ""),
		DB: Database{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "password"),
			Name:     getEnv("DB_NAME", "logbook"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			TimeZone: getEnv("DB_TIMEZONE", "UTC"),
		},
	}
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".logbook-tokens.json"
	}
	return filepath.Join(dir, "logbook", "tokens.json")
}

// getEnv reads an environment variable or returns the provided default
func getEnv(key, defaultValue string) string {
	if v, exists := os.LookupEnv(key); exists {
		return v
	}
	return defaultValue
}

func getDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	logrus.WithField("key", key).Warn("Invalid duration, using default")
	return def
}

func getInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		logrus.WithField("key", key).Warn("Invalid integer, using default")
		return def
	}
	return n
}

func getFloat(key string, def float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		logrus.WithField("key", key).Warn("Invalid number, using default")
		return def
	}
	return f
}
