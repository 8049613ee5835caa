package main

import "os"

// Config holds application configuration.
type Config struct {
	Addr      string
	Database  string
	SecretKey string
	LogLevel  string
}

func loadConfig() *Config {
	return &Config{
		Addr:      getEnv("ADDR", ":5000"),
		Database:  getEnv("DATABASE", "/tmp/tweetapp.db"),
		SecretKey: getEnv("SECRET_KEY", "development key"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
