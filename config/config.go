package config

import (
	"os"
	"strings"
)

// Config holds the application configuration
type Config struct {
	// Database
	DatabaseURL string

	// Server
	ServerPort string

	// PBS tools on the login node
	QsubPath  string
	QstatPath string
	QdelPath  string

	// Run layout
	RunRoot      string
	LauncherPath string

	// Output files registered after a run finishes
	ArtifactPatterns []string
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		DatabaseURL:      getEnv("DATABASE_URL", "postgres://localhost/pbs_orchestrator?sslmode=disable"),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		QsubPath:         getEnv("QSUB_PATH", "qsub"),
		QstatPath:        getEnv("QSTAT_PATH", "qstat"),
		QdelPath:         getEnv("QDEL_PATH", "qdel"),
		RunRoot:          getEnv("RUN_ROOT", "/var/lib/pbs-orchestrator/runs"),
		LauncherPath:     getEnv("LAUNCHER_PATH", "/usr/local/bin/pbs-launcher"),
		ArtifactPatterns: getEnvList("ARTIFACT_PATTERNS"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
