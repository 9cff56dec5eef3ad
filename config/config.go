package config

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/ini.v1"
)

// Config holds application configuration
type Config struct {
	// API settings
	APIPort string

	// WhatsApp settings
	AuthDir           string
	ReconnectDelaySec int

	// Media settings
	UploadDir   string
	FFmpegPath  string
	MaxUploadMB int

	// Local database settings
	DatabasePath string

	// Optional MSSQL reporting mirror
	ReportingEnabled bool
	MSSQLServer      string
	MSSQLDatabase    string
	MSSQLUsername    string
	MSSQLPassword    string

	// Logging
	LogLevel string
}

// LoadConfig loads configuration from config.ini file or environment variables
func LoadConfig() *Config {
	config := &Config{
		APIPort: getEnv("API_PORT", "3001"),

		AuthDir:           getEnv("AUTH_DIR", "auth"),
		ReconnectDelaySec: 3,

		UploadDir:   getEnv("UPLOAD_DIR", "uploads"),
		FFmpegPath:  getEnv("FFMPEG_PATH", "ffmpeg"),
		MaxUploadMB: 16,

		DatabasePath: getEnv("DATABASE_PATH", "db"),

		ReportingEnabled: false,
		MSSQLServer:      getEnv("MSSQL_SERVER", "localhost"),
		MSSQLDatabase:    getEnv("MSSQL_DATABASE", "whatsapp_ptt"),
		MSSQLUsername:    getEnv("MSSQL_USERNAME", "sa"),
		MSSQLPassword:    getEnv("MSSQL_PASSWORD", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	// Try to load from config.ini file
	if err := loadFromINI(config); err != nil {
		log.Printf("Warning: Failed to load config.ini: %v", err)
		log.Println("Using environment variables or defaults")
	}

	return config
}

// loadFromINI loads configuration from config.ini file
func loadFromINI(config *Config) error {
	cfg, err := ini.Load("config.ini")
	if err != nil {
		return err
	}

	if apiSection := cfg.Section("api"); apiSection != nil {
		if port := apiSection.Key("port").String(); port != "" {
			config.APIPort = port
		}
	}

	if waSection := cfg.Section("whatsapp"); waSection != nil {
		if dir := waSection.Key("auth_dir").String(); dir != "" {
			config.AuthDir = dir
		}
		if delay := waSection.Key("reconnect_delay_seconds").String(); delay != "" {
			if val, err := strconv.Atoi(delay); err == nil && val > 0 {
				config.ReconnectDelaySec = val
			}
		}
	}

	if mediaSection := cfg.Section("media"); mediaSection != nil {
		if dir := mediaSection.Key("upload_dir").String(); dir != "" {
			config.UploadDir = dir
		}
		if path := mediaSection.Key("ffmpeg_path").String(); path != "" {
			config.FFmpegPath = path
		}
		if max := mediaSection.Key("max_upload_mb").String(); max != "" {
			if val, err := strconv.Atoi(max); err == nil && val > 0 {
				config.MaxUploadMB = val
			}
		}
	}

	if dbSection := cfg.Section("database"); dbSection != nil {
		if path := dbSection.Key("path").String(); path != "" {
			config.DatabasePath = path
		}
	}

	if repSection := cfg.Section("reporting"); repSection != nil {
		if enabled := repSection.Key("enabled").String(); enabled != "" {
			config.ReportingEnabled = enabled == "true" || enabled == "1"
		}
		if server := repSection.Key("mssql_server").String(); server != "" {
			config.MSSQLServer = server
		}
		if database := repSection.Key("mssql_database").String(); database != "" {
			config.MSSQLDatabase = database
		}
		if username := repSection.Key("mssql_username").String(); username != "" {
			config.MSSQLUsername = username
		}
		if password := repSection.Key("mssql_password").String(); password != "" {
			config.MSSQLPassword = password
		}
	}

	if logSection := cfg.Section("log"); logSection != nil {
		if level := logSection.Key("level").String(); level != "" {
			config.LogLevel = level
		}
	}

	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
