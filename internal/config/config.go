package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Data backends understood by DATA_BACKEND.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendSheets = "sheets"
	BackendMemory = "memory"
)

var validBackends = []string{BackendFile, BackendSQLite, BackendSheets, BackendMemory}

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	ShutdownTimeout    time.Duration
	// TrustedProxies are extra CIDRs whose X-Forwarded-For is believed.
	TrustedProxies []string

	// Record source
	DataBackend     string
	OperationsPath  string
	OperationsSheet string
	SQLiteDBPath    string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleOperationsRange    string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// User settings
	SettingsPath string

	// Rate providers
	CurrencyRatesURL string
	StockAPIURL      string
	StockAPIKey      string
	HTTPTimeout      time.Duration
	RatesCacheTTL    time.Duration

	// AMQP
	AMQPURL          string
	AMQPExchange     string
	AMQPRequestQueue string
	AMQPResultQueue  string
	AMQPPrefetch     int

	// Worker: re-import OPERATIONS_PATH into SQLite on this interval; 0 disables.
	ImportInterval time.Duration

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES"),

		DataBackend:     getEnv("DATA_BACKEND", BackendFile),
		OperationsPath:  getEnv("OPERATIONS_PATH", "data/operations.xlsx"),
		OperationsSheet: getEnv("OPERATIONS_SHEET", ""),
		SQLiteDBPath:    getEnv("SQLITE_DB_PATH", "./data/kopilka.db"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleOperationsRange:    getEnv("GOOGLE_OPERATIONS_RANGE", "A:O"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),

		SettingsPath: getEnv("SETTINGS_PATH", "user_settings.json"),

		CurrencyRatesURL: getEnv("CURRENCY_RATES_URL", "https://www.cbr-xml-daily.ru/daily_json.js"),
		StockAPIURL:      getEnv("STOCK_API_URL", "https://www.alphavantage.co/query"),
		// API-key is the variable name older .env files use.
		StockAPIKey:   getEnv("STOCK_API_KEY", os.Getenv("API-key")),
		HTTPTimeout:   getEnvDuration("HTTP_TIMEOUT", 10*time.Second),
		RatesCacheTTL: getEnvDuration("RATES_CACHE_TTL", 5*time.Minute),

		AMQPURL:          getEnv("AMQP_URL", ""),
		AMQPExchange:     getEnv("AMQP_EXCHANGE", "kopilka"),
		AMQPRequestQueue: getEnv("AMQP_REQUEST_QUEUE", "report_requests"),
		AMQPResultQueue:  getEnv("AMQP_RESULT_QUEUE", "report_results"),
		AMQPPrefetch:     getEnvInt("AMQP_PREFETCH", 4),

		ImportInterval: getEnvDuration("IMPORT_INTERVAL", 0),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendFile:
		if c.OperationsPath == "" {
			errors = append(errors, "operations path cannot be empty when using file backend")
		} else {
			switch strings.ToLower(filepath.Ext(c.OperationsPath)) {
			case ".xlsx", ".xlsm", ".csv", ".txt":
			default:
				errors = append(errors, fmt.Sprintf("unsupported operations file '%s': must be .xlsx or .csv", c.OperationsPath))
			}
		}

	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}

	case BackendSheets:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets backend")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	for name, raw := range map[string]string{
		"currency rates URL": c.CurrencyRatesURL,
		"stock API URL":      c.StockAPIURL,
	} {
		if u, err := url.Parse(raw); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid %s '%s': must be an http(s) URL", name, raw))
		}
	}

	if c.HTTPTimeout < 100*time.Millisecond || c.HTTPTimeout > 2*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid HTTP timeout %v: must be between 100ms and 2m", c.HTTPTimeout))
	}
	if c.RatesCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid rates cache TTL %v: must not be negative", c.RatesCacheTTL))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPRequestQueue == "" || c.AMQPResultQueue == "" {
			errors = append(errors, "AMQP request and result queue names cannot be empty when AMQP URL is provided")
		}
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	if c.AMQPPrefetch < 0 {
		errors = append(errors, fmt.Sprintf("invalid AMQP prefetch %d: must not be negative", c.AMQPPrefetch))
	}

	if c.ImportInterval < 0 {
		errors = append(errors, fmt.Sprintf("invalid import interval %v: must not be negative", c.ImportInterval))
	} else if c.ImportInterval > 0 {
		if c.DataBackend != BackendSQLite {
			errors = append(errors, "import interval requires the sqlite backend")
		}
		if c.OperationsPath == "" {
			errors = append(errors, "import interval requires an operations path to import from")
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
