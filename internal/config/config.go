// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/andresuchdata/stockcast/internal/normalize"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	DataSource DataSourceConfig
	Cache      CacheConfig
	Messaging  MessagingConfig
	Database   DatabaseConfig
	Storage    StorageConfig
	Drive      DriveConfig
	Alerts     AlertsConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

// TabNames are the workbook tab names per entity.
type TabNames struct {
	Products  string
	Inventory string
	Orders    string
	History   string
	Minimums  string
}

type DataSourceConfig struct {
	Kind            string
	SpreadsheetID   string
	CredentialsJSON string
	WorkbookPath    string
	ColumnsFile     string
	Tabs            TabNames
}

type CacheConfig struct {
	Enabled       bool
	Backend       string
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	TTLSeconds    int
}

type MessagingConfig struct {
	Enabled    bool
	Brokers    []string
	AlertTopic string
	OrderTopic string
}

type DatabaseConfig struct {
	Enabled  bool
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
}

type DriveConfig struct {
	FolderPath string
	FileName   string
}

type AlertsConfig struct {
	ScanInterval time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()
		instance = read()
	})

	return instance
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_MODE", "debug")
	viper.SetDefault("SERVER_READ_TIMEOUT", 15)
	viper.SetDefault("SERVER_WRITE_TIMEOUT", 30)
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})

	viper.SetDefault("DATA_SOURCE_KIND", "sheets")
	viper.SetDefault("SPREADSHEET_ID", "")
	viper.SetDefault("GOOGLE_CREDENTIALS_JSON", "")
	viper.SetDefault("GOOGLE_CREDENTIALS_FILE", "")
	viper.SetDefault("WORKBOOK_PATH", "./data/stock.xlsx")
	viper.SetDefault("COLUMNS_FILE", "")
	viper.SetDefault("TAB_PRODUCTS", "Products")
	viper.SetDefault("TAB_INVENTORY", "Inventory")
	viper.SetDefault("TAB_ORDERS", "Orders")
	viper.SetDefault("TAB_HISTORY", "History")
	viper.SetDefault("TAB_MINIMUMS", "Minimums")

	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("CACHE_BACKEND", "redis")
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_HOST", "127.0.0.1")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_TTL_SECONDS", 60)

	viper.SetDefault("KAFKA_ENABLED", false)
	viper.SetDefault("KAFKA_BROKERS", []string{"localhost:9092"})
	viper.SetDefault("KAFKA_ALERT_TOPIC", "stock.alerts")
	viper.SetDefault("KAFKA_ORDER_TOPIC", "stock.orders")

	viper.SetDefault("DB_ENABLED", false)
	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "stockcast")
	viper.SetDefault("DB_SSLMODE", "disable")

	viper.SetDefault("S3_ENDPOINT", "")
	viper.SetDefault("S3_ACCESS_KEY", "")
	viper.SetDefault("S3_SECRET_KEY", "")
	viper.SetDefault("S3_BUCKET", "")
	viper.SetDefault("S3_REGION", "")
	viper.SetDefault("S3_USE_SSL", true)
	viper.SetDefault("S3_PREFIX", "forecasts")

	viper.SetDefault("DRIVE_FOLDER_PATH", "")
	viper.SetDefault("DRIVE_FILE_NAME", "stock.xlsx")

	viper.SetDefault("ALERT_SCAN_INTERVAL", "0s")

	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "console")
}

func read() *Config {
	setDefaults()

	// Read from environment variables
	viper.AutomaticEnv()

	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Mode:           viper.GetString("SERVER_MODE"),
			ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: stringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		DataSource: DataSourceConfig{
			Kind:            strings.ToLower(viper.GetString("DATA_SOURCE_KIND")),
			SpreadsheetID:   viper.GetString("SPREADSHEET_ID"),
			CredentialsJSON: credentialsJSON(),
			WorkbookPath:    viper.GetString("WORKBOOK_PATH"),
			ColumnsFile:     viper.GetString("COLUMNS_FILE"),
			Tabs: TabNames{
				Products:  viper.GetString("TAB_PRODUCTS"),
				Inventory: viper.GetString("TAB_INVENTORY"),
				Orders:    viper.GetString("TAB_ORDERS"),
				History:   viper.GetString("TAB_HISTORY"),
				Minimums:  viper.GetString("TAB_MINIMUMS"),
			},
		},
		Cache: CacheConfig{
			Enabled:       viper.GetBool("CACHE_ENABLED"),
			Backend:       strings.ToLower(viper.GetString("CACHE_BACKEND")),
			RedisURL:      viper.GetString("REDIS_URL"),
			RedisHost:     viper.GetString("REDIS_HOST"),
			RedisPort:     viper.GetString("REDIS_PORT"),
			RedisPassword: viper.GetString("REDIS_PASSWORD"),
			RedisDB:       viper.GetInt("REDIS_DB"),
			TTLSeconds:    viper.GetInt("CACHE_TTL_SECONDS"),
		},
		Messaging: MessagingConfig{
			Enabled:    viper.GetBool("KAFKA_ENABLED"),
			Brokers:    stringSlice("KAFKA_BROKERS"),
			AlertTopic: viper.GetString("KAFKA_ALERT_TOPIC"),
			OrderTopic: viper.GetString("KAFKA_ORDER_TOPIC"),
		},
		Database: DatabaseConfig{
			Enabled:  viper.GetBool("DB_ENABLED"),
			Driver:   viper.GetString("DB_DRIVER"),
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			DBName:   viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		Storage: StorageConfig{
			Endpoint:  viper.GetString("S3_ENDPOINT"),
			AccessKey: viper.GetString("S3_ACCESS_KEY"),
			SecretKey: viper.GetString("S3_SECRET_KEY"),
			Bucket:    viper.GetString("S3_BUCKET"),
			Region:    viper.GetString("S3_REGION"),
			UseSSL:    viper.GetBool("S3_USE_SSL"),
			Prefix:    viper.GetString("S3_PREFIX"),
		},
		Drive: DriveConfig{
			FolderPath: viper.GetString("DRIVE_FOLDER_PATH"),
			FileName:   viper.GetString("DRIVE_FILE_NAME"),
		},
		Alerts: AlertsConfig{
			ScanInterval: viper.GetDuration("ALERT_SCAN_INTERVAL"),
		},
		Log: LogConfig{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
		},
	}
}

// stringSlice reads a list that may arrive from the environment as a
// comma-separated string.
func stringSlice(key string) []string {
	var out []string
	for _, item := range viper.GetStringSlice(key) {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func credentialsJSON() string {
	if raw := viper.GetString("GOOGLE_CREDENTIALS_JSON"); raw != "" {
		return raw
	}
	path := viper.GetString("GOOGLE_CREDENTIALS_FILE")
	if path == "" {
		return ""
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(b)
}

// LoadColumnRules reads per-kind column rule overrides from a YAML file:
//
//	minimum:
//	  - field: sku
//	    exact: ["Item"]
//	    default: Item
//
// An empty path yields no overrides.
func LoadColumnRules(path string) (map[normalize.Kind][]normalize.ColumnRule, error) {
	if path == "" {
		return nil, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read columns file %s: %w", path, err)
	}

	kinds := []normalize.Kind{
		normalize.KindProduct,
		normalize.KindInventory,
		normalize.KindHistory,
		normalize.KindMinimum,
		normalize.KindOrder,
	}
	out := make(map[normalize.Kind][]normalize.ColumnRule)
	for _, kind := range kinds {
		if !v.IsSet(string(kind)) {
			continue
		}
		var rules []normalize.ColumnRule
		if err := v.UnmarshalKey(string(kind), &rules); err != nil {
			return nil, fmt.Errorf("decode %s column rules: %w", kind, err)
		}
		out[kind] = rules
	}
	return out, nil
}
