package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	OCR      OCRConfig
	LLM      LLMConfig
	Pipeline PipelineConfig
	Log      LogConfig
}

type ServerConfig struct {
	HTTPAddr    string
	GRPCAddr    string
	MaxUploadMB int
	HTTPTimeout time.Duration
}

// StoreConfig selects and tunes the result store backend.
type StoreConfig struct {
	Backend          string // memory | sqlite | postgres | redis
	DSN              string
	SQLitePath       string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration
}

type OCRConfig struct {
	Backend       string // tesseract | azure
	TesseractLang string
	DPI           int
	MaxPages      int
	HeicConverter string
	TessdataDir   string

	AzureEndpoint string
	AzureKey      string
	AzureLanguage string
	AzureEnhance  bool
}

type LLMConfig struct {
	Model             string
	APIKey            string
	BaseURL           string
	Temperature       float32
	Timeout           time.Duration
	RequestsPerSecond float64
}

type PipelineConfig struct {
	MaxRetries     int
	QueueWorkers   int
	QueueSize      int
	ProcessTimeout time.Duration
	PageWorkers    int
}

type LogConfig struct {
	Level  string
	Format string // text | json
}

// LoadConfig reads the environment after loading envFiles (".env" when none
// are given). Variables already set in the process win over file values.
func LoadConfig(envFiles ...string) *Config {
	_ = godotenv.Load(envFiles...)

	return &Config{
		Server: ServerConfig{
			HTTPAddr:    getEnv("HTTP_ADDR", ":8000"),
			GRPCAddr:    getEnv("GRPC_ADDR", ":9090"),
			MaxUploadMB: getEnvAsInt("MAX_FILE_SIZE_MB", 50),
			HTTPTimeout: getEnvAsDuration("HTTP_TIMEOUT", 5*time.Minute),
		},
		Store: StoreConfig{
			Backend:          strings.ToLower(getEnv("STORE_BACKEND", "memory")),
			DSN:              getEnv("DB_URL", ""),
			SQLitePath:       getEnv("SQLITE_PATH", "docparser.db"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
			RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword:    getEnv("REDIS_PASSWORD", ""),
			RedisDB:          getEnvAsInt("REDIS_DB", 0),
			RedisTTL:         getEnvAsDuration("REDIS_TTL", 0),
		},
		OCR: OCRConfig{
			Backend:       strings.ToLower(getEnv("OCR_BACKEND", "tesseract")),
			TesseractLang: getEnv("TESSERACT_LANG", "eng"),
			DPI:           getEnvAsInt("OCR_DPI", 300),
			MaxPages:      getEnvAsInt("OCR_MAX_PAGES", 0),
			HeicConverter: getEnv("HEIC_CONVERTER", "magick"),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			AzureEndpoint: getEnv("AZURE_CV_ENDPOINT", ""),
			AzureKey:      getEnv("AZURE_CV_KEY", ""),
			AzureLanguage: getEnv("AZURE_CV_LANGUAGE", "unk"),
			AzureEnhance:  getEnvAsBool("AZURE_CV_ENHANCE", true),
		},
		LLM: LLMConfig{
			Model:             getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:            getEnv("OPENAI_API_KEY", ""),
			BaseURL:           getEnv("OPENAI_BASE_URL", ""),
			Temperature:       getEnvAsFloat32("OPENAI_TEMPERATURE", 0.1),
			Timeout:           getEnvAsDuration("OPENAI_TIMEOUT", 60*time.Second),
			RequestsPerSecond: getEnvAsFloat64("OPENAI_RPS", 0),
		},
		Pipeline: PipelineConfig{
			MaxRetries:     getEnvAsInt("MAX_VALIDATION_RETRIES", 3),
			QueueWorkers:   getEnvAsInt("QUEUE_WORKERS", 4),
			QueueSize:      getEnvAsInt("QUEUE_SIZE", 256),
			ProcessTimeout: getEnvAsDuration("PROCESS_TIMEOUT", 3*time.Minute),
			PageWorkers:    getEnvAsInt("PAGE_WORKERS", 4),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "text")),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	v := NewValidator().
		Field("HTTP_ADDR", c.Server.HTTPAddr, Required).
		Field("GRPC_ADDR", c.Server.GRPCAddr, Required).
		Field("MAX_FILE_SIZE_MB", c.Server.MaxUploadMB, IntBetween(1, 1024)).
		Field("STORE_BACKEND", c.Store.Backend, OneOf("memory", "sqlite", "postgres", "redis")).
		Field("OCR_BACKEND", c.OCR.Backend, OneOf("tesseract", "azure")).
		Field("QUEUE_WORKERS", c.Pipeline.QueueWorkers, IntBetween(1, 256)).
		Field("QUEUE_SIZE", c.Pipeline.QueueSize, IntBetween(1, 1<<16)).
		Field("LOG_LEVEL", c.Log.Level, OneOf("debug", "info", "warn", "error")).
		Field("LOG_FORMAT", c.Log.Format, OneOf("text", "json"))

	switch c.Store.Backend {
	case "postgres":
		v.Field("DB_URL", c.Store.DSN, Required)
	case "sqlite":
		v.Field("SQLITE_PATH", c.Store.SQLitePath, Required)
	case "redis":
		v.Field("REDIS_ADDR", c.Store.RedisAddr, Required)
	}
	if c.OCR.Backend == "azure" {
		v.Field("AZURE_CV_ENDPOINT", c.OCR.AzureEndpoint, Required).
			Field("AZURE_CV_KEY", c.OCR.AzureKey, Required)
	}

	if v.HasErrors() {
		return ConfigError(v.ErrorMessage())
	}
	return nil
}

// RequireLLM is checked by commands that call the model.
func (c *Config) RequireLLM() error {
	if c.LLM.APIKey == "" {
		return ConfigError("OPENAI_API_KEY is required")
	}
	return nil
}
