package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds the application's configuration
type Config struct {
	TavilyAPIKey          string        `mapstructure:"TAVILY_API_KEY"`
	TavilyBaseURL         string        `mapstructure:"TAVILY_BASE_URL"`
	GeminiAPIKey          string        `mapstructure:"GEMINI_API_KEY"`
	GeminiBaseURL         string        `mapstructure:"GEMINI_BASE_URL"`
	EmbeddingModel        string        `mapstructure:"EMBEDDING_MODEL"`
	GenerationModel       string        `mapstructure:"GENERATION_MODEL"`
	EmbeddingDim          int           `mapstructure:"EMBEDDING_DIM"`
	SearchDomains         []string      `mapstructure:"SEARCH_DOMAINS"`
	RestrictedSiteLabel   string        `mapstructure:"RESTRICTED_SITE_LABEL"`
	SearchDepth           string        `mapstructure:"SEARCH_DEPTH"`
	ChunksPerSource       int           `mapstructure:"CHUNKS_PER_SOURCE"`
	MaxContentChars       int           `mapstructure:"MAX_CONTENT_CHARS"`
	TitleMaxChars         int           `mapstructure:"TITLE_MAX_CHARS"`
	ChunkSize             int           `mapstructure:"CHUNK_SIZE"`
	ChunkOverlap          int           `mapstructure:"CHUNK_OVERLAP"`
	EmbedBatchSize        int           `mapstructure:"EMBED_BATCH_SIZE"`
	EmbedBatchDelay       time.Duration `mapstructure:"EMBED_BATCH_DELAY_SECONDS"`
	CompressDelay         time.Duration `mapstructure:"COMPRESS_DELAY_SECONDS"`
	CompressInputChars    int           `mapstructure:"COMPRESS_INPUT_CHARS"`
	TopK                  int           `mapstructure:"TOP_K"`
	IndexStrategy         string        `mapstructure:"INDEX_STRATEGY"`
	ExtractCacheSize      int           `mapstructure:"EXTRACT_CACHE_SIZE"`
	SearchTimeout         time.Duration `mapstructure:"SEARCH_TIMEOUT"`
	LLMRequestTimeout     time.Duration `mapstructure:"LLM_REQUEST_TIMEOUT"`
	MaxRetries            int           `mapstructure:"MAX_RETRIES"`
	RetryDelaySeconds     time.Duration `mapstructure:"RETRY_DELAY_SECONDS"`
	LLMBackoffMaxSeconds  time.Duration `mapstructure:"LLM_BACKOFF_MAX_SECONDS"`
	LLMBackoffJitterRatio float64       `mapstructure:"LLM_BACKOFF_JITTER_RATIO"`
	WebPort               int           `mapstructure:"WEB_PORT"`
	LogLevel              string        `mapstructure:"LOG_LEVEL"`
}

func Load(logger *zap.Logger) *Config {
	var config Config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")        // For running locally
	viper.AddConfigPath("./config") // Common config folder
	viper.AutomaticEnv()

	// Set default values. The API keys default to empty so AutomaticEnv can
	// materialize them; viper only unmarshals keys it knows about.
	viper.SetDefault("TAVILY_API_KEY", "")
	viper.SetDefault("GEMINI_API_KEY", "")
	viper.SetDefault("TAVILY_BASE_URL", "https://api.tavily.com")
	viper.SetDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta")
	viper.SetDefault("EMBEDDING_MODEL", "gemini-embedding-001")
	viper.SetDefault("GENERATION_MODEL", "gemini-2.5-flash")
	viper.SetDefault("EMBEDDING_DIM", 768)
	viper.SetDefault("SEARCH_DOMAINS", []string{"iyokannet.jp"})
	viper.SetDefault("RESTRICTED_SITE_LABEL", "いよ観ネット")
	viper.SetDefault("SEARCH_DEPTH", "advanced")
	viper.SetDefault("CHUNKS_PER_SOURCE", 3)
	viper.SetDefault("MAX_CONTENT_CHARS", 10000)
	viper.SetDefault("TITLE_MAX_CHARS", 180)
	viper.SetDefault("CHUNK_SIZE", 800)
	viper.SetDefault("CHUNK_OVERLAP", 120)
	viper.SetDefault("EMBED_BATCH_SIZE", 100)
	viper.SetDefault("EMBED_BATCH_DELAY_SECONDS", 5)
	viper.SetDefault("COMPRESS_DELAY_SECONDS", 6)
	viper.SetDefault("COMPRESS_INPUT_CHARS", 4000)
	viper.SetDefault("TOP_K", 8)
	viper.SetDefault("INDEX_STRATEGY", "chromem")
	viper.SetDefault("EXTRACT_CACHE_SIZE", 256)
	viper.SetDefault("SEARCH_TIMEOUT", 60)
	viper.SetDefault("LLM_REQUEST_TIMEOUT", 120)
	viper.SetDefault("MAX_RETRIES", 3)
	viper.SetDefault("RETRY_DELAY_SECONDS", 2)
	viper.SetDefault("LLM_BACKOFF_MAX_SECONDS", 30)
	viper.SetDefault("LLM_BACKOFF_JITTER_RATIO", 0.1)
	viper.SetDefault("WEB_PORT", 8090)
	viper.SetDefault("LOG_LEVEL", "info")

	if err := viper.ReadInConfig(); err != nil {
		if logger != nil {
			logger.Warn("Could not read config file, using defaults/env vars", zap.Error(err))
		}
	}

	if err := viper.Unmarshal(&config); err != nil {
		// Config unmarshaling is critical - fail fast during bootstrap
		if logger != nil {
			logger.Fatal("Unable to decode config into struct", zap.Error(err))
		} else {
			// Fallback if logger not available (should not happen in practice)
			fmt.Fprintf(os.Stderr, "FATAL: Unable to decode config into struct: %v\n", err)
			os.Exit(1)
		}
	}

	// Normalize the restricted domain list.
	if len(config.SearchDomains) > 0 {
		cleaned := make([]string, 0, len(config.SearchDomains))
		for _, domain := range config.SearchDomains {
			domain = strings.TrimSpace(domain)
			if domain != "" {
				cleaned = append(cleaned, domain)
			}
		}
		config.SearchDomains = cleaned
	}

	// The chunk window must make forward progress.
	if config.ChunkOverlap >= config.ChunkSize {
		if logger != nil {
			logger.Warn("Chunk overlap must be smaller than chunk size, resetting to defaults",
				zap.Int("chunk_size", config.ChunkSize),
				zap.Int("chunk_overlap", config.ChunkOverlap))
		}
		config.ChunkSize = 800
		config.ChunkOverlap = 120
	}

	// Convert seconds to proper time.Duration
	config.EmbedBatchDelay = config.EmbedBatchDelay * time.Second
	config.CompressDelay = config.CompressDelay * time.Second
	config.SearchTimeout = config.SearchTimeout * time.Second
	config.LLMRequestTimeout = config.LLMRequestTimeout * time.Second
	config.RetryDelaySeconds = config.RetryDelaySeconds * time.Second
	config.LLMBackoffMaxSeconds = config.LLMBackoffMaxSeconds * time.Second

	return &config
}
