package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/lorios22/twitter-news-classifier/internal/domain"
)

// Load reads the .env file specified by CLASSIFIER_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("CLASSIFIER_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	return intEnv("SERVER_PORT", 8080)
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	return stringEnv("LOG_LEVEL", "info")
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	return intEnv("RATE_LIMIT_BURST", 20)
}

// APIKeys returns the accepted API keys. An empty list disables auth.
func APIKeys() []string {
	var keys []string
	for _, k := range strings.Split(os.Getenv("API_KEYS"), ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

func AnthropicAPIKey() string {
	return os.Getenv("ANTHROPIC_API_KEY")
}

func GeminiAPIKey() string {
	return os.Getenv("GEMINI_API_KEY")
}

func CerebrasAPIKey() string {
	return os.Getenv("CEREBRAS_API_KEY")
}

// LLMProvider returns the configured LLM provider.
// Defaults to "openai" if not set.
// Valid values: openai, anthropic, gemini, cerebras, mock
func LLMProvider() string {
	return stringEnv("LLM_PROVIDER", "openai")
}

// LLMAPIKey returns the API key for the configured LLM provider.
func LLMAPIKey() string {
	switch LLMProvider() {
	case "anthropic":
		return AnthropicAPIKey()
	case "gemini":
		return GeminiAPIKey()
	case "cerebras":
		return CerebrasAPIKey()
	case "mock":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

// MemoryBackend selects the memory KV store: memory, sqlite or postgres.
func MemoryBackend() string {
	return stringEnv("MEMORY_BACKEND", "memory")
}

// RunStore selects the run repository: file or postgres.
func RunStore() string {
	return stringEnv("RUN_STORE", "file")
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func SQLitePath() string {
	return stringEnv("SQLITE_PATH", "data/memory.db")
}

func MigrationsPath() string {
	return stringEnv("MIGRATIONS_PATH", "migrations")
}

func RunsDir() string {
	return stringEnv("RUNS_DIR", "results/runs")
}

func AgentTimeout() time.Duration {
	return durationEnv("AGENT_TIMEOUT", 30*time.Second)
}

func DependentTimeout() time.Duration {
	return durationEnv("DEPENDENT_TIMEOUT", 60*time.Second)
}

func AggregateTimeout() time.Duration {
	return durationEnv("AGGREGATE_TIMEOUT", 300*time.Second)
}

// RetryPolicy builds the batch retry policy from BATCH_* and retry env vars.
func RetryPolicy() domain.RetryPolicy {
	def := domain.DefaultRetryPolicy()
	return domain.RetryPolicy{
		MaxRetries:        nonNegativeIntEnv("MAX_RETRIES", def.MaxRetries),
		RetryDelay:        durationEnv("RETRY_DELAY", def.RetryDelay),
		BatchSize:         intEnv("BATCH_SIZE", def.BatchSize),
		BatchPause:        durationEnv("BATCH_PAUSE", def.BatchPause),
		Concurrency:       intEnv("BATCH_CONCURRENCY", def.Concurrency),
		ContinueOnFailure: boolEnv("CONTINUE_ON_FAILURE", def.ContinueOnFailure),
		SaveIntermediate:  boolEnv("SAVE_INTERMEDIATE", def.SaveIntermediate),
	}
}

// MemoryRetention is the pruning horizon. Defaults to 30 days.
func MemoryRetention() time.Duration {
	return time.Duration(intEnv("MEMORY_RETENTION_DAYS", 30)) * 24 * time.Hour
}

// MemoryPruneInterval is the background pruning period; zero disables it.
func MemoryPruneInterval() time.Duration {
	return durationEnv("MEMORY_PRUNE_INTERVAL", 0)
}

// BatchJobRetention is how long finished API batch jobs stay queryable.
// Defaults to 1 hour.
func BatchJobRetention() time.Duration {
	if d := durationEnv("BATCH_JOB_RETENTION", time.Hour); d > 0 {
		return d
	}
	return time.Hour
}

func RedditUserAgent() string {
	return stringEnv("REDDIT_USER_AGENT", "twitter-news-classifier/1.0")
}

func RedditRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("REDDIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 1
	}
	return rps
}

func BinanceBaseURL() string {
	return stringEnv("BINANCE_BASE_URL", "https://api.binance.com")
}

// AgentsFile is the optional YAML agent catalog path.
func AgentsFile() string {
	return os.Getenv("AGENTS_FILE")
}

func stringEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func nonNegativeIntEnv(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n < 0 {
		return def
	}
	return n
}

func boolEnv(key string, def bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return b
}

// durationEnv accepts Go durations ("45s") or plain seconds ("45").
func durationEnv(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil && secs >= 0 {
		return time.Duration(secs * float64(time.Second))
	}
	if d, err := time.ParseDuration(v); err == nil && d >= 0 {
		return d
	}
	return def
}
