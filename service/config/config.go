// Package config loads and validates process configuration from the
// environment. All required fields are validated at startup so
// misconfiguration fails fast rather than surfacing as a confusing
// runtime error three phases into an ingestion run.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Process
	LogLevel string

	// Database
	DatabaseURL string

	// NATS
	NATSURL string

	// Solana / Helius
	SolanaRPCURL  string
	HeliusAPIKey  string
	HeliusBaseURL string

	// Temporal
	TemporalHost      string
	TemporalNamespace string
	TemporalTaskQueue string

	// Rate limiting (C1)
	RPS float64

	// RPC client (C2)
	RPCMaxRetries    int
	RPCRequestTimeout time.Duration

	// Ingestion engine (C6)
	ParseBatchLimit      int
	InnerConcurrency     int
	OuterWalletConcurrency int
	IndexingWaitMS       int
	MicroBatchSize       int
	DiagnosticsDir       string
	DiagnosticsEnabled   bool

	// Wallet sync (C7)
	DefaultTargetTxCount int
	MinFullFetchCap      int

	// Correlation analyzer (C9)
	PopularPercent             float64
	MinOccurrencesForPopular   int
	SyncTimeWindowSeconds      int64
	WeightSharedNonObvious     float64
	WeightSyncEvents           float64
	MinSharedNonObvious        int
	MinSyncEvents              int
	MinClusterScoreThreshold   float64
	CorrelationBotFilterMaxDailyTokens int
	ExcludedMints              []string

	// Mint participants (C11)
	MintParticipantsWindowSeconds               int64
	MintParticipantsLimitBuyers                 int
	MintParticipantsTxCountLimit                int
	MintParticipantsCandidateWindow             int
	MintParticipantsCreationScan                string
	MintParticipantsCreationSkipIfTokenAccountsOver int
	MintParticipantsOutput                      string
	MintParticipantsOutfile                     string
}

// Load reads configuration from environment variables and validates all required fields.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		errs = append(errs, fmt.Errorf("DATABASE_URL is required"))
	}

	cfg.NATSURL = getEnvOrDefault("NATS_URL", "nats://localhost:4222")

	cfg.SolanaRPCURL = os.Getenv("SOLANA_RPC_URL")
	if cfg.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SOLANA_RPC_URL is required"))
	}
	cfg.HeliusAPIKey = os.Getenv("HELIUS_API_KEY")
	cfg.HeliusBaseURL = getEnvOrDefault("HELIUS_BASE_URL", "https://api.helius.xyz")

	cfg.TemporalHost = getEnvOrDefault("TEMPORAL_HOST", "localhost:7233")
	cfg.TemporalNamespace = getEnvOrDefault("TEMPORAL_NAMESPACE", "default")
	cfg.TemporalTaskQueue = getEnvOrDefault("TEMPORAL_TASK_QUEUE", "solwatch-ingestion")

	rps, err := parseFloat("SOLANA_RPC_RPS", "10")
	appendErr(&errs, err)
	cfg.RPS = rps

	rpcRetries, err := parseInt("RPC_MAX_RETRIES", 3)
	appendErr(&errs, err)
	cfg.RPCMaxRetries = rpcRetries

	rpcTimeout, err := parseDuration("RPC_REQUEST_TIMEOUT", "30s")
	appendErr(&errs, err)
	cfg.RPCRequestTimeout = rpcTimeout

	parseBatchLimit, err := parseInt("INGEST_PARSE_BATCH_LIMIT", 100)
	appendErr(&errs, err)
	cfg.ParseBatchLimit = parseBatchLimit

	innerConcurrency, err := parseInt("INGEST_INNER_CONCURRENCY", 4)
	appendErr(&errs, err)
	cfg.InnerConcurrency = innerConcurrency

	outerWalletConcurrency, err := parseInt("INGEST_OUTER_WALLET_CONCURRENCY", 3)
	appendErr(&errs, err)
	cfg.OuterWalletConcurrency = outerWalletConcurrency

	indexingWaitMS, err := parseInt("INGEST_INDEXING_WAIT_MS", 1500)
	appendErr(&errs, err)
	cfg.IndexingWaitMS = indexingWaitMS

	microBatchSize, err := parseInt("INGEST_MICRO_BATCH_SIZE", 10)
	appendErr(&errs, err)
	cfg.MicroBatchSize = microBatchSize

	cfg.DiagnosticsDir = getEnvOrDefault("INGEST_DIAGNOSTICS_DIR", "./diagnostics")
	cfg.DiagnosticsEnabled = getEnvOrDefault("INGEST_DIAGNOSTICS_ENABLED", "false") == "true"

	defaultTargetTxCount, err := parseInt("SYNC_DEFAULT_TARGET_TX_COUNT", 200)
	appendErr(&errs, err)
	cfg.DefaultTargetTxCount = defaultTargetTxCount

	minFullFetchCap, err := parseInt("SYNC_MIN_FULL_FETCH_CAP", 300)
	appendErr(&errs, err)
	cfg.MinFullFetchCap = minFullFetchCap

	popularPercent, err := parseFloat("CORRELATION_POPULAR_PERCENT", "0.02")
	appendErr(&errs, err)
	cfg.PopularPercent = popularPercent

	minOccurrences, err := parseInt("CORRELATION_MIN_OCCURRENCES_FOR_POPULAR", 50)
	appendErr(&errs, err)
	cfg.MinOccurrencesForPopular = minOccurrences

	syncWindow, err := parseInt64("CORRELATION_SYNC_TIME_WINDOW_SECONDS", 60)
	appendErr(&errs, err)
	cfg.SyncTimeWindowSeconds = syncWindow

	weightShared, err := parseFloat("CORRELATION_WEIGHT_SHARED_NON_OBVIOUS", "1.0")
	appendErr(&errs, err)
	cfg.WeightSharedNonObvious = weightShared

	weightSync, err := parseFloat("CORRELATION_WEIGHT_SYNC_EVENTS", "2.0")
	appendErr(&errs, err)
	cfg.WeightSyncEvents = weightSync

	minShared, err := parseInt("CORRELATION_MIN_SHARED_NON_OBVIOUS", 1)
	appendErr(&errs, err)
	cfg.MinSharedNonObvious = minShared

	minSync, err := parseInt("CORRELATION_MIN_SYNC_EVENTS", 1)
	appendErr(&errs, err)
	cfg.MinSyncEvents = minSync

	minClusterScore, err := parseFloat("CORRELATION_MIN_CLUSTER_SCORE_THRESHOLD", "3.0")
	appendErr(&errs, err)
	cfg.MinClusterScoreThreshold = minClusterScore

	// Canonical bot-filter threshold. spec.md's design notes flag this constant
	// as duplicated with diverging defaults across the original's modules;
	// this is the single source of truth going forward.
	botFilterMax, err := parseInt("CORRELATION_BOT_FILTER_MAX_DAILY_TOKENS", 50)
	appendErr(&errs, err)
	cfg.CorrelationBotFilterMaxDailyTokens = botFilterMax

	cfg.ExcludedMints = []string{
		"So11111111111111111111111111111111111111112", // WSOL is accounted as SOL, not a correlation signal
	}

	windowSeconds, err := parseInt64("MINT_PARTICIPANTS_WINDOW_SECONDS", 300)
	appendErr(&errs, err)
	cfg.MintParticipantsWindowSeconds = windowSeconds

	limitBuyers, err := parseInt("MINT_PARTICIPANTS_LIMIT_BUYERS", 100)
	appendErr(&errs, err)
	cfg.MintParticipantsLimitBuyers = limitBuyers

	txCountLimit, err := parseInt("MINT_PARTICIPANTS_TX_COUNT_LIMIT", 1000)
	appendErr(&errs, err)
	cfg.MintParticipantsTxCountLimit = txCountLimit

	candidateWindow, err := parseInt("MINT_PARTICIPANTS_CANDIDATE_WINDOW", 2000)
	appendErr(&errs, err)
	cfg.MintParticipantsCandidateWindow = candidateWindow

	cfg.MintParticipantsCreationScan = getEnvOrDefault("MINT_PARTICIPANTS_CREATION_SCAN", "none")
	if cfg.MintParticipantsCreationScan != "none" && cfg.MintParticipantsCreationScan != "full" {
		errs = append(errs, fmt.Errorf("MINT_PARTICIPANTS_CREATION_SCAN must be 'none' or 'full'"))
	}

	creationSkip, err := parseInt("MINT_PARTICIPANTS_CREATION_SKIP_IF_TOKEN_ACCOUNTS_OVER", 200)
	appendErr(&errs, err)
	cfg.MintParticipantsCreationSkipIfTokenAccountsOver = creationSkip

	cfg.MintParticipantsOutput = getEnvOrDefault("MINT_PARTICIPANTS_OUTPUT", "jsonl")
	if cfg.MintParticipantsOutput != "jsonl" && cfg.MintParticipantsOutput != "csv" && cfg.MintParticipantsOutput != "none" {
		errs = append(errs, fmt.Errorf("MINT_PARTICIPANTS_OUTPUT must be 'jsonl', 'csv' or 'none'"))
	}
	cfg.MintParticipantsOutfile = os.Getenv("MINT_PARTICIPANTS_OUTFILE")

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

func appendErr(errs *[]error, err error) {
	if err != nil {
		*errs = append(*errs, err)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}

func parseInt64(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}

func parseFloat(key, defaultValue string) (float64, error) {
	value := getEnvOrDefault(key, defaultValue)
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid float %q: %w", key, value, err)
	}
	return result, nil
}
