package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"solanaetl/internal/decoder"
)

// DefaultProviderURI is used when no provider-uri is configured.
const DefaultProviderURI = "https://api.mainnet-beta.solana.com"

// Common holds the settings every command shares.
type Common struct {
	ProviderURIs        []string
	BatchSize           int
	MaxWorkers          int
	MaxRetries          int
	RetryBackoff        time.Duration
	MaxBackoff          time.Duration
	RPCRateLimit        float64
	RPCTimeout          time.Duration
	LogLevel            string
	MetricsAddr         string
	SerumDexV3ProgramID string
}

// ExportBlocksConfig configures export_blocks_and_transactions.
type ExportBlocksConfig struct {
	Common
	StartBlock         uint64
	EndBlock           uint64
	BlocksOutput       string
	TransactionsOutput string
	InstructionsOutput string
	Encoding           string
}

// ExportInstructionsConfig configures export_instructions.
type ExportInstructionsConfig struct {
	Common
	TransactionSignatures string
	Output                string
	Encoding              string
}

// ExtractConfig configures the extract_* commands that read one input file.
type ExtractConfig struct {
	Common
	Input  string
	Output string
}

// ExportAllConfig configures export_all.
type ExportAllConfig struct {
	Common
	StartBlock         uint64
	EndBlock           uint64
	PartitionBatchSize uint64
	OutputDir          string
	Encoding           string
}

// StreamConfig configures stream.
type StreamConfig struct {
	Common
	StartBlock          *uint64
	Lag                 uint64
	Period              time.Duration
	BlockBatchSize      uint64
	Output              string
	EntityTypes         string
	LastSyncedBlockFile string
	// StateDSN, when set, keeps the last synced block in Postgres under
	// StateName instead of LastSyncedBlockFile.
	StateDSN  string
	StateName string
	Encoding  string
}

// ExtractFieldConfig configures extract_field.
type ExtractFieldConfig struct {
	Input    string
	Output   string
	Field    string
	LogLevel string
}

// LoadExport merges config file, environment variables, and flags into ExportBlocksConfig.
func LoadExport(cfgFile string, flags *pflag.FlagSet) (ExportBlocksConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return ExportBlocksConfig{}, err
	}
	return ExportBlocksConfig{
		Common:             loadCommon(v),
		StartBlock:         v.GetUint64("start-block"),
		EndBlock:           v.GetUint64("end-block"),
		BlocksOutput:       v.GetString("blocks-output"),
		TransactionsOutput: v.GetString("transactions-output"),
		InstructionsOutput: v.GetString("instructions-output"),
		Encoding:           v.GetString("encoding"),
	}, nil
}

// LoadExportInstructions merges config sources into ExportInstructionsConfig.
func LoadExportInstructions(cfgFile string, flags *pflag.FlagSet) (ExportInstructionsConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return ExportInstructionsConfig{}, err
	}
	return ExportInstructionsConfig{
		Common:                loadCommon(v),
		TransactionSignatures: v.GetString("transaction-signatures"),
		Output:                v.GetString("output"),
		Encoding:              v.GetString("encoding"),
	}, nil
}

// LoadExtract merges config sources into ExtractConfig. inputKey names the
// flag holding the input file, e.g. "instructions" or "accounts".
func LoadExtract(cfgFile string, flags *pflag.FlagSet, inputKey string) (ExtractConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return ExtractConfig{}, err
	}
	return ExtractConfig{
		Common: loadCommon(v),
		Input:  v.GetString(inputKey),
		Output: v.GetString("output"),
	}, nil
}

// LoadExportAll merges config sources into ExportAllConfig.
func LoadExportAll(cfgFile string, flags *pflag.FlagSet) (ExportAllConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return ExportAllConfig{}, err
	}
	v.SetDefault("partition-batch-size", uint64(10000))
	v.SetDefault("output-dir", "output")
	return ExportAllConfig{
		Common:             loadCommon(v),
		StartBlock:         v.GetUint64("start-block"),
		EndBlock:           v.GetUint64("end-block"),
		PartitionBatchSize: v.GetUint64("partition-batch-size"),
		OutputDir:          v.GetString("output-dir"),
		Encoding:           v.GetString("encoding"),
	}, nil
}

// LoadStream merges config sources into StreamConfig. StartBlock is nil
// unless start-block was given explicitly.
func LoadStream(cfgFile string, flags *pflag.FlagSet) (StreamConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return StreamConfig{}, err
	}
	v.SetDefault("last-synced-block-file", "last_synced_block.txt")
	v.SetDefault("state-name", "stream")
	v.SetDefault("period-seconds", 10)
	v.SetDefault("block-batch-size", uint64(1))

	cfg := StreamConfig{
		Common:              loadCommon(v),
		Lag:                 v.GetUint64("lag"),
		Period:              time.Duration(v.GetInt("period-seconds")) * time.Second,
		BlockBatchSize:      v.GetUint64("block-batch-size"),
		Output:              v.GetString("output"),
		EntityTypes:         strings.Join(getStringSlice(v, "entity-types"), ","),
		LastSyncedBlockFile: v.GetString("last-synced-block-file"),
		StateDSN:            v.GetString("state-dsn"),
		StateName:           v.GetString("state-name"),
		Encoding:            v.GetString("encoding"),
	}
	if v.IsSet("start-block") {
		start := v.GetUint64("start-block")
		cfg.StartBlock = &start
	}
	return cfg, nil
}

// LoadExtractField merges config sources into ExtractFieldConfig.
func LoadExtractField(cfgFile string, flags *pflag.FlagSet) (ExtractFieldConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return ExtractFieldConfig{}, err
	}
	return ExtractFieldConfig{
		Input:    v.GetString("input"),
		Output:   v.GetString("output"),
		Field:    v.GetString("field"),
		LogLevel: v.GetString("log-level"),
	}, nil
}

// newViper layers flags over environment over config file over defaults.
// Keys whose default differs per command, such as batch-size and
// max-workers, take their default from the command's flag.
func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("SOLANAETL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("provider-uri", DefaultProviderURI)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("max-backoff", 30*time.Second)
	v.SetDefault("rpc-timeout", 30*time.Second)
	v.SetDefault("output", "-")
	v.SetDefault("log-level", "info")
	v.SetDefault("serum-dex-v3-program-id", decoder.SerumDexV3ProgramID)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func loadCommon(v *viper.Viper) Common {
	return Common{
		ProviderURIs:        getStringSlice(v, "provider-uri"),
		BatchSize:           v.GetInt("batch-size"),
		MaxWorkers:          v.GetInt("max-workers"),
		MaxRetries:          v.GetInt("max-retries"),
		RetryBackoff:        v.GetDuration("retry-backoff"),
		MaxBackoff:          v.GetDuration("max-backoff"),
		RPCRateLimit:        v.GetFloat64("rpc-rate-limit"),
		RPCTimeout:          v.GetDuration("rpc-timeout"),
		LogLevel:            v.GetString("log-level"),
		MetricsAddr:         v.GetString("metrics-addr"),
		SerumDexV3ProgramID: v.GetString("serum-dex-v3-program-id"),
	}
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
