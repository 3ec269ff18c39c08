// Package config loads brainy engine configuration from environment
// variables (and, optionally, a YAML file), following the env-prefix +
// typed-getter pattern used across the EVE-derived codebase this engine
// grew out of.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfig loads values from environment variables under an optional prefix.
type EnvConfig struct {
	prefix string
}

// NewEnvConfig creates a new environment configuration loader.
func NewEnvConfig(prefix string) *EnvConfig {
	return &EnvConfig{prefix: prefix}
}

func (ec *EnvConfig) buildKey(key string) string {
	if ec.prefix != "" {
		return ec.prefix + "_" + key
	}
	return key
}

func (ec *EnvConfig) GetString(key, defaultValue string) string {
	if value := os.Getenv(ec.buildKey(key)); value != "" {
		return value
	}
	return defaultValue
}

func (ec *EnvConfig) GetInt(key string, defaultValue int) int {
	if value := os.Getenv(ec.buildKey(key)); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (ec *EnvConfig) GetFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(ec.buildKey(key)); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func (ec *EnvConfig) GetBool(key string, defaultValue bool) bool {
	if value := os.Getenv(ec.buildKey(key)); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func (ec *EnvConfig) GetDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(ec.buildKey(key)); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// Validator accumulates configuration validation errors.
type Validator struct {
	errors []string
}

func NewValidator() *Validator { return &Validator{} }

func (v *Validator) RequirePositiveInt(field string, value int) {
	if value <= 0 {
		v.errors = append(v.errors, fmt.Sprintf("%s must be positive", field))
	}
}

func (v *Validator) RequireOneOf(field, value string, allowed []string) {
	for _, option := range allowed {
		if value == option {
			return
		}
	}
	v.errors = append(v.errors, fmt.Sprintf("%s must be one of: %s", field, strings.Join(allowed, ", ")))
}

func (v *Validator) IsValid() bool { return len(v.errors) == 0 }
func (v *Validator) Errors() []string { return v.errors }

func (v *Validator) Validate() error {
	if v.IsValid() {
		return nil
	}
	return fmt.Errorf("configuration validation failed: %s", strings.Join(v.errors, "; "))
}

// DistanceMetric selects the HNSW similarity function (spec §4.4).
type DistanceMetric string

const (
	MetricCosine    DistanceMetric = "cosine"
	MetricInnerProd DistanceMetric = "inner_product"
)

// Adapter selects the storage backend (spec §4.1).
type Adapter string

const (
	AdapterMemory Adapter = "memory"
	AdapterLocal  Adapter = "local"
	AdapterS3     Adapter = "s3"
	AdapterGCS    Adapter = "gcs"
	AdapterAzure  Adapter = "azure"
	AdapterR2     Adapter = "r2"
)

// HNSWConfig mirrors spec §4.4's parameter set.
type HNSWConfig struct {
	M              int
	EfConstruction int
	EfSearch       int
}

func DefaultHNSWConfig() HNSWConfig {
	return HNSWConfig{M: 16, EfConstruction: 200, EfSearch: 100}
}

// BatchConfig caps adapter-declared batch parallelism (spec §5 Backpressure).
type BatchConfig struct {
	AddManyChunkSize int
	S3Concurrency    int
	GCSConcurrency   int
	AzureConcurrency int
}

func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		AddManyChunkSize: 100,
		S3Concurrency:    150,
		GCSConcurrency:   100,
		AzureConcurrency: 100,
	}
}

// StorageConfig carries adapter selection and its credentials/endpoint.
type StorageConfig struct {
	Adapter Adapter

	// Local filesystem adapter
	LocalBaseDir string
	GzipBlobs    bool

	// S3 / R2 (R2 reuses the S3 adapter with a custom endpoint)
	Bucket          string
	Region          string
	Endpoint        string // set for R2 / S3-compatible providers
	AccessKeyID     string
	SecretAccessKey string

	// GCS
	GCSProjectID          string
	GCSCredentialsJSON    string

	// Azure Blob
	AzureAccountName string
	AzureAccountKey  string
	AzureContainer   string
}

// EngineConfig is the full set of environment/configuration keys that affect
// the core, per spec §6 "Environment/configuration keys".
type EngineConfig struct {
	Dimension int
	Metric    DistanceMetric
	HNSW      HNSWConfig
	Batch     BatchConfig
	Storage   StorageConfig

	CacheSize          int
	ReachableNodeBudget int // loaded and defaulted here but not read by the engine; reachable() uses graphindex.DefaultReachableBudget

	// Optional Redis URL for a distributed branch write-lock / shared cache
	// (spec §5 "one writer per branch"); empty means in-process mutex only.
	RedisURL string
}

// DefaultEngineConfig returns the documented defaults from spec §3/§4.4/§4.11.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Dimension:           384,
		Metric:              MetricCosine,
		HNSW:                DefaultHNSWConfig(),
		Batch:               DefaultBatchConfig(),
		Storage:             StorageConfig{Adapter: AdapterMemory},
		CacheSize:           10000,
		ReachableNodeBudget: 10000,
	}
}

// yamlOverrides mirrors the subset of EngineConfig a YAML file may set;
// zero-value fields (keys absent from the file) are not applied,
// so a partial file only overrides what it names.
type yamlOverrides struct {
	Dimension int    `yaml:"dimension"`
	Metric    string `yaml:"metric"`
	HNSW      struct {
		M              int `yaml:"m"`
		EfConstruction int `yaml:"efConstruction"`
		EfSearch       int `yaml:"efSearch"`
	} `yaml:"hnsw"`
	CacheSize int    `yaml:"cacheSize"`
	RedisURL  string `yaml:"redisUrl"`
}

// applyYAMLFile overlays path's contents onto cfg, leaving any key the
// file omits (zero value) untouched. Used ahead of the env-var pass so
// environment variables always win over the file (spec §10.3 "env vars
// and an optional YAML file").
func applyYAMLFile(cfg EngineConfig, path string) (EngineConfig, error) {
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file %q: %w", path, err)
	}
	var o yamlOverrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return cfg, fmt.Errorf("parse config file %q: %w", path, err)
	}
	if o.Dimension != 0 {
		cfg.Dimension = o.Dimension
	}
	if o.Metric != "" {
		cfg.Metric = DistanceMetric(o.Metric)
	}
	if o.HNSW.M != 0 {
		cfg.HNSW.M = o.HNSW.M
	}
	if o.HNSW.EfConstruction != 0 {
		cfg.HNSW.EfConstruction = o.HNSW.EfConstruction
	}
	if o.HNSW.EfSearch != 0 {
		cfg.HNSW.EfSearch = o.HNSW.EfSearch
	}
	if o.CacheSize != 0 {
		cfg.CacheSize = o.CacheSize
	}
	if o.RedisURL != "" {
		cfg.RedisURL = o.RedisURL
	}
	return cfg, nil
}

// LoadEngineConfig loads an EngineConfig from an optional YAML file (named
// by the prefix's CONFIG_FILE key) overlaid with environment variables
// under prefix, falling back to DefaultEngineConfig for anything unset.
func LoadEngineConfig(prefix string) (EngineConfig, error) {
	env := NewEnvConfig(prefix)
	cfg := DefaultEngineConfig()

	cfg, err := applyYAMLFile(cfg, env.GetString("CONFIG_FILE", ""))
	if err != nil {
		return cfg, err
	}

	cfg.Dimension = env.GetInt("DIMENSION", cfg.Dimension)
	cfg.Metric = DistanceMetric(env.GetString("METRIC", string(cfg.Metric)))
	cfg.HNSW.M = env.GetInt("HNSW_M", cfg.HNSW.M)
	cfg.HNSW.EfConstruction = env.GetInt("HNSW_EF_CONSTRUCTION", cfg.HNSW.EfConstruction)
	cfg.HNSW.EfSearch = env.GetInt("HNSW_EF_SEARCH", cfg.HNSW.EfSearch)

	cfg.Batch.AddManyChunkSize = env.GetInt("BATCH_CHUNK_SIZE", cfg.Batch.AddManyChunkSize)
	cfg.Batch.S3Concurrency = env.GetInt("S3_CONCURRENCY", cfg.Batch.S3Concurrency)
	cfg.Batch.GCSConcurrency = env.GetInt("GCS_CONCURRENCY", cfg.Batch.GCSConcurrency)
	cfg.Batch.AzureConcurrency = env.GetInt("AZURE_CONCURRENCY", cfg.Batch.AzureConcurrency)

	cfg.CacheSize = env.GetInt("CACHE_SIZE", cfg.CacheSize)
	cfg.ReachableNodeBudget = env.GetInt("REACHABLE_NODE_BUDGET", cfg.ReachableNodeBudget)
	cfg.RedisURL = env.GetString("REDIS_URL", cfg.RedisURL)

	cfg.Storage.Adapter = Adapter(env.GetString("STORAGE_ADAPTER", string(cfg.Storage.Adapter)))
	cfg.Storage.LocalBaseDir = env.GetString("STORAGE_LOCAL_DIR", cfg.Storage.LocalBaseDir)
	cfg.Storage.GzipBlobs = env.GetBool("STORAGE_GZIP", cfg.Storage.GzipBlobs)
	cfg.Storage.Bucket = env.GetString("STORAGE_BUCKET", cfg.Storage.Bucket)
	cfg.Storage.Region = env.GetString("STORAGE_REGION", cfg.Storage.Region)
	cfg.Storage.Endpoint = env.GetString("STORAGE_ENDPOINT", cfg.Storage.Endpoint)
	cfg.Storage.AccessKeyID = env.GetString("STORAGE_ACCESS_KEY_ID", cfg.Storage.AccessKeyID)
	cfg.Storage.SecretAccessKey = env.GetString("STORAGE_SECRET_ACCESS_KEY", cfg.Storage.SecretAccessKey)
	cfg.Storage.GCSProjectID = env.GetString("STORAGE_GCS_PROJECT_ID", cfg.Storage.GCSProjectID)
	cfg.Storage.GCSCredentialsJSON = env.GetString("STORAGE_GCS_CREDENTIALS_JSON", cfg.Storage.GCSCredentialsJSON)
	cfg.Storage.AzureAccountName = env.GetString("STORAGE_AZURE_ACCOUNT", cfg.Storage.AzureAccountName)
	cfg.Storage.AzureAccountKey = env.GetString("STORAGE_AZURE_KEY", cfg.Storage.AzureAccountKey)
	cfg.Storage.AzureContainer = env.GetString("STORAGE_AZURE_CONTAINER", cfg.Storage.AzureContainer)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks invariants spec.md requires the engine to enforce at
// construction (dimension > 0, known metric, known adapter).
func (c EngineConfig) Validate() error {
	v := NewValidator()
	v.RequirePositiveInt("Dimension", c.Dimension)
	v.RequireOneOf("Metric", string(c.Metric), []string{string(MetricCosine), string(MetricInnerProd)})
	v.RequireOneOf("Storage.Adapter", string(c.Storage.Adapter), []string{
		string(AdapterMemory), string(AdapterLocal), string(AdapterS3),
		string(AdapterGCS), string(AdapterAzure), string(AdapterR2),
	})
	v.RequirePositiveInt("HNSW.M", c.HNSW.M)
	v.RequirePositiveInt("HNSW.EfConstruction", c.HNSW.EfConstruction)
	v.RequirePositiveInt("HNSW.EfSearch", c.HNSW.EfSearch)
	v.RequirePositiveInt("CacheSize", c.CacheSize)
	return v.Validate()
}
