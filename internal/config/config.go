// Package config implements the effective backend configuration: a
// YAML/JSON-loaded schema with SCA_* environment overrides, layered as
// defaults -> file -> env -> validate.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kodesearch/semcode/internal/errs"
)

// Config is the complete effective configuration, covering the five
// recognized top-level sections.
type Config struct {
	Core      CoreConfig      `yaml:"core" json:"core"`
	Embedding EmbeddingConfig `yaml:"embedding" json:"embedding"`
	VectorDB  VectorDBConfig  `yaml:"vectorDb" json:"vectorDb"`
	Sync      SyncConfig      `yaml:"sync" json:"sync"`
	Cache     CacheConfig     `yaml:"cache" json:"cache"`
}

// CoreConfig holds cross-cutting runtime limits.
type CoreConfig struct {
	MaxConcurrency int    `yaml:"maxConcurrency" json:"maxConcurrency"`
	TimeoutMs      int    `yaml:"timeoutMs" json:"timeoutMs"`
	MaxChunkChars  int    `yaml:"maxChunkChars" json:"maxChunkChars"`
	LogLevel       string `yaml:"logLevel" json:"logLevel"`
}

// OnnxConfig configures the in-process ONNX embedding runtime. The
// runtime itself is an out-of-scope external collaborator; only its
// configuration surface lives here so `config check`/`validate-request`
// can validate it.
type OnnxConfig struct {
	ModelDir           string `yaml:"modelDir" json:"modelDir"`
	ModelFilename      string `yaml:"modelFilename,omitempty" json:"modelFilename,omitempty"`
	TokenizerFilename  string `yaml:"tokenizerFilename,omitempty" json:"tokenizerFilename,omitempty"`
	SessionPoolSize    int    `yaml:"sessionPoolSize" json:"sessionPoolSize"`
	DownloadOnMissing  bool   `yaml:"downloadOnMissing" json:"downloadOnMissing"`
}

// EmbeddingConfig selects and configures the embedding backend.
type EmbeddingConfig struct {
	Provider  string     `yaml:"provider" json:"provider"`
	BaseURL   string     `yaml:"baseUrl,omitempty" json:"baseUrl,omitempty"`
	APIKey    string     `yaml:"apiKey,omitempty" json:"apiKey,omitempty"`
	Model     string     `yaml:"model,omitempty" json:"model,omitempty"`
	Dimension int        `yaml:"dimension,omitempty" json:"dimension,omitempty"`
	Namespace string     `yaml:"namespace,omitempty" json:"namespace,omitempty"`
	Onnx      OnnxConfig `yaml:"onnx" json:"onnx"`
	Jobs      int        `yaml:"jobs" json:"jobs"`
	Routing   string     `yaml:"routing,omitempty" json:"routing,omitempty"`
	Split     string     `yaml:"split,omitempty" json:"split,omitempty"`
}

var validEmbeddingProviders = map[string]bool{
	"test": true, "openai": true, "gemini": true, "ollama": true, "voyage": true, "onnx": true,
}

// IndexFieldConfig configures one of a hybrid collection's index
// families (dense or sparse); provider-specific params are opaque.
type IndexFieldConfig struct {
	Metric string            `yaml:"metric,omitempty" json:"metric,omitempty"`
	Params map[string]string `yaml:"params,omitempty" json:"params,omitempty"`
}

// VectorIndexConfig groups a collection's dense and sparse index
// settings, used only in hybrid mode.
type VectorIndexConfig struct {
	Dense  IndexFieldConfig `yaml:"dense" json:"dense"`
	Sparse IndexFieldConfig `yaml:"sparse" json:"sparse"`
}

// VectorDBConfig selects and configures the vector store backend.
type VectorDBConfig struct {
	Provider         string             `yaml:"provider" json:"provider"`
	BaseURL          string             `yaml:"baseUrl,omitempty" json:"baseUrl,omitempty"`
	APIKey           string             `yaml:"apiKey,omitempty" json:"apiKey,omitempty"`
	Token            string             `yaml:"token,omitempty" json:"token,omitempty"`
	IndexMode        string             `yaml:"indexMode" json:"indexMode"`
	SnapshotStorage  string             `yaml:"snapshotStorage" json:"snapshotStorage"`
	SnapshotCustomDir string            `yaml:"snapshotCustomDir,omitempty" json:"snapshotCustomDir,omitempty"`
	Index            VectorIndexConfig  `yaml:"index" json:"index"`
}

var validVectorDBProviders = map[string]bool{"local": true, "milvus_grpc": true, "milvus_rest": true}
var validIndexModes = map[string]bool{"dense": true, "hybrid": true}
var validSnapshotStorage = map[string]bool{"disabled": true, "project": true, "custom": true}

// SyncConfig controls which files the scan stage considers.
type SyncConfig struct {
	AllowedExtensions []string `yaml:"allowedExtensions" json:"allowedExtensions"`
	IgnorePatterns    []string `yaml:"ignorePatterns" json:"ignorePatterns"`
}

// CacheConfig configures the two-tier embedding cache.
type CacheConfig struct {
	Enabled        bool   `yaml:"enabled" json:"enabled"`
	MaxEntries     int    `yaml:"maxEntries" json:"maxEntries"`
	MaxBytes       int64  `yaml:"maxBytes,omitempty" json:"maxBytes,omitempty"`
	DiskEnabled    bool   `yaml:"diskEnabled" json:"diskEnabled"`
	DiskProvider   string `yaml:"diskProvider,omitempty" json:"diskProvider,omitempty"`
	DiskPath       string `yaml:"diskPath,omitempty" json:"diskPath,omitempty"`
	DiskConnection string `yaml:"diskConnection,omitempty" json:"diskConnection,omitempty"`
	DiskTable      string `yaml:"diskTable,omitempty" json:"diskTable,omitempty"`
	DiskMaxBytes   int64  `yaml:"diskMaxBytes,omitempty" json:"diskMaxBytes,omitempty"`
}

var validDiskProviders = map[string]bool{"sqlite": true, "postgres": true, "mysql": true, "mssql": true}

// defaultIgnorePatterns covers the common build/dependency/VCS
// directories, matched by the segment-sequence matcher internal/ignore
// implements.
var defaultIgnorePatterns = []string{
	"node_modules/", "target/", ".git/", "vendor/", "__pycache__/",
	"dist/", "build/", ".context/",
}

// Default returns the hardcoded defaults, the first and lowest-precedence
// layer of Load.
func Default() *Config {
	return &Config{
		Core: CoreConfig{
			MaxConcurrency: runtime.NumCPU(),
			TimeoutMs:      30_000,
			MaxChunkChars:  20_000,
			LogLevel:       "info",
		},
		Embedding: EmbeddingConfig{
			Provider: "test",
			Jobs:     4,
			Onnx: OnnxConfig{
				SessionPoolSize:   1,
				DownloadOnMissing: false,
			},
		},
		VectorDB: VectorDBConfig{
			Provider:        "local",
			IndexMode:       "dense",
			SnapshotStorage: "project",
		},
		Sync: SyncConfig{
			AllowedExtensions: nil,
			IgnorePatterns:    append([]string(nil), defaultIgnorePatterns...),
		},
		Cache: CacheConfig{
			Enabled:      true,
			MaxEntries:   10_000,
			DiskEnabled:  false,
			DiskProvider: "sqlite",
			DiskTable:    "embedding_cache",
		},
	}
}

// Load applies, in order of increasing precedence: hardcoded defaults,
// a config file (path, or config.yaml/config.json under dir if path is
// empty), then SCA_* environment overrides. The result is validated
// before being returned.
func Load(dir, path string) (*Config, error) {
	cfg := Default()

	resolved := path
	if resolved == "" {
		resolved = findConfigFile(dir)
	}
	if resolved != "" {
		if err := cfg.loadFile(resolved); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile(dir string) string {
	for _, name := range []string{"config.yaml", "config.yml", "config.json"} {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errs.Expected("CONFIG", "FILE_READ_FAILED", fmt.Sprintf("failed to read config file %s: %v", path, err))
	}
	var parsed Config
	if strings.HasSuffix(path, ".json") {
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return errs.Expected("CONFIG", "FILE_PARSE_FAILED", fmt.Sprintf("failed to parse config file %s: %v", path, err))
		}
	} else if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return errs.Expected("CONFIG", "FILE_PARSE_FAILED", fmt.Sprintf("failed to parse config file %s: %v", path, err))
	}
	c.mergeWith(&parsed)
	return nil
}

// mergeWith overlays non-zero fields of other onto c, matching the
// teacher's mergeWith pattern of "only overwrite what was actually set".
func (c *Config) mergeWith(other *Config) {
	if other.Core.MaxConcurrency != 0 {
		c.Core.MaxConcurrency = other.Core.MaxConcurrency
	}
	if other.Core.TimeoutMs != 0 {
		c.Core.TimeoutMs = other.Core.TimeoutMs
	}
	if other.Core.MaxChunkChars != 0 {
		c.Core.MaxChunkChars = other.Core.MaxChunkChars
	}
	if other.Core.LogLevel != "" {
		c.Core.LogLevel = other.Core.LogLevel
	}

	if other.Embedding.Provider != "" {
		c.Embedding.Provider = other.Embedding.Provider
	}
	if other.Embedding.BaseURL != "" {
		c.Embedding.BaseURL = other.Embedding.BaseURL
	}
	if other.Embedding.APIKey != "" {
		c.Embedding.APIKey = other.Embedding.APIKey
	}
	if other.Embedding.Model != "" {
		c.Embedding.Model = other.Embedding.Model
	}
	if other.Embedding.Dimension != 0 {
		c.Embedding.Dimension = other.Embedding.Dimension
	}
	if other.Embedding.Namespace != "" {
		c.Embedding.Namespace = other.Embedding.Namespace
	}
	if other.Embedding.Onnx.ModelDir != "" {
		c.Embedding.Onnx = other.Embedding.Onnx
	}
	if other.Embedding.Jobs != 0 {
		c.Embedding.Jobs = other.Embedding.Jobs
	}
	if other.Embedding.Routing != "" {
		c.Embedding.Routing = other.Embedding.Routing
	}
	if other.Embedding.Split != "" {
		c.Embedding.Split = other.Embedding.Split
	}

	if other.VectorDB.Provider != "" {
		c.VectorDB.Provider = other.VectorDB.Provider
	}
	if other.VectorDB.BaseURL != "" {
		c.VectorDB.BaseURL = other.VectorDB.BaseURL
	}
	if other.VectorDB.APIKey != "" {
		c.VectorDB.APIKey = other.VectorDB.APIKey
	}
	if other.VectorDB.Token != "" {
		c.VectorDB.Token = other.VectorDB.Token
	}
	if other.VectorDB.IndexMode != "" {
		c.VectorDB.IndexMode = other.VectorDB.IndexMode
	}
	if other.VectorDB.SnapshotStorage != "" {
		c.VectorDB.SnapshotStorage = other.VectorDB.SnapshotStorage
	}
	if other.VectorDB.SnapshotCustomDir != "" {
		c.VectorDB.SnapshotCustomDir = other.VectorDB.SnapshotCustomDir
	}
	if other.VectorDB.Index.Dense.Metric != "" || len(other.VectorDB.Index.Dense.Params) > 0 {
		c.VectorDB.Index.Dense = other.VectorDB.Index.Dense
	}
	if other.VectorDB.Index.Sparse.Metric != "" || len(other.VectorDB.Index.Sparse.Params) > 0 {
		c.VectorDB.Index.Sparse = other.VectorDB.Index.Sparse
	}

	if len(other.Sync.AllowedExtensions) > 0 {
		c.Sync.AllowedExtensions = other.Sync.AllowedExtensions
	}
	if len(other.Sync.IgnorePatterns) > 0 {
		c.Sync.IgnorePatterns = other.Sync.IgnorePatterns
	}

	if other.Cache.MaxEntries != 0 {
		c.Cache.Enabled = other.Cache.Enabled
		c.Cache.MaxEntries = other.Cache.MaxEntries
	}
	if other.Cache.MaxBytes != 0 {
		c.Cache.MaxBytes = other.Cache.MaxBytes
	}
	if other.Cache.DiskProvider != "" || other.Cache.DiskPath != "" {
		c.Cache.DiskEnabled = other.Cache.DiskEnabled
	}
	if other.Cache.DiskProvider != "" {
		c.Cache.DiskProvider = other.Cache.DiskProvider
	}
	if other.Cache.DiskPath != "" {
		c.Cache.DiskPath = other.Cache.DiskPath
	}
	if other.Cache.DiskConnection != "" {
		c.Cache.DiskConnection = other.Cache.DiskConnection
	}
	if other.Cache.DiskTable != "" {
		c.Cache.DiskTable = other.Cache.DiskTable
	}
	if other.Cache.DiskMaxBytes != 0 {
		c.Cache.DiskMaxBytes = other.Cache.DiskMaxBytes
	}
}

// applyEnvOverrides applies SCA_* environment variables, the highest
// precedence layer. Invalid values yield config/invalid_env_* Expected
// errors rather than being silently ignored.
func (c *Config) applyEnvOverrides() error {
	if v, ok := os.LookupEnv("SCA_CORE_MAX_CONCURRENCY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return invalidEnv("SCA_CORE_MAX_CONCURRENCY", v)
		}
		c.Core.MaxConcurrency = n
	}
	if v, ok := os.LookupEnv("SCA_CORE_TIMEOUT_MS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return invalidEnv("SCA_CORE_TIMEOUT_MS", v)
		}
		c.Core.TimeoutMs = n
	}
	if v, ok := os.LookupEnv("SCA_CORE_LOG_LEVEL"); ok {
		c.Core.LogLevel = v
	}

	if v, ok := os.LookupEnv("SCA_EMBEDDING_PROVIDER"); ok {
		c.Embedding.Provider = v
	}
	if v, ok := os.LookupEnv("SCA_EMBEDDING_BASE_URL"); ok {
		c.Embedding.BaseURL = v
	}
	if v, ok := os.LookupEnv("SCA_EMBEDDING_API_KEY"); ok {
		c.Embedding.APIKey = v
	}
	if v, ok := os.LookupEnv("SCA_EMBEDDING_MODEL"); ok {
		c.Embedding.Model = v
	}
	if v, ok := os.LookupEnv("SCA_EMBEDDING_DIMENSION"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return invalidEnv("SCA_EMBEDDING_DIMENSION", v)
		}
		c.Embedding.Dimension = n
	}

	if v, ok := os.LookupEnv("SCA_VECTORDB_PROVIDER"); ok {
		c.VectorDB.Provider = v
	}
	if v, ok := os.LookupEnv("SCA_VECTORDB_BASE_URL"); ok {
		c.VectorDB.BaseURL = v
	}
	if v, ok := os.LookupEnv("SCA_VECTORDB_INDEX_MODE"); ok {
		c.VectorDB.IndexMode = v
	}

	if v, ok := os.LookupEnv("SCA_CACHE_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return invalidEnv("SCA_CACHE_ENABLED", v)
		}
		c.Cache.Enabled = b
	}
	if v, ok := os.LookupEnv("SCA_CACHE_MAX_ENTRIES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return invalidEnv("SCA_CACHE_MAX_ENTRIES", v)
		}
		c.Cache.MaxEntries = n
	}
	if v, ok := os.LookupEnv("SCA_CACHE_DISK_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return invalidEnv("SCA_CACHE_DISK_ENABLED", v)
		}
		c.Cache.DiskEnabled = b
	}
	if v, ok := os.LookupEnv("SCA_CACHE_DISK_PATH"); ok {
		c.Cache.DiskPath = v
	}

	return nil
}

func invalidEnv(name, value string) error {
	return errs.Expected("CONFIG", "INVALID_ENV_"+name, fmt.Sprintf("environment variable %s has an invalid value %q", name, value))
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate checks the final merged configuration for internal
// consistency.
func (c *Config) Validate() error {
	if c.Core.MaxConcurrency < 1 {
		return errs.Expected("CONFIG", "INVALID_CORE", "core.maxConcurrency must be >= 1")
	}
	if c.Core.TimeoutMs < 1 {
		return errs.Expected("CONFIG", "INVALID_CORE", "core.timeoutMs must be >= 1")
	}
	if c.Core.MaxChunkChars < 1 {
		return errs.Expected("CONFIG", "INVALID_CORE", "core.maxChunkChars must be >= 1")
	}
	if !validLogLevels[strings.ToLower(c.Core.LogLevel)] {
		return errs.Expected("CONFIG", "INVALID_CORE", fmt.Sprintf("core.logLevel must be one of debug/info/warn/error, got %q", c.Core.LogLevel))
	}

	if !validEmbeddingProviders[strings.ToLower(c.Embedding.Provider)] {
		return errs.Expected("CONFIG", "INVALID_EMBEDDING", fmt.Sprintf("embedding.provider %q is not recognized", c.Embedding.Provider))
	}
	if c.Embedding.Jobs < 1 {
		return errs.Expected("CONFIG", "INVALID_EMBEDDING", "embedding.jobs must be >= 1")
	}

	if !validVectorDBProviders[strings.ToLower(c.VectorDB.Provider)] {
		return errs.Expected("CONFIG", "INVALID_VECTORDB", fmt.Sprintf("vectorDb.provider %q is not recognized", c.VectorDB.Provider))
	}
	if !validIndexModes[strings.ToLower(c.VectorDB.IndexMode)] {
		return errs.Expected("CONFIG", "INVALID_VECTORDB", fmt.Sprintf("vectorDb.indexMode must be dense or hybrid, got %q", c.VectorDB.IndexMode))
	}
	if !validSnapshotStorage[strings.ToLower(c.VectorDB.SnapshotStorage)] {
		return errs.Expected("CONFIG", "INVALID_VECTORDB", fmt.Sprintf("vectorDb.snapshotStorage must be disabled/project/custom, got %q", c.VectorDB.SnapshotStorage))
	}
	if strings.ToLower(c.VectorDB.SnapshotStorage) == "custom" && c.VectorDB.SnapshotCustomDir == "" {
		return errs.Expected("CONFIG", "INVALID_VECTORDB", "vectorDb.snapshotCustomDir is required when snapshotStorage is custom")
	}

	if c.Cache.MaxEntries < 0 {
		return errs.Expected("CONFIG", "INVALID_CACHE", "cache.maxEntries must be >= 0")
	}
	if c.Cache.DiskEnabled && !validDiskProviders[strings.ToLower(c.Cache.DiskProvider)] {
		return errs.Expected("CONFIG", "INVALID_CACHE", fmt.Sprintf("cache.diskProvider %q is not recognized", c.Cache.DiskProvider))
	}
	if c.Cache.DiskEnabled && strings.ToLower(c.Cache.DiskProvider) == "sqlite" && c.Cache.DiskPath == "" {
		return errs.Expected("CONFIG", "INVALID_CACHE", "cache.diskPath is required when diskProvider is sqlite and diskEnabled is true")
	}

	return nil
}

// WriteYAML marshals c as YAML and writes it to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errs.Unexpected("CONFIG", "MARSHAL_FAILED", "failed to marshal config", errs.ClassNonRetriable, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errs.Unexpected("CONFIG", "WRITE_FAILED", "failed to write config file", errs.ClassNonRetriable, err)
	}
	return nil
}
