// Package config loads and writes the toolbroker config file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"toolbroker/internal/broker"
	"toolbroker/internal/domain"
)

// EnvPath names the environment variable that overrides the config path.
const EnvPath = "TOOLBROKER_CONFIG"

// DefaultPath is used when neither --config nor EnvPath is set.
const DefaultPath = "toolbroker.json"

// marshalIndent, marshalYAML and writeFile are used by WriteDefault and Save;
// tests may replace them to force errors.
var (
	marshalIndent = json.MarshalIndent
	marshalYAML   = yaml.Marshal
	writeFile     = os.WriteFile
)

// ErrInvalidConfig wraps every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// Default returns the configuration written by WriteDefault.
func Default() *domain.Config {
	return &domain.Config{
		Broker: domain.BrokerConfig{
			MaxConcurrency: broker.DefaultMaxConcurrency,
			CallTimeoutMs:  int(broker.DefaultCallTimeout.Milliseconds()),
		},
		Retry: domain.RetryConfig{
			MaxRetries:     3,
			InitialBackoff: 500,
			MaxBackoff:     30000,
			Multiplier:     2,
		},
		Gateway:   domain.GatewayConfig{Port: 8080},
		Tokenizer: domain.TokenizerConfig{Encoding: "cl100k_base"},
		Infra:     domain.InfraConfig{LogFormat: "text", LogLevel: "info"},
	}
}

// ResolvePath picks the config path: flag value first, then EnvPath, then DefaultPath.
func ResolvePath(flag string) string {
	if flag != "" {
		return flag
	}
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

// WriteDefault writes Default() to path. Parent directories are not created.
func WriteDefault(path string) error {
	data, err := encode(path, Default())
	if err != nil {
		return err
	}
	return writeFile(path, data, 0644)
}

// Load reads path and unmarshals it into domain.Config. Files ending in .yaml
// or .yml are parsed as YAML, everything else as JSON. A missing file yields
// an error wrapping os.ErrNotExist.
func Load(path string) (*domain.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	var c domain.Config
	if isYAML(path) {
		err = yaml.Unmarshal(data, &c)
	} else {
		err = json.Unmarshal(data, &c)
	}
	if err != nil {
		return nil, fmt.Errorf("config parse: %w", err)
	}
	CleanPaths(&c)
	return &c, nil
}

// CleanPaths applies filepath.Clean to file: database URLs in cfg.
func CleanPaths(cfg *domain.Config) {
	if cfg == nil {
		return
	}
	if p, ok := strings.CutPrefix(cfg.Records.DatabaseURL, "file:"); ok {
		path, query, _ := strings.Cut(p, "?")
		cleaned := "file:" + filepath.Clean(path)
		if query != "" {
			cleaned += "?" + query
		}
		cfg.Records.DatabaseURL = cleaned
	}
}

// Save writes cfg to path, creating parent directories.
func Save(path string, cfg *domain.Config) error {
	if cfg == nil {
		return fmt.Errorf("config save: nil config")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("config save mkdir: %w", err)
	}
	data, err := encode(path, cfg)
	if err != nil {
		return fmt.Errorf("config save marshal: %w", err)
	}
	if err := writeFile(path, data, 0644); err != nil {
		return fmt.Errorf("config save write: %w", err)
	}
	return nil
}

// Validate rejects values the broker cannot run with.
func Validate(cfg *domain.Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	var problems []string
	if cfg.Broker.MaxConcurrency < 0 {
		problems = append(problems, "broker.maxConcurrency must be >= 0")
	}
	if cfg.Broker.CallTimeoutMs < 0 {
		problems = append(problems, "broker.callTimeoutMs must be >= 0")
	}
	if cfg.Retry.MaxRetries < 0 || cfg.Retry.InitialBackoff < 0 || cfg.Retry.MaxBackoff < 0 || cfg.Retry.Multiplier < 0 {
		problems = append(problems, "retry values must be >= 0")
	}
	if cfg.Retry.InitialBackoff > 0 && cfg.Retry.MaxBackoff > 0 && cfg.Retry.MaxBackoff < cfg.Retry.InitialBackoff {
		problems = append(problems, "retry.maxBackoff must be >= retry.initialBackoff")
	}
	if cfg.Gateway.Port < 0 || cfg.Gateway.Port > 65535 {
		problems = append(problems, fmt.Sprintf("gateway.port %d out of range", cfg.Gateway.Port))
	}
	switch strings.ToLower(cfg.Infra.LogFormat) {
	case "", "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("infra.logFormat %q must be text or json", cfg.Infra.LogFormat))
	}
	switch strings.ToLower(cfg.Infra.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("infra.logLevel %q is not a known level", cfg.Infra.LogLevel))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func encode(path string, cfg *domain.Config) ([]byte, error) {
	if isYAML(path) {
		return marshalYAML(cfg)
	}
	return marshalIndent(cfg, "", "  ")
}
