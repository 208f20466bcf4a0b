package s1_universe

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the selection thresholds
type Config struct {
	MinMarketCap  float64  `yaml:"min_market_cap" json:"min_market_cap"` // inclusive, USD
	MaxPrice      float64  `yaml:"max_price" json:"max_price"`           // exclusive, USD
	UnknownLabels []string `yaml:"unknown_labels" json:"unknown_labels"` // case-insensitive sentinels
}

// DefaultConfig returns the production thresholds
func DefaultConfig() Config {
	return Config{
		MinMarketCap:  2_000_000_000,
		MaxPrice:      100,
		UnknownLabels: []string{"", "None", "Unknown", "N/A", "-"},
	}
}

// LoadConfig reads thresholds from YAML; an empty path yields the defaults.
// Fields missing from the file keep their default values.
// KnownFields(true)로 오타/미사용 필드 즉시 실패
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read selection config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode selection config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects thresholds that would accept nothing or everything by mistake
func (c Config) Validate() error {
	if c.MinMarketCap < 0 {
		return fmt.Errorf("min_market_cap must not be negative")
	}
	if c.MaxPrice <= 0 {
		return fmt.Errorf("max_price must be positive")
	}
	return nil
}

// Hash identifies a threshold set in logs (canonical JSON)
func (c Config) Hash() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("hash selection config: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8]), nil
}
