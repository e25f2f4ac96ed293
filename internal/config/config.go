// Package config loads the service configuration: tier defaults overlaid
// with an optional YAML file whose values may reference environment
// variables with ${VAR} syntax.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/opensource-finance/fraudguard/internal/domain"
)

// TierEnv selects the default stack when no tier is set in the file.
const TierEnv = "FRAUDGUARD_TIER"

// Load builds the effective configuration. The tier (community or pro)
// picks the defaults; the YAML file at path, when non-empty, overlays them.
// Unset YAML fields keep their default values.
func Load(path string) (*domain.Config, error) {
	cfg := defaultsForTier(os.Getenv(TierEnv))

	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(raw))
	expanded = strings.ReplaceAll(expanded, "\r\n", "\n")

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaultsForTier(tier string) *domain.Config {
	if domain.Tier(strings.ToLower(tier)) == domain.TierPro {
		return domain.ProConfig()
	}
	return domain.DefaultConfig()
}

func validate(cfg *domain.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}

	t := cfg.Thresholds
	if t.TrivialAmount > t.LowAmount || t.LowAmount > t.MediumAmount ||
		t.MediumAmount > t.HighAmount || t.HighAmount > t.VeryHighAmount ||
		t.VeryHighAmount > t.ExtremeAmount {
		return fmt.Errorf("amount thresholds must be non-decreasing")
	}
	if t.LateNightEnd < 0 || t.LateNightEnd > 23 || t.EveningStart < 0 || t.EveningStart > 23 {
		return fmt.Errorf("late-night window hours must be in [0,23]")
	}
	for _, c := range []float64{
		t.FraudConfidenceHigh, t.FraudConfidenceMedium, t.FraudConfidenceLow,
		t.TrivialSafeCeiling, t.NeutralPrior,
	} {
		if c < 0 || c > 1 {
			return fmt.Errorf("confidence setting out of range: %v", c)
		}
	}

	return nil
}
