package application

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	importer "lendledger/internal/importer/domain"
	ledger "lendledger/internal/ledger/domain"
)

// KindOverride adjusts one kind's policy without touching its field table.
type KindOverride struct {
	HeaderPolicy string `yaml:"header_policy"`
	BoundsPolicy string `yaml:"bounds_policy"`
	RowOffset    int    `yaml:"row_offset"`
}

// Config is the per-deployment import configuration: allow-lists and policy
// overrides per kind. Required header sets live in the built-in descriptor
// tables; everything an operator may legitimately change loads from yaml.
type Config struct {
	Carriers []string                `yaml:"carriers"`
	Statuses []string                `yaml:"statuses"`
	Kinds    map[string]KindOverride `yaml:"kinds"`
}

// LoadConfig loads config from yaml (IMPORT_CONFIG path) over defaults.
func LoadConfig() (Config, error) {
	cfg := Config{
		Carriers: []string{"ドコモ", "au", "ソフトバンク", "楽天モバイル"},
		Statuses: []string{"利用中", "保管中", "故障", "返却済"},
	}

	if path := os.Getenv("IMPORT_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	if len(cfg.Carriers) == 0 {
		return cfg, fmt.Errorf("import config: empty carrier list")
	}
	if len(cfg.Statuses) == 0 {
		return cfg, fmt.Errorf("import config: empty status list")
	}
	return cfg, nil
}

// Policies builds the runnable per-kind policies from this config.
func (c Config) Policies() (map[ledger.Kind]importer.Policy, error) {
	policies := importer.DefaultPolicies(importer.AllowLists{
		Carriers: c.Carriers,
		Statuses: c.Statuses,
	})

	for name, override := range c.Kinds {
		kind := ledger.Kind(name)
		policy, ok := policies[kind]
		if !ok {
			return nil, fmt.Errorf("import config: %w: %s", importer.ErrUnknownKind, name)
		}
		if override.HeaderPolicy != "" {
			policy.HeaderPolicy = importer.HeaderPolicy(override.HeaderPolicy)
		}
		if override.BoundsPolicy != "" {
			policy.BoundsPolicy = importer.BoundsPolicy(override.BoundsPolicy)
		}
		if override.RowOffset != 0 {
			policy.RowOffset = override.RowOffset
		}
		policies[kind] = policy
	}

	for kind, policy := range policies {
		if err := policy.Validate(); err != nil {
			return nil, fmt.Errorf("import config: kind %s: %w", kind, err)
		}
	}
	return policies, nil
}
