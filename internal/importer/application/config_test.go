package application

import (
	"os"
	"path/filepath"
	"testing"

	importer "lendledger/internal/importer/domain"
	ledger "lendledger/internal/ledger/domain"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("IMPORT_CONFIG", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.Carriers) != 4 || cfg.Carriers[3] != "楽天モバイル" {
		t.Fatalf("carriers = %v", cfg.Carriers)
	}
	if len(cfg.Statuses) != 4 {
		t.Fatalf("statuses = %v", cfg.Statuses)
	}

	policies, err := cfg.Policies()
	if err != nil {
		t.Fatalf("Policies: %v", err)
	}
	if len(policies) != len(ledger.Kinds()) {
		t.Fatalf("policies = %d, want one per kind", len(policies))
	}
	tablet := policies[ledger.KindTablet]
	if tablet.HeaderPolicy != importer.HeaderSubset || tablet.RowOffset != 2 {
		t.Fatalf("tablet policy = %+v", tablet)
	}
	iphone := policies[ledger.KindIPhone]
	if iphone.HeaderPolicy != importer.HeaderSuperset || iphone.RowOffset != 3 {
		t.Fatalf("iphone policy = %+v", iphone)
	}
}

func TestLoadConfigYAMLOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "import.yaml")
	data := []byte(`
carriers: ["ドコモ", "au"]
statuses: ["利用中", "返却済"]
kinds:
  tablet:
    header_policy: superset
    bounds_policy: ignore
    row_offset: 5
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("IMPORT_CONFIG", path)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.Carriers) != 2 {
		t.Fatalf("carriers = %v", cfg.Carriers)
	}

	policies, err := cfg.Policies()
	if err != nil {
		t.Fatalf("Policies: %v", err)
	}
	tablet := policies[ledger.KindTablet]
	if tablet.HeaderPolicy != importer.HeaderSuperset {
		t.Fatalf("header policy = %q", tablet.HeaderPolicy)
	}
	if tablet.BoundsPolicy != importer.BoundsIgnore {
		t.Fatalf("bounds policy = %q", tablet.BoundsPolicy)
	}
	if tablet.RowOffset != 5 {
		t.Fatalf("row offset = %d", tablet.RowOffset)
	}
	// Untouched kinds keep their defaults.
	if policies[ledger.KindRouter].RowOffset != 2 {
		t.Fatalf("router offset = %d", policies[ledger.KindRouter].RowOffset)
	}
}

func TestPoliciesUnknownKind(t *testing.T) {
	cfg := Config{
		Carriers: []string{"ドコモ"},
		Statuses: []string{"利用中"},
		Kinds:    map[string]KindOverride{"toaster": {RowOffset: 9}},
	}
	if _, err := cfg.Policies(); err == nil {
		t.Fatal("unknown kind accepted")
	}
}

func TestPoliciesInvalidOverride(t *testing.T) {
	cfg := Config{
		Carriers: []string{"ドコモ"},
		Statuses: []string{"利用中"},
		Kinds:    map[string]KindOverride{"tablet": {HeaderPolicy: "sideways"}},
	}
	if _, err := cfg.Policies(); err == nil {
		t.Fatal("invalid header policy accepted")
	}
}
