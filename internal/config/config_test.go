package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func resetGlobalConfig() {
	globalConfig = &Config{
		ListenAddress:        ":8080",
		MetricsListenAddress: "",
		DatabasePath:         ".lootcrate",
		ShutdownTimeout:      "30s",
	}
}

func TestLoad_CompareFullStruct(t *testing.T) {
	resetGlobalConfig()
	yamlContent := `
listenAddress: "127.0.0.1:9000"
metricsListenAddress: ":12798"
databasePath: "/var/lib/lootcrate"
chainRpcUrl: "https://bsc-dataseed.binance.org"
burnContract: "0x1111111111111111111111111111111111111111"
feeRecipient: "0x2222222222222222222222222222222222222222"
signingAddress: "0x3333333333333333333333333333333333333333"
solanaRpcUrl: "https://api.mainnet-beta.solana.com"
metadataBaseUrl: "https://meta.example.com/prizes"
maxTxAge: "15m"
shutdownTimeout: "10s"
tracing: true
`

	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "test-lootcrate.yaml")

	err := os.WriteFile(tmpFile, []byte(yamlContent), 0644)
	if err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	defer os.Remove(tmpFile)

	expected := &Config{
		ListenAddress:        "127.0.0.1:9000",
		MetricsListenAddress: ":12798",
		DatabasePath:         "/var/lib/lootcrate",
		ChainRpcUrl:          "https://bsc-dataseed.binance.org",
		BurnContract:         "0x1111111111111111111111111111111111111111",
		FeeRecipient:         "0x2222222222222222222222222222222222222222",
		SigningAddress:       "0x3333333333333333333333333333333333333333",
		SolanaRpcUrl:         "https://api.mainnet-beta.solana.com",
		MetadataBaseUrl:      "https://meta.example.com/prizes",
		MaxTxAge:             "15m",
		ShutdownTimeout:      "10s",
		Tracing:              true,
	}

	actual, err := LoadConfig(tmpFile)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if !reflect.DeepEqual(actual, expected) {
		t.Errorf(
			"Loaded config does not match expected.\nActual: %+v\nExpected: %+v",
			actual,
			expected,
		)
	}
}

func TestLoad_WithoutConfigFile_UsesDefaults(t *testing.T) {
	resetGlobalConfig()

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	// Expected is the original default values from globalConfig
	expected := &Config{
		ListenAddress:   ":8080",
		DatabasePath:    ".lootcrate",
		ShutdownTimeout: "30s",
	}

	if !reflect.DeepEqual(cfg, expected) {
		t.Errorf(
			"config mismatch without file:\nExpected: %+v\nGot:      %+v",
			expected,
			cfg,
		)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	resetGlobalConfig()

	yamlContent := `
chainRpcUrl: "https://file.example.com"
`

	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "test-env-override.yaml")

	err := os.WriteFile(tmpFile, []byte(yamlContent), 0644)
	if err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("LOOTCRATE_CHAIN_RPC_URL", "https://env.example.com")
	t.Setenv("LOOTCRATE_LISTEN_ADDRESS", ":7777")

	cfg, err := LoadConfig(tmpFile)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if cfg.ChainRpcUrl != "https://env.example.com" {
		t.Errorf(
			"expected ChainRpcUrl from environment, got: %s",
			cfg.ChainRpcUrl,
		)
	}
	if cfg.ListenAddress != ":7777" {
		t.Errorf(
			"expected ListenAddress from environment, got: %s",
			cfg.ListenAddress,
		)
	}
}

func TestLoad_WithTracingStdout(t *testing.T) {
	resetGlobalConfig()

	yamlContent := `
tracing: true
tracingStdout: true
`

	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "test-tracing.yaml")

	err := os.WriteFile(tmpFile, []byte(yamlContent), 0644)
	if err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadConfig(tmpFile)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if !cfg.Tracing || !cfg.TracingStdout {
		t.Errorf(
			"expected tracing flags to be set, got: tracing=%v stdout=%v",
			cfg.Tracing,
			cfg.TracingStdout,
		)
	}
}
