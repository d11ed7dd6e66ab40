package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadParsesSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `RPCAddress = "0.0.0.0:9000"
GatewayAddress = "0.0.0.0:9001"
DataDir = "./data"
Env = "staging"
OwnerAddresses = ["0xa0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0"]
RegistrarAddresses = ["0xb0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0"]
RPCAuthTokenEnv = "TEST_RPC_TOKEN"
PausedModules = ["vesting"]
TokenMetadataBase = "https://example.test/meta/"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCAddress != "0.0.0.0:9000" || cfg.GatewayAddress != "0.0.0.0:9001" {
		t.Fatalf("listen addresses = %q, %q", cfg.RPCAddress, cfg.GatewayAddress)
	}
	if cfg.Env != "staging" {
		t.Fatalf("env = %q", cfg.Env)
	}
	if len(cfg.OwnerAddresses) != 1 || len(cfg.RegistrarAddresses) != 1 {
		t.Fatalf("role addresses = %v, %v", cfg.OwnerAddresses, cfg.RegistrarAddresses)
	}
	if len(cfg.PausedModules) != 1 || cfg.PausedModules[0] != "vesting" {
		t.Fatalf("paused modules = %v", cfg.PausedModules)
	}
	if cfg.TokenMetadataBase != "https://example.test/meta/" {
		t.Fatalf("metadata base = %q", cfg.TokenMetadataBase)
	}
}

func TestLoadCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if cfg.RPCAddress == "" || cfg.GatewayAddress == "" || cfg.DataDir == "" {
		t.Fatalf("default config incomplete: %+v", cfg)
	}
	if cfg.Env != defaultEnv {
		t.Fatalf("env = %q, want %q", cfg.Env, defaultEnv)
	}
	if cfg.TokenMetadataBase != defaultTokenMetadataBase {
		t.Fatalf("metadata base = %q", cfg.TokenMetadataBase)
	}

	// Loading the freshly-written file round-trips.
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.RPCAddress != cfg.RPCAddress || again.DataDir != cfg.DataDir {
		t.Fatalf("reloaded config mismatch: %+v vs %+v", again, cfg)
	}
}

func TestLoadRejectsBadAddress(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `RPCAddress = ":8080"
DataDir = "./data"
OwnerAddresses = ["not-an-address"]
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "OwnerAddresses") {
		t.Fatalf("load err = %v, want owner address error", err)
	}
}

func TestDecodeAddress(t *testing.T) {
	addr, err := DecodeAddress("0x0102030405060708090a0b0c0d0e0f1011121314")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if addr[0] != 0x01 || addr[19] != 0x14 {
		t.Fatalf("decoded bytes = %x", addr)
	}

	for _, bad := range []string{"", "abcdef", "0x1234", "0xzz02030405060708090a0b0c0d0e0f1011121314"} {
		if _, err := DecodeAddress(bad); err == nil {
			t.Fatalf("decode %q succeeded", bad)
		}
	}
}

func TestRPCAuthTokenFromEnv(t *testing.T) {
	cfg := &Config{RPCAuthTokenEnv: "KLIVER_TEST_TOKEN"}
	t.Setenv("KLIVER_TEST_TOKEN", "  secret  ")
	if got := cfg.RPCAuthToken(); got != "secret" {
		t.Fatalf("token = %q", got)
	}
	t.Setenv("KLIVER_TEST_TOKEN", "")
	if got := cfg.RPCAuthToken(); got != "" {
		t.Fatalf("token = %q, want empty", got)
	}
}
