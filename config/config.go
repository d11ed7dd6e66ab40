package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the on-disk node configuration.
type Config struct {
	RPCAddress         string   `toml:"RPCAddress"`
	GatewayAddress     string   `toml:"GatewayAddress"`
	DataDir            string   `toml:"DataDir"`
	Env                string   `toml:"Env"`
	OwnerAddresses     []string `toml:"OwnerAddresses"`
	RegistrarAddresses []string `toml:"RegistrarAddresses"`
	RPCAuthTokenEnv    string   `toml:"RPCAuthTokenEnv"`
	PausedModules      []string `toml:"PausedModules"`
	TokenMetadataBase  string   `toml:"TokenMetadataBase"`
}

const (
	defaultEnv               = "local"
	defaultTokenMetadataBase = "https://api.kliver.io/metadata/"
	defaultAuthTokenEnv      = "KLIVER_RPC_TOKEN"
)

// Load reads the configuration at path, creating a default file when none
// exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Env) == "" {
		c.Env = defaultEnv
	}
	if strings.TrimSpace(c.TokenMetadataBase) == "" {
		c.TokenMetadataBase = defaultTokenMetadataBase
	}
	if strings.TrimSpace(c.RPCAuthTokenEnv) == "" {
		c.RPCAuthTokenEnv = defaultAuthTokenEnv
	}
	if c.OwnerAddresses == nil {
		c.OwnerAddresses = []string{}
	}
	if c.RegistrarAddresses == nil {
		c.RegistrarAddresses = []string{}
	}
	if c.PausedModules == nil {
		c.PausedModules = []string{}
	}
}

// Validate checks address syntax and the listen endpoints.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RPCAddress) == "" {
		return fmt.Errorf("RPCAddress must not be empty")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("DataDir must not be empty")
	}
	for _, addr := range c.OwnerAddresses {
		if _, err := DecodeAddress(addr); err != nil {
			return fmt.Errorf("OwnerAddresses: %w", err)
		}
	}
	for _, addr := range c.RegistrarAddresses {
		if _, err := DecodeAddress(addr); err != nil {
			return fmt.Errorf("RegistrarAddresses: %w", err)
		}
	}
	return nil
}

// RPCAuthToken resolves the bearer token for mutating RPC methods from the
// configured environment variable. An empty result disables auth.
func (c *Config) RPCAuthToken() string {
	return strings.TrimSpace(os.Getenv(c.RPCAuthTokenEnv))
}

// DecodeAddress parses a 0x-prefixed 20-byte hex account address.
func DecodeAddress(value string) ([20]byte, error) {
	var out [20]byte
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "0x") && !strings.HasPrefix(trimmed, "0X") {
		return out, fmt.Errorf("address %q missing 0x prefix", value)
	}
	raw, err := hex.DecodeString(trimmed[2:])
	if err != nil {
		return out, fmt.Errorf("address %q is not hex: %w", value, err)
	}
	if len(raw) != len(out) {
		return out, fmt.Errorf("address %q must be %d bytes, got %d", value, len(out), len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

// createDefault writes a default configuration file and returns it.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		RPCAddress:     ":8080",
		GatewayAddress: ":8081",
		DataDir:        "./kliver-data",
	}
	cfg.applyDefaults()

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
