package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	// Mnemonic is the BIP-39 phrase the wallet identity is derived from.
	Mnemonic string

	// Domain and KeyID are the protocol-context domain-separation values
	// passed through to the wallet on every wrap/unwrap.
	Domain string
	KeyID  string

	// WrapConcurrency bounds the per-recipient wrap fan-out during encrypt.
	// Zero means the library default.
	WrapConcurrency int
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		Mnemonic: strings.TrimSpace(os.Getenv("GROUPSEAL_MNEMONIC")),
		Domain:   getenv("GROUPSEAL_DOMAIN", "groupseal"),
		KeyID:    getenv("GROUPSEAL_KEY_ID", "default"),
	}
	if cfg.Mnemonic == "" {
		return nil, fmt.Errorf("GROUPSEAL_MNEMONIC is required")
	}

	if raw := strings.TrimSpace(os.Getenv("GROUPSEAL_WRAP_CONCURRENCY")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid GROUPSEAL_WRAP_CONCURRENCY %q", raw)
		}
		cfg.WrapConcurrency = n
	}
	return cfg, nil
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}
