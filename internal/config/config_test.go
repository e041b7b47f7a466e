package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEnvFile_OverridesFallbackFields(t *testing.T) {
	cfg := fallback
	parseEnvFile("VANITY_GAS_BUDGET=42\nVANITY_GAS_PRICE=7\n# comment\n\nVANITY_RPC_URL = https://example.invalid\n", &cfg)

	assert.Equal(t, uint64(42), cfg.GasBudget)
	assert.Equal(t, uint64(7), cfg.GasPrice)
	assert.Equal(t, "https://example.invalid", cfg.RPCURL)
}

func TestParseEnvFile_IgnoresMalformedLines(t *testing.T) {
	cfg := fallback
	parseEnvFile("not a kv line\nVANITY_GAS_PRICE=notanumber\n", &cfg)

	assert.Equal(t, fallback.GasPrice, cfg.GasPrice)
}

func TestSetField_ServerPort(t *testing.T) {
	cfg := fallback
	setField(&cfg, "VANITY_SERVER_PORT", "9999")
	assert.Equal(t, 9999, cfg.ServerPort)
}
