package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PLATFORM_FEE_ADDRESS", "RPC_PRIMARY_URL", "WS_LOGS_URL", "MASTER_ENCRYPTION_KEY",
		"AMM_PROGRAM_ADDRESS", "AMM_GLOBAL_CONFIG_ADDRESS", "AMM_FEE_CONFIG_ADDRESS",
		"AMM_EVENT_AUTHORITY_ADDRESS", "AMM_FEE_RECEIVER_ADDRESS",
		"AMM_VOLUME_ACCUMULATOR_1_ADDRESS", "AMM_VOLUME_ACCUMULATOR_2_ADDRESS",
	} {
		require.NoError(t, os.Unsetenv(k))
	}
}

// setValidAMMAddresses fills in every required AMM program address with a
// syntactically valid but arbitrary base58 string, for tests exercising
// unrelated validation paths.
func setValidAMMAddresses(t *testing.T) {
	t.Helper()
	addr := "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"
	for _, k := range []string{
		"AMM_PROGRAM_ADDRESS", "AMM_GLOBAL_CONFIG_ADDRESS", "AMM_FEE_CONFIG_ADDRESS",
		"AMM_EVENT_AUTHORITY_ADDRESS", "AMM_FEE_RECEIVER_ADDRESS",
		"AMM_VOLUME_ACCUMULATOR_1_ADDRESS", "AMM_VOLUME_ACCUMULATOR_2_ADDRESS",
	} {
		t.Setenv(k, addr)
	}
}

func TestLoad_FailsFastOnMissingPlatformFeeAddress(t *testing.T) {
	clearEnv(t)
	t.Setenv("RPC_PRIMARY_URL", "https://rpc.example.com")
	t.Setenv("WS_LOGS_URL", "wss://rpc.example.com")
	t.Setenv("MASTER_ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PLATFORM_FEE_ADDRESS")
}

func TestLoad_FailsFastOnSystemProgramAddress(t *testing.T) {
	clearEnv(t)
	t.Setenv("PLATFORM_FEE_ADDRESS", SystemProgramAddress)
	t.Setenv("RPC_PRIMARY_URL", "https://rpc.example.com")
	t.Setenv("WS_LOGS_URL", "wss://rpc.example.com")
	t.Setenv("MASTER_ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "system program")
}

func TestLoad_FailsFastOnMissingWSLogsURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("PLATFORM_FEE_ADDRESS", "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
	t.Setenv("RPC_PRIMARY_URL", "https://rpc.example.com")
	t.Setenv("MASTER_ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")
	setValidAMMAddresses(t)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WS_LOGS_URL")
}

func TestLoad_FailsFastOnMissingAMMAddress(t *testing.T) {
	clearEnv(t)
	t.Setenv("PLATFORM_FEE_ADDRESS", "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
	t.Setenv("RPC_PRIMARY_URL", "https://rpc.example.com")
	t.Setenv("WS_LOGS_URL", "wss://rpc.example.com")
	t.Setenv("MASTER_ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AMM_")
}

func TestLoad_Succeeds(t *testing.T) {
	clearEnv(t)
	t.Setenv("PLATFORM_FEE_ADDRESS", "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
	t.Setenv("RPC_PRIMARY_URL", "https://rpc.example.com")
	t.Setenv("WS_LOGS_URL", "wss://rpc.example.com")
	t.Setenv("MASTER_ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")
	t.Setenv("BUNDLE_ENDPOINTS", "https://a.example.com,https://b.example.com")
	setValidAMMAddresses(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.PlatformFeeBps)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.BundleEndpoints)
}
