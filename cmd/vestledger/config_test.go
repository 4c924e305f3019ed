package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("VEST_ACCOUNTS", "alice, bob")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store)
	assert.Equal(t, "static", cfg.Directory)
	assert.Empty(t, cfg.NATSURL)
	assert.Equal(t, 1, cfg.InvariantCheckInterval)
	assert.ElementsMatch(t, []string{"alice", "bob", "vestledger"},
		[]string{string(cfg.Accounts[0]), string(cfg.Accounts[1]), string(cfg.Accounts[2])})
}

func TestLoadConfig_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad self", map[string]string{"VEST_SELF_ACCOUNT": "Not Valid"}},
		{"bad store", map[string]string{"VEST_STORE": "redis"}},
		{"postgres directory on memory store", map[string]string{"VEST_DIRECTORY": "postgres"}},
		{"bad account list", map[string]string{"VEST_ACCOUNTS": "alice,BOB"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestEnvIntOrDefault(t *testing.T) {
	t.Setenv("VEST_TEST_INT", "42")
	assert.Equal(t, 42, envIntOrDefault("VEST_TEST_INT", 7))

	t.Setenv("VEST_TEST_INT", "nope")
	assert.Equal(t, 7, envIntOrDefault("VEST_TEST_INT", 7))
	assert.Equal(t, 7, envIntOrDefault("VEST_TEST_UNSET", 7))
}
