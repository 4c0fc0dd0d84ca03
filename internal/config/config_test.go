package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvConfig_GetString_UsesPrefixedKey(t *testing.T) {
	os.Setenv("VAULTFORGE_SERVER_HOST", "example.internal")
	defer os.Unsetenv("VAULTFORGE_SERVER_HOST")

	env := NewEnvConfig("SERVER")
	assert.Equal(t, "example.internal", env.GetString("HOST", "default"))
}

func TestEnvConfig_GetString_FallsBackToDefault(t *testing.T) {
	env := NewEnvConfig("SERVER")
	assert.Equal(t, "default", env.GetString("UNSET_KEY", "default"))
}

func TestEnvConfig_GetInt_IgnoresUnparsableValue(t *testing.T) {
	os.Setenv("VAULTFORGE_QUEUE_NUM_WORKERS", "not-a-number")
	defer os.Unsetenv("VAULTFORGE_QUEUE_NUM_WORKERS")

	env := NewEnvConfig("QUEUE")
	assert.Equal(t, 2, env.GetInt("NUM_WORKERS", 2))
}

func TestEnvConfig_GetStringSlice_SplitsAndTrims(t *testing.T) {
	os.Setenv("VAULTFORGE_FORGE_TAGS", "a, b ,c")
	defer os.Unsetenv("VAULTFORGE_FORGE_TAGS")

	env := NewEnvConfig("FORGE")
	assert.Equal(t, []string{"a", "b", "c"}, env.GetStringSlice("TAGS", nil))
}

func TestValidator_AccumulatesErrors(t *testing.T) {
	v := NewValidator()
	v.RequireString("Field.A", "")
	v.RequirePositiveInt("Field.B", 0)
	v.RequireOneOf("Field.C", "x", []string{"a", "b"})

	assert.False(t, v.IsValid())
	err := v.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Field.A")
	assert.Contains(t, err.Error(), "Field.B")
	assert.Contains(t, err.Error(), "Field.C")
}

func TestValidator_NoErrorsWhenValid(t *testing.T) {
	v := NewValidator()
	v.RequireString("Field.A", "present")
	v.RequirePositiveInt("Field.B", 1)
	v.RequireOneOf("Field.C", "a", []string{"a", "b"})

	assert.True(t, v.IsValid())
	assert.NoError(t, v.Validate())
}

func TestLoadAll_DefaultsAreValidWithInMemoryAndMockForge(t *testing.T) {
	os.Setenv("VAULTFORGE_DB_USE_IN_MEMORY", "true")
	os.Setenv("VAULTFORGE_FORGE_USE_MOCK", "true")
	defer os.Unsetenv("VAULTFORGE_DB_USE_IN_MEMORY")
	defer os.Unsetenv("VAULTFORGE_FORGE_USE_MOCK")

	cfg, err := LoadAll()
	require.NoError(t, err)
	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, "gitea", cfg.Forge.Provider)
}

func TestLoadAll_RequiresDSNWhenNotInMemory(t *testing.T) {
	os.Setenv("VAULTFORGE_DB_USE_IN_MEMORY", "false")
	os.Setenv("VAULTFORGE_FORGE_USE_MOCK", "true")
	defer os.Unsetenv("VAULTFORGE_DB_USE_IN_MEMORY")
	defer os.Unsetenv("VAULTFORGE_FORGE_USE_MOCK")

	_, err := LoadAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Database.DSN")
}

func TestLoadAll_RejectsUnknownForgeProvider(t *testing.T) {
	os.Setenv("VAULTFORGE_DB_USE_IN_MEMORY", "true")
	os.Setenv("VAULTFORGE_FORGE_USE_MOCK", "true")
	os.Setenv("VAULTFORGE_FORGE_PROVIDER", "bitbucket")
	defer os.Unsetenv("VAULTFORGE_DB_USE_IN_MEMORY")
	defer os.Unsetenv("VAULTFORGE_FORGE_USE_MOCK")
	defer os.Unsetenv("VAULTFORGE_FORGE_PROVIDER")

	_, err := LoadAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Forge.Provider")
}
