package robot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultMotors(), cfg.Names())
	for _, name := range DefaultMotors() {
		m := cfg.Motors[name]
		assert.Equal(t, Angle(0), m.Offset, name)
		assert.Equal(t, FullRange, m.Constraint, name)
	}
	assert.Equal(t, 1, cfg.Motors[ArmHorizontal].ID)
	assert.Equal(t, 4, cfg.Motors[Cone].ID)
}

func TestConfig_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lamp.yaml")

	cfg := DefaultConfig()
	cone := cfg.Motors[Cone]
	cone.Offset = 12.5
	cone.Reverse = true
	cone.Constraint = Constraint{Min: -45, Max: 45}
	cfg.Motors[Cone] = cone

	require.NoError(t, cfg.SaveTo(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Motors, loaded.Motors)
	assert.Equal(t, DefaultPort, loaded.Port)
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lamp.yaml")
	yaml := `
motors:
  pan:
    id: 7
    offset: 5
    constraint: {min: -30, max: 30}
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultBaudRate, cfg.BaudRate)
	assert.Equal(t, MotorConfig{ID: 7, Offset: 5, Constraint: Constraint{Min: -30, Max: 30}}, cfg.Motors["pan"])
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed", "motors: [1, 2"},
		{"no motors", "port: /dev/ttyUSB0\n"},
		{"duplicate id", "motors:\n  a: {id: 1}\n  b: {id: 1}\n"},
		{"offset out of range", "motors:\n  a: {id: 1, offset: 400}\n"},
		{"constraint out of range", "motors:\n  a: {id: 1, constraint: {min: -500, max: 0}}\n"},
		{"bad id", "motors:\n  a: {id: 300}\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "lamp.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.yaml), 0644))
			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadOrCreate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lamp.yaml")

	// Missing file: default is returned and written.
	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	_, err = os.Stat(path)
	require.NoError(t, err)

	// Malformed file: replaced by the default.
	require.NoError(t, os.WriteFile(path, []byte("{{{"), 0644))
	cfg, err = LoadOrCreate(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Motors, 4)

	reloaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Motors, reloaded.Motors)
}

func TestLoadOrCreate_WriteFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "lamp.yaml")
	cfg, err := LoadOrCreate(path)
	assert.Error(t, err)
	require.NotNil(t, cfg)
	assert.Len(t, cfg.Motors, 4)
}
