package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdkforge/repo-resolver/internal/packages"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
forceHttp: true
upgradeStyle: embedded
sources:
  - url: https://dl.sdkforge.dev/sdk/repository.xml
    name: SDKForge Official
    trusted: true
  - url: https://addons.example.com/sdk/
    name: Acme Add-ons
sync:
  interval: 15m
state:
  dir: /var/lib/repo-resolver
`)

	cfg, err := LoadConfig(WithConfigPath(path))
	require.NoError(t, err)

	assert.True(t, cfg.ForceHTTP)
	assert.Equal(t, UpgradeStyleEmbedded, cfg.GetUpgradeStyle())
	assert.Equal(t, 15*time.Minute, cfg.GetSyncInterval())
	assert.Equal(t, "/var/lib/repo-resolver", cfg.GetStateDir())

	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, packages.TrustInternal, cfg.Sources[0].Trust())
	assert.Equal(t, packages.TrustAddon, cfg.Sources[1].Trust())
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
sources:
  - url: https://dl.sdkforge.dev/sdk/repository.xml
`)

	cfg, err := LoadConfig(WithConfigPath(path))
	require.NoError(t, err)

	assert.False(t, cfg.ForceHTTP)
	assert.Equal(t, UpgradeStyleStandalone, cfg.GetUpgradeStyle())
	assert.Equal(t, DefaultSyncInterval, cfg.GetSyncInterval())
	assert.NotEmpty(t, cfg.GetStateDir())
}

func TestLoadConfigErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "no sources",
			content: `sources: []`,
			wantErr: "invalid configuration",
		},
		{
			name: "missing url",
			content: `
sources:
  - name: nameless
`,
			wantErr: "invalid configuration",
		},
		{
			name: "unknown top-level key",
			content: `
sources:
  - url: https://example.com/repository.xml
registries: []
`,
			wantErr: "invalid configuration",
		},
		{
			name: "bad url scheme",
			content: `
sources:
  - url: ftp://example.com/repository.xml
`,
			wantErr: "scheme must be http or https",
		},
		{
			name: "duplicate source url",
			content: `
sources:
  - url: https://example.com/repository.xml
  - url: https://example.com/repository.xml
`,
			wantErr: "duplicate source URL",
		},
		{
			name: "bad sync interval",
			content: `
sources:
  - url: https://example.com/repository.xml
sync:
  interval: often
`,
			wantErr: "valid duration",
		},
		{
			name: "bad upgrade style",
			content: `
upgradeStyle: desktop
sources:
  - url: https://example.com/repository.xml
`,
			wantErr: "invalid configuration",
		},
		{
			name:    "not yaml",
			content: `{{{`,
			wantErr: "failed to parse YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := LoadConfig(WithConfigPath(writeConfig(t, tt.content)))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig(WithConfigPath(filepath.Join(t.TempDir(), "nope.yaml")))
	require.Error(t, err)
}

func TestLoadConfigNoPath(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}
