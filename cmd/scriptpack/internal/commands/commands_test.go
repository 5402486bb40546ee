package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/scriptpack/internal/buildenv"
	"github.com/wolfeidau/scriptpack/internal/profile"
	"gopkg.in/yaml.v3"
)

func TestSelectProfiles(t *testing.T) {
	names, err := selectProfiles(nil)
	require.NoError(t, err)
	assert.Equal(t, profile.Names, names)

	names, err = selectProfiles([]string{"webDev", "webDev", "prod"})
	require.NoError(t, err)
	assert.Equal(t, []string{"webDev", "prod"}, names)

	_, err = selectProfiles([]string{"staging"})
	require.ErrorIs(t, err, profile.ErrUnknownProfile)
}

func TestResolveProfiles_requiresVersion(t *testing.T) {
	t.Setenv(buildenv.EnvPackageVersion, "")
	t.Setenv(buildenv.EnvVersion, "not-a-version")

	_, err := resolveProfiles(context.Background(), t.TempDir(), []string{profile.NameWebDev})
	var cfgErr *buildenv.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestResolveProfiles_developmentSkipsCommit(t *testing.T) {
	t.Setenv(buildenv.EnvPackageVersion, "4.60.0")

	// not a git repository, only prod needs the commit
	root := t.TempDir()
	profiles, err := resolveProfiles(context.Background(), root, []string{profile.NameWebDev, profile.NameWebDevProd})
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, root, profiles[0].RootDir)

	_, err = resolveProfiles(context.Background(), root, []string{profile.NameProd})
	var cfgErr *buildenv.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "commit", cfgErr.Field)
}

func TestWriteProfiles(t *testing.T) {
	t.Setenv(buildenv.EnvPackageVersion, "4.60.0")
	profiles, err := resolveProfiles(context.Background(), t.TempDir(), []string{profile.NameWebDevProd})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, writeProfiles(&buf, "yaml", profiles))

	var decoded []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "webDevProd", decoded[0]["name"])
	assert.Contains(t, decoded[0]["plugins"], "vue-loader")
	assert.Contains(t, decoded[0], "dev_server")

	buf.Reset()
	require.NoError(t, writeProfiles(&buf, "json", profiles))
	var fromJSON []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fromJSON))
	require.Len(t, fromJSON, 1)
	assert.Equal(t, "webDevProd", fromJSON[0]["name"])
	assert.Contains(t, fromJSON[0]["plugins"], "copy:script.js")

	require.Error(t, writeProfiles(&buf, "toml", profiles))
}

func TestDevServerSettings(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "dev.yaml")
	require.NoError(t, os.WriteFile(config, []byte(`
listen: 127.0.0.1:9443
proxy_target: https://cdn.example.com/
allowed_hosts:
  - .example.com
`), 0o600))

	p := &profile.Profile{RootDir: dir, DevServer: ptr(profile.DefaultDevServer(dir))}

	cmd := &ServeCmd{Config: config, FontCommand: "make fonts", NoTLS: true}
	settings, err := cmd.devServerSettings(p)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9443", settings.Listen)
	assert.Equal(t, "https://cdn.example.com/", settings.ProxyTarget)
	assert.Equal(t, []string{".example.com"}, settings.AllowedHosts)
	assert.Equal(t, "make fonts", settings.FontCommand)
	assert.False(t, settings.TLS)
	assert.True(t, settings.ChangeOrigin)

	// the profile is unchanged
	assert.Equal(t, "0.0.0.0:8000", p.DevServer.Listen)
	assert.True(t, p.DevServer.TLS)
}

func TestDevServerSettings_configDisables(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "dev.yaml")
	require.NoError(t, os.WriteFile(config, []byte("tls: false\ncompress: false\nchange_origin: false\n"), 0o600))

	p := &profile.Profile{RootDir: dir, DevServer: ptr(profile.DefaultDevServer(dir))}

	settings, err := (&ServeCmd{Config: config}).devServerSettings(p)
	require.NoError(t, err)
	assert.False(t, settings.TLS)
	assert.False(t, settings.Compress)
	assert.False(t, settings.ChangeOrigin)
	assert.Equal(t, "0.0.0.0:8000", settings.Listen)

	// empty values leave the profile settings alone
	require.NoError(t, os.WriteFile(config, []byte("listen: \"\"\n"), 0o600))
	settings, err = (&ServeCmd{Config: config}).devServerSettings(p)
	require.NoError(t, err)
	assert.True(t, settings.TLS)
	assert.True(t, settings.Compress)
}

func TestLoadDevServerConfig_json(t *testing.T) {
	config := filepath.Join(t.TempDir(), "dev.json")
	require.NoError(t, os.WriteFile(config, []byte(`{"listen": ":8443", "status_version": 3}`), 0o600))

	cfg, err := loadDevServerConfig(config)
	require.NoError(t, err)
	assert.Equal(t, ":8443", cfg.Listen)
	assert.Equal(t, 3, cfg.StatusVersion)
	assert.Nil(t, cfg.TLS)

	require.NoError(t, os.WriteFile(config, []byte(`{`), 0o600))
	_, err = loadDevServerConfig(config)
	require.ErrorContains(t, err, "failed to parse JSON config")
}

func TestServeCmd_certificateGenerated(t *testing.T) {
	root := t.TempDir()
	cmd := &ServeCmd{Root: root, CertDir: ".scriptpack"}

	cert, err := cmd.certificate([]string{".twitch.tv"})
	require.NoError(t, err)
	require.NotEmpty(t, cert.Certificate)

	_, err = os.Stat(filepath.Join(root, ".scriptpack"))
	require.NoError(t, err)
}

func ptr[T any](v T) *T {
	return &v
}
