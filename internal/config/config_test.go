package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/robby/reviewr/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
[ui]
default_days = 14
preferred_platform_order = ["github", "jira"]

[platforms.gerrit]
url = "https://review.example.com"
username = "dev"
http_password = "pw"

[platforms.jira]
url = "https://acme.atlassian.net"
username = "dev@example.com"

[[platforms.gitlab]]
id = "work"
name = "Work GitLab"
url = "https://gitlab.example.com"
token = "glpat"

[platforms.github]
endpoint = "https://ghe.example.com/api/graphql"

[extra]
colour = "blue"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0o600))
	return dir
}

func ids(t *testing.T, cfg *Config, secrets auth.Provider) []string {
	t.Helper()
	reg, err := BuildRegistry(cfg, BuildOptions{Secrets: secrets})
	require.NoError(t, err)
	var out []string
	for _, h := range reg.Handles() {
		out = append(out, h.ID)
	}
	return out
}

func TestLoad(t *testing.T) {
	t.Setenv("REVIEWR_DAYS", "")
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, 14, cfg.UI.DefaultDays)
	require.NotNil(t, cfg.Platforms.Gerrit)
	assert.Equal(t, "pw", cfg.Platforms.Gerrit.HTTPPassword)
	require.Len(t, cfg.Platforms.GitLab, 1)
	assert.Equal(t, "Work GitLab", cfg.Platforms.GitLab[0].Name)
	assert.Equal(t, "https://ghe.example.com/api/graphql", cfg.Platforms.GitHub.Endpoint)
	assert.Contains(t, cfg.Unknown, "extra.colour")
	assert.NotEmpty(t, cfg.Path)
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("REVIEWR_DAYS", "")
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultDays, cfg.UI.DefaultDays)
	assert.Empty(t, cfg.Path)
}

func TestDaysEnvOverride(t *testing.T) {
	t.Setenv("REVIEWR_DAYS", "7")
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.UI.DefaultDays)

	t.Setenv("REVIEWR_DAYS", "abc")
	cfg, err = Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultDays, cfg.UI.DefaultDays)
}

func TestLoadErrors(t *testing.T) {
	t.Setenv("REVIEWR_DAYS", "")

	_, err := Load(writeConfig(t, "[ui\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "[ui]\ndefault_days = 0\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Load(writeConfig(t, "[[platforms.gitlab]]\nid = \"a\"\n[[platforms.gitlab]]\nid = \"a\"\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Load(writeConfig(t, "[[platforms.gitlab]]\nurl = \"https://x\"\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("REVIEWR_DAYS", "")
	dir := t.TempDir()
	cfg := Default()
	cfg.Platforms.Jira = &JiraConfig{URL: "https://j", Username: "u"}
	require.NoError(t, cfg.Save(dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "https://j", loaded.Platforms.Jira.URL)
}

func TestDataDir(t *testing.T) {
	dir, err := DataDir("/tmp/flag")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/flag", dir)

	t.Setenv("REVIEWR_DATA_PATH", "/tmp/env")
	dir, err = DataDir("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/env", dir)
}

func TestBuildRegistryOrder(t *testing.T) {
	t.Setenv("REVIEWR_DAYS", "")
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, []string{"github", "jira", "gerrit", "gitlab:work"},
		ids(t, cfg, auth.StaticProvider{}))

	cfg.UI.PreferredPlatformOrder = []string{"nope", "gitlab:work"}
	assert.Equal(t, []string{"gitlab:work", "gerrit", "jira", "github"},
		ids(t, cfg, auth.StaticProvider{}))
}

func TestBuildRegistryDefaults(t *testing.T) {
	reg, err := BuildRegistry(Default(), BuildOptions{Secrets: auth.StaticProvider{}})
	require.NoError(t, err)

	assert.Equal(t, 3, reg.Len())
	assert.Empty(t, reg.Configured())
}

func TestBuildRegistrySecrets(t *testing.T) {
	t.Setenv("REVIEWR_DAYS", "")
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	// Jira has no api_token in the file and GitHub has no token.
	reg, err := BuildRegistry(cfg, BuildOptions{Secrets: auth.StaticProvider{}})
	require.NoError(t, err)
	var configured []string
	for _, p := range reg.Configured() {
		configured = append(configured, p.ID())
	}
	assert.Equal(t, []string{"gerrit", "gitlab:work"}, configured)

	reg, err = BuildRegistry(cfg, BuildOptions{Secrets: auth.StaticProvider{"jira": "tok", "github": "ghp"}})
	require.NoError(t, err)
	assert.Len(t, reg.Configured(), 4)
}

type failingProvider struct{}

func (failingProvider) Lookup(string) (string, error) {
	return "", errors.New("keychain locked")
}

func TestBuildRegistryLookupFailure(t *testing.T) {
	cfg := Default()
	cfg.Platforms.Jira = &JiraConfig{URL: "https://j", Username: "u"}

	reg, err := BuildRegistry(cfg, BuildOptions{Secrets: failingProvider{}})
	require.NoError(t, err)
	assert.Equal(t, 3, reg.Len())
	assert.Empty(t, reg.Configured())
}
