// Package auth resolves platform credentials (passwords, API tokens).
// Callers ask for a secret by account name ("gerrit", "jira", "gitlab:work",
// "github") and a chain of providers is consulted in order.
package auth

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/zalando/go-keyring"
)

// ServiceName is the keyring service under which secrets are stored.
const ServiceName = "reviewr"

// ErrNoCredential indicates no provider holds a secret for the account.
var ErrNoCredential = errors.New("no credential found")

// Provider defines the interface for obtaining a secret for an account.
// Implementations return ErrNoCredential (possibly wrapped) when they have nothing.
type Provider interface {
	Lookup(account string) (string, error)
}

// StaticProvider serves secrets already known, typically from the config file.
type StaticProvider map[string]string

// Lookup returns the configured secret for the account.
func (s StaticProvider) Lookup(account string) (string, error) {
	if v := strings.TrimSpace(s[account]); v != "" {
		return v, nil
	}
	return "", ErrNoCredential
}

// EnvProvider reads secrets from environment variables.
// The variable for account "gitlab:work" is REVIEWR_GITLAB_WORK_TOKEN.
// Aliases adds extra variable names per account, tried after the default.
type EnvProvider struct {
	Aliases map[string][]string
	Getenv  func(string) string
}

// EnvVar returns the default environment variable name for an account.
func EnvVar(account string) string {
	var b strings.Builder
	b.WriteString("REVIEWR_")
	for _, r := range strings.ToUpper(account) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	b.WriteString("_TOKEN")
	return b.String()
}

// Lookup reads the account's variables in order.
func (e EnvProvider) Lookup(account string) (string, error) {
	getenv := e.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	names := append([]string{EnvVar(account)}, e.Aliases[account]...)
	for _, name := range names {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %s not set", ErrNoCredential, strings.Join(names, ", "))
}

// KeyringProvider reads secrets from the OS keychain.
type KeyringProvider struct {
	Service string
}

func (k KeyringProvider) service() string {
	if k.Service == "" {
		return ServiceName
	}
	return k.Service
}

// Lookup fetches the account's secret from the keychain.
func (k KeyringProvider) Lookup(account string) (string, error) {
	secret, err := keyring.Get(k.service(), account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("%w: not in keyring", ErrNoCredential)
	}
	if err != nil {
		return "", fmt.Errorf("keyring lookup failed: %w", err)
	}
	return secret, nil
}

// Store saves a secret in the keychain.
func (k KeyringProvider) Store(account, secret string) error {
	if account == "" || secret == "" {
		return errors.New("account and secret must not be empty")
	}
	if err := keyring.Set(k.service(), account, secret); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	return nil
}

// Delete removes a secret from the keychain.
func (k KeyringProvider) Delete(account string) error {
	err := keyring.Delete(k.service(), account)
	if errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%w: not in keyring", ErrNoCredential)
	}
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}

// GhCliProvider obtains the GitHub token by shelling out to `gh auth token`.
// It only answers for the "github" account.
type GhCliProvider struct {
	Hostname string
}

// Lookup runs the GitHub CLI.
func (g GhCliProvider) Lookup(account string) (string, error) {
	if account != "github" {
		return "", ErrNoCredential
	}
	host := g.Hostname
	if host == "" {
		host = "github.com"
	}

	cmd := exec.Command("gh", "auth", "token", "--hostname", host)
	output, err := cmd.Output()
	if err != nil {
		// Check if it's an exec error (gh not found)
		var execErr *exec.Error
		if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
			return "", fmt.Errorf("%w: gh CLI not found in PATH", ErrNoCredential)
		}
		return "", fmt.Errorf("%w: gh auth token failed: %v", ErrNoCredential, err)
	}

	token := strings.TrimSpace(string(output))
	if token == "" {
		return "", fmt.Errorf("%w: gh auth token returned empty token", ErrNoCredential)
	}
	return token, nil
}

// Chain consults providers in order and returns the first secret found.
type Chain []Provider

// Lookup walks the chain. A provider failing with something other than
// ErrNoCredential stops the walk.
func (c Chain) Lookup(account string) (string, error) {
	var misses []string
	for _, p := range c {
		secret, err := p.Lookup(account)
		if err == nil {
			return secret, nil
		}
		if !errors.Is(err, ErrNoCredential) {
			return "", fmt.Errorf("credential lookup for %s: %w", account, err)
		}
		misses = append(misses, err.Error())
	}
	return "", fmt.Errorf("%w for %s (%s)", ErrNoCredential, account, strings.Join(misses, "; "))
}

// DefaultChain returns static secrets first, then environment, then the
// GitHub CLI and finally the OS keychain.
func DefaultChain(static map[string]string) Chain {
	return Chain{
		StaticProvider(static),
		EnvProvider{Aliases: map[string][]string{"github": {"GITHUB_TOKEN"}}},
		GhCliProvider{},
		KeyringProvider{},
	}
}

// Resolve looks up a secret, returning "" when none is configured anywhere.
// Errors other than a miss are returned.
func Resolve(p Provider, account string) (string, error) {
	secret, err := p.Lookup(account)
	if errors.Is(err, ErrNoCredential) {
		return "", nil
	}
	return secret, err
}
