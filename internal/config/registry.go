package config

import (
	"log/slog"
	"net/http"

	"github.com/robby/reviewr/internal/auth"
	"github.com/robby/reviewr/internal/gerrit"
	"github.com/robby/reviewr/internal/gh"
	"github.com/robby/reviewr/internal/gitlab"
	"github.com/robby/reviewr/internal/httpx"
	"github.com/robby/reviewr/internal/jira"
	"github.com/robby/reviewr/internal/platform"
)

// BuildOptions carries shared collaborators handed to every adapter.
type BuildOptions struct {
	Secrets    auth.Provider // consulted for secrets missing from the file
	Logger     *slog.Logger
	HTTPClient *http.Client
}

// BuildRegistry creates every adapter the config describes. Gerrit, Jira and
// GitHub are always registered, configured or not, so status listings can
// show them. Platforms named in ui.preferred_platform_order come first.
func BuildRegistry(cfg *Config, opts BuildOptions) (*platform.Registry, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	// A failed lookup (locked keychain, no D-Bus) leaves the platform
	// unconfigured instead of failing the whole registry.
	secret := func(configured, account string) string {
		if configured != "" || opts.Secrets == nil {
			return configured
		}
		v, err := auth.Resolve(opts.Secrets, account)
		if err != nil {
			opts.Logger.Warn("credential lookup failed", "account", account, "error", err)
			return ""
		}
		return v
	}
	httpOpts := []httpx.Option{httpx.WithLogger(opts.Logger)}
	if opts.HTTPClient != nil {
		httpOpts = append(httpOpts, httpx.WithHTTPClient(opts.HTTPClient))
	}

	var ordered []platform.Platform

	gc := GerritConfig{}
	if cfg.Platforms.Gerrit != nil {
		gc = *cfg.Platforms.Gerrit
	}
	ordered = append(ordered, gerrit.New(gerrit.Config{
		URL:      gc.URL,
		Username: gc.Username,
		Password: secret(gc.HTTPPassword, gerrit.ID),
	}, httpOpts...))

	jc := JiraConfig{}
	if cfg.Platforms.Jira != nil {
		jc = *cfg.Platforms.Jira
	}
	ordered = append(ordered, jira.New(jira.Config{
		URL:           jc.URL,
		Username:      jc.Username,
		APIToken:      secret(jc.APIToken, jira.ID),
		ProjectFilter: jc.ProjectFilter,
	}, httpOpts...))

	for _, gl := range cfg.Platforms.GitLab {
		ordered = append(ordered, gitlab.New(gitlab.Config{
			InstanceID: gl.ID,
			Name:       gl.Name,
			URL:        gl.URL,
			Token:      secret(gl.Token, gitlab.IDPrefix+gl.ID),
		}, httpOpts...))
	}

	ghc := GitHubConfig{}
	if cfg.Platforms.GitHub != nil {
		ghc = *cfg.Platforms.GitHub
	}
	ordered = append(ordered, gh.New(gh.Config{
		Token:      secret(ghc.Token, gh.ID),
		Endpoint:   ghc.Endpoint,
		HTTPClient: opts.HTTPClient,
		Logger:     opts.Logger,
	}))

	reg := platform.NewRegistry()
	for _, p := range preferredOrder(ordered, cfg.UI.PreferredPlatformOrder, opts.Logger) {
		if err := reg.Register(p); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// preferredOrder moves the platforms named in preferred to the front, in
// that order. Unknown ids are logged and skipped.
func preferredOrder(ps []platform.Platform, preferred []string, logger *slog.Logger) []platform.Platform {
	byID := make(map[string]platform.Platform, len(ps))
	for _, p := range ps {
		byID[p.ID()] = p
	}
	out := make([]platform.Platform, 0, len(ps))
	taken := make(map[string]bool, len(ps))
	for _, id := range preferred {
		p, ok := byID[id]
		if !ok {
			logger.Warn("unknown platform in preferred_platform_order", "platform", id)
			continue
		}
		if !taken[id] {
			out = append(out, p)
			taken[id] = true
		}
	}
	for _, p := range ps {
		if !taken[p.ID()] {
			out = append(out, p)
		}
	}
	return out
}
