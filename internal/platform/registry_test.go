package platform_test

import (
	"context"
	"errors"
	"testing"

	"github.com/robby/reviewr/internal/domain"
	"github.com/robby/reviewr/internal/platform"
	"github.com/robby/reviewr/internal/platform/platformtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterRejectsDuplicate(t *testing.T) {
	r := platform.NewRegistry()
	require.NoError(t, r.Register(platformtest.New("gerrit", domain.DetailedActivities{})))

	err := r.Register(platformtest.New("gerrit", domain.DetailedActivities{}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, platform.ErrDuplicatePlatform))
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_MustRegisterPanicsOnDuplicate(t *testing.T) {
	r := platform.NewRegistry()
	assert.Panics(t, func() {
		r.MustRegister(platformtest.New("jira", domain.DetailedActivities{}), platformtest.New("jira", domain.DetailedActivities{}))
	})
}

func TestRegistry_ConfiguredKeepsRegistrationOrder(t *testing.T) {
	r := platform.NewRegistry()
	gitlab := platformtest.New("gitlab", domain.DetailedActivities{})
	jira := platformtest.New("jira", domain.DetailedActivities{})
	jira.Unconfigured = true
	gerrit := platformtest.New("gerrit", domain.DetailedActivities{})
	r.MustRegister(gitlab, jira, gerrit)

	configured := r.Configured()
	require.Len(t, configured, 2)
	assert.Equal(t, "gitlab", configured[0].ID())
	assert.Equal(t, "gerrit", configured[1].ID())

	assert.Len(t, r.All(), 3)
	handles := r.Handles()
	assert.Equal(t, "jira", handles[1].ID)
	assert.False(t, handles[1].Configured)
}

func TestRegistry_Lookup(t *testing.T) {
	r := platform.NewRegistry()
	r.MustRegister(platformtest.New("gerrit", domain.DetailedActivities{}))

	p, ok := r.Platform("gerrit")
	require.True(t, ok)
	assert.Equal(t, "gerrit", p.ID())

	_, ok = r.Platform("removed")
	assert.False(t, ok)

	_, err := r.Get("removed")
	assert.True(t, errors.Is(err, platform.ErrPlatformNotFound))
}

func TestRegistry_TestAll(t *testing.T) {
	r := platform.NewRegistry()

	ok := platformtest.New("gerrit", domain.DetailedActivities{})
	failing := platformtest.New("jira", domain.DetailedActivities{})
	failing.HealthErr = errors.New("401 unauthorized")
	off := platformtest.New("gitlab", domain.DetailedActivities{})
	off.Unconfigured = true
	warn := platformtest.New("github", domain.DetailedActivities{})
	warn.Health = domain.Warning("rate limited")
	r.MustRegister(ok, failing, off, warn)

	results := r.TestAll(context.Background())
	require.Len(t, results, 4)

	assert.Equal(t, "gerrit", results[0].Handle.ID)
	assert.True(t, results[0].Status.IsOK())
	assert.Equal(t, domain.Failure("401 unauthorized"), results[1].Status)
	assert.Equal(t, domain.NotConfigured(), results[2].Status)
	assert.Equal(t, domain.StatusWarning, results[3].Status.Kind)
}
