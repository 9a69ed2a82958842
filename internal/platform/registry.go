package platform

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robby/reviewr/internal/domain"
)

var (
	// ErrDuplicatePlatform indicates a platform id was registered twice.
	ErrDuplicatePlatform = errors.New("duplicate platform id")
	// ErrPlatformNotFound indicates no platform with the given id is registered.
	ErrPlatformNotFound = errors.New("platform not found")
)

// Registry holds adapters in registration order, keyed by unique id.
// It is populated once at startup and read-only afterwards.
type Registry struct {
	order []string
	byID  map[string]Platform
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Platform)}
}

// Register adds an adapter. Registering an id that already exists is rejected
// immediately with ErrDuplicatePlatform.
func (r *Registry) Register(p Platform) error {
	id := p.ID()
	if _, exists := r.byID[id]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicatePlatform, id)
	}
	r.byID[id] = p
	r.order = append(r.order, id)
	return nil
}

// MustRegister is Register for static wiring where a duplicate is a programming error.
func (r *Registry) MustRegister(platforms ...Platform) {
	for _, p := range platforms {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
}

// All returns every registered adapter in registration order.
func (r *Registry) All() []Platform {
	result := make([]Platform, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.byID[id])
	}
	return result
}

// Configured returns, in registration order, only the adapters whose
// IsConfigured reports true.
func (r *Registry) Configured() []Platform {
	var result []Platform
	for _, id := range r.order {
		if p := r.byID[id]; p.IsConfigured() {
			result = append(result, p)
		}
	}
	return result
}

// Platform looks up an adapter by id. A missing id is not an error.
func (r *Registry) Platform(id string) (Platform, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// Get is Platform for callers that prefer an error.
func (r *Registry) Get(id string) (Platform, error) {
	if p, ok := r.byID[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrPlatformNotFound, id)
}

// Len returns the number of registered adapters.
func (r *Registry) Len() int {
	return len(r.order)
}

// Handles returns the identity of every registered adapter in order.
func (r *Registry) Handles() []Handle {
	handles := make([]Handle, 0, len(r.order))
	for _, id := range r.order {
		handles = append(handles, HandleOf(r.byID[id]))
	}
	return handles
}

// HealthResult pairs a platform handle with its health check outcome.
type HealthResult struct {
	Handle Handle
	Status domain.ConnectionStatus
}

// TestAll runs TestConnection on every registered adapter concurrently and
// returns the results in registration order. Unconfigured adapters are not
// probed and report NotConfigured; probe errors become Error statuses.
func (r *Registry) TestAll(ctx context.Context) []HealthResult {
	results := make([]HealthResult, len(r.order))

	var wg sync.WaitGroup
	for i, id := range r.order {
		p := r.byID[id]
		results[i].Handle = HandleOf(p)
		if !p.IsConfigured() {
			results[i].Status = domain.NotConfigured()
			continue
		}

		wg.Add(1)
		go func(i int, p Platform) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					results[i].Status = domain.Failure(fmt.Sprintf("panic: %v", rec))
				}
			}()

			status, err := p.TestConnection(ctx)
			if err != nil {
				status = domain.Failure(err.Error())
			}
			results[i].Status = status
		}(i, p)
	}
	wg.Wait()

	return results
}
