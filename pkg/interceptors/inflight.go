// Package interceptors provides ready-made portal interceptors for logging,
// request IDs, rate limiting, metrics, invocation events and token refresh.
package interceptors

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/morezero/ckan-portal/pkg/action"
	"github.com/morezero/ckan-portal/pkg/portal"
)

// inflight correlates the before and after phases of one invocation. Each
// invocation has its own *RequestParams, so the pointer is the key. Entries of
// requests that never reached the after phase (transport failures) are
// evicted once they are older than ttl.
type inflight struct {
	mu      sync.Mutex
	started map[*portal.RequestParams]time.Time
	ops     uint64
	ttl     time.Duration
	now     func() time.Time
}

func newInflight() *inflight {
	return &inflight{
		started: make(map[*portal.RequestParams]time.Time),
		ttl:     10 * time.Minute,
		now:     time.Now,
	}
}

func (f *inflight) start(p *portal.RequestParams) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	f.started[p] = now

	f.ops++
	if f.ops%256 == 0 {
		cutoff := now.Add(-f.ttl)
		for k, t := range f.started {
			if t.Before(cutoff) {
				delete(f.started, k)
			}
		}
	}
}

// finish returns the elapsed time since start, or 0 when start was not seen.
func (f *inflight) finish(p *portal.RequestParams) time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.started[p]
	if !ok {
		return 0
	}
	delete(f.started, p)
	return f.now().Sub(t)
}

func (f *inflight) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.started)
}

// actionName recovers the action name from a resolved URL.
func actionName(u *url.URL) (string, int) {
	if a, ok := action.FromPath(u.Path); ok {
		return a.Name(), a.Version()
	}
	return u.Path, 0
}

// statusCode returns the HTTP status of resp when the transport exposes it.
func statusCode(resp portal.Response) int {
	if sc, ok := resp.(interface{ Status() int }); ok {
		return sc.Status()
	}
	return 0
}

// phaseFunc adapts separate before/after callbacks to one interceptor.
func phaseFunc(
	before func(ctx context.Context, u *url.URL, params *portal.RequestParams) error,
	after func(ctx context.Context, u *url.URL, params *portal.RequestParams, resp portal.Response) (portal.Response, error),
) portal.Interceptor {
	return func(ctx context.Context, u *url.URL, params *portal.RequestParams, resp portal.Response) (portal.Response, error) {
		if resp == nil {
			return nil, before(ctx, u, params)
		}
		return after(ctx, u, params, resp)
	}
}

// statusResponse is a replayed response that still reports the original status.
type statusResponse struct {
	portal.JSONResponse
	status int
}

func (r statusResponse) Status() int { return r.status }

// inspect decodes resp like portal.Inspect and keeps the HTTP status visible
// on the replay for interceptors that run later in the after phase.
func inspect(resp portal.Response) (*portal.Envelope, portal.Response, error) {
	env, replay, err := portal.Inspect(resp)
	if replay == nil {
		return env, nil, err
	}
	if status := statusCode(resp); status != 0 {
		if raw, ok := replay.(portal.JSONResponse); ok {
			return env, statusResponse{JSONResponse: raw, status: status}, err
		}
	}
	return env, replay, err
}
