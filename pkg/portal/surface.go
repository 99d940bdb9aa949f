package portal

import (
	"context"
	"encoding/json"

	"github.com/morezero/ckan-portal/pkg/action"
	"github.com/morezero/ckan-portal/pkg/payload"
)

// ActionFunc invokes one bound action. body may be nil.
type ActionFunc func(ctx context.Context, body *payload.Payload) (json.RawMessage, error)

// Surface resolves arbitrary action names to invocation functions. There is no
// registry: every key is accepted and dispatched to the server as is.
type Surface struct {
	portal *Portal
}

// Actions returns the dynamic action surface of the Portal.
func (p *Portal) Actions() Surface {
	return Surface{portal: p}
}

// Get returns a function bound to the named action with the default version.
func (s Surface) Get(name string) ActionFunc {
	a := action.New(name)
	return func(ctx context.Context, body *payload.Payload) (json.RawMessage, error) {
		return s.portal.Invoke(ctx, a, body)
	}
}

// Call resolves name and invokes it in one step.
func (s Surface) Call(ctx context.Context, name string, body *payload.Payload) (json.RawMessage, error) {
	return s.Get(name)(ctx, body)
}
