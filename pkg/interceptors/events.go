package interceptors

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/morezero/ckan-portal/pkg/events"
	"github.com/morezero/ckan-portal/pkg/portal"
)

const eventsLogPrefix = "interceptors:events"

// Events publishes an InvocationEvent for every response received. Publish
// failures are logged and never fail the invocation.
//
// Any events.EventPublisher works, including the COMMS publisher and the
// audit repository in pkg/db.
func Events(pub events.EventPublisher) portal.Interceptor {
	timer := newInflight()

	return phaseFunc(
		func(_ context.Context, _ *url.URL, params *portal.RequestParams) error {
			timer.start(params)
			return nil
		},
		func(ctx context.Context, u *url.URL, params *portal.RequestParams, resp portal.Response) (portal.Response, error) {
			elapsed := timer.finish(params)
			name, version := actionName(u)

			event := &events.InvocationEvent{
				Action:     name,
				Version:    version,
				URL:        u.String(),
				StatusCode: statusCode(resp),
				DurationMs: elapsed.Milliseconds(),
				RequestID:  requestID(params),
				Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
			}

			env, replay, err := inspect(resp)
			switch {
			case err != nil:
				event.ErrorType = "Invalid Response"
			case env.Success:
				event.Success = true
			default:
				event.ErrorType = env.ErrorType()
				if event.ErrorType == "" {
					event.ErrorType = "Error"
				}
			}

			if err := pub.PublishInvoked(ctx, event); err != nil {
				slog.Warn(fmt.Sprintf("%s - failed to publish event for %s: %v", eventsLogPrefix, name, err))
			}
			return replay, nil
		},
	)
}

// Audit records every invocation through rec, typically a *db.Repository. It
// behaves like Events; recording failures are logged and the call proceeds.
func Audit(rec events.EventPublisher) portal.Interceptor {
	return Events(rec)
}
