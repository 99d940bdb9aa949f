package interceptors

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/morezero/ckan-portal/pkg/portal"
)

const loggingLogPrefix = "interceptors:logging"

// Logging logs each request at debug level and each outcome at info (success)
// or warn (server error) level. A nil logger uses slog.Default().
func Logging(logger *slog.Logger) portal.Interceptor {
	if logger == nil {
		logger = slog.Default()
	}
	timer := newInflight()

	return phaseFunc(
		func(_ context.Context, u *url.URL, params *portal.RequestParams) error {
			timer.start(params)
			name, version := actionName(u)
			logger.Debug(fmt.Sprintf("%s - -> %s@%d %s", loggingLogPrefix, name, version, u.String()))
			return nil
		},
		func(_ context.Context, u *url.URL, params *portal.RequestParams, resp portal.Response) (portal.Response, error) {
			elapsed := timer.finish(params)
			name, _ := actionName(u)

			env, replay, err := inspect(resp)
			if err != nil {
				logger.Warn(fmt.Sprintf("%s - <- %s undecodable response after %s: %v", loggingLogPrefix, name, elapsed, err))
				return replay, nil
			}
			if env.Success {
				logger.Info(fmt.Sprintf("%s - <- %s ok in %s", loggingLogPrefix, name, elapsed))
			} else {
				logger.Warn(fmt.Sprintf("%s - <- %s failed in %s: %s", loggingLogPrefix, name, elapsed, string(env.Error)))
			}
			return replay, nil
		},
	)
}
