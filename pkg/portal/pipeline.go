package portal

import (
	"context"
	"net/url"
)

// Interceptor wraps every request/response pair. It is called once before the
// request is sent (resp is nil, the returned Response is ignored) and once
// after a response is received. A non-nil Response returned in the after
// phase replaces the current one. Any error aborts the invocation.
type Interceptor func(ctx context.Context, u *url.URL, params *RequestParams, resp Response) (Response, error)

// Before builds an interceptor that only acts before the request is sent.
func Before(fn func(ctx context.Context, u *url.URL, params *RequestParams) error) Interceptor {
	return func(ctx context.Context, u *url.URL, params *RequestParams, resp Response) (Response, error) {
		if resp != nil {
			return nil, nil
		}
		return nil, fn(ctx, u, params)
	}
}

// After builds an interceptor that only acts on received responses.
func After(fn func(ctx context.Context, u *url.URL, params *RequestParams, resp Response) (Response, error)) Interceptor {
	return func(ctx context.Context, u *url.URL, params *RequestParams, resp Response) (Response, error) {
		if resp == nil {
			return nil, nil
		}
		return fn(ctx, u, params, resp)
	}
}

// runBefore calls interceptors in registration order.
func runBefore(ctx context.Context, chain []Interceptor, u *url.URL, params *RequestParams) error {
	for _, ic := range chain {
		if _, err := ic(ctx, u, params, nil); err != nil {
			return err
		}
	}
	return nil
}

// runAfter calls interceptors in reverse registration order, threading
// replacement responses through.
func runAfter(ctx context.Context, chain []Interceptor, u *url.URL, params *RequestParams, resp Response) (Response, error) {
	for i := len(chain) - 1; i >= 0; i-- {
		r, err := chain[i](ctx, u, params, resp)
		if err != nil {
			return nil, err
		}
		if r != nil {
			resp = r
		}
	}
	return resp, nil
}
