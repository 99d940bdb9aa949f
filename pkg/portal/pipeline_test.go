package portal

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"reflect"
	"testing"

	"github.com/morezero/ckan-portal/pkg/action"
)

const pipelineTestPrefix = "portal:pipeline_test"

type trace struct {
	events []string
}

// tracing returns an interceptor that records "<name>:before" and
// "<name>:after" and, in the after phase, optionally substitutes replacement.
func (tr *trace) tracing(name string, replacement Response, seen *[]string) Interceptor {
	return func(_ context.Context, _ *url.URL, _ *RequestParams, resp Response) (Response, error) {
		if resp == nil {
			tr.events = append(tr.events, name+":before")
			return nil, nil
		}
		tr.events = append(tr.events, name+":after")
		if seen != nil {
			env, _, err := Inspect(resp)
			if err == nil {
				var r string
				_ = json.Unmarshal(env.Result, &r)
				*seen = append(*seen, r)
			}
		}
		return replacement, nil
	}
}

func TestPipeline_OrderAndReplacement(t *testing.T) {
	p, _ := newTestPortal(t, "https://x.org", `{"success":true,"result":"original"}`)

	tr := &trace{}
	var seenByA []string
	replacement := JSONResponse(`{"success":true,"result":"replaced"}`)

	p.AddInterceptor(tr.tracing("A", nil, &seenByA))
	p.AddInterceptor(tr.tracing("B", replacement, nil))

	got, err := p.Invoke(context.Background(), action.New("status_show"), nil)
	if err != nil {
		t.Fatalf("%s - Invoke: %v", pipelineTestPrefix, err)
	}

	want := []string{"A:before", "B:before", "B:after", "A:after"}
	if !reflect.DeepEqual(tr.events, want) {
		t.Errorf("%s - order = %v, want %v", pipelineTestPrefix, tr.events, want)
	}
	if !reflect.DeepEqual(seenByA, []string{"replaced"}) {
		t.Errorf("%s - A saw %v, want the replacement", pipelineTestPrefix, seenByA)
	}
	if string(got) != `"replaced"` {
		t.Errorf("%s - final result = %s", pipelineTestPrefix, got)
	}
}

func TestPipeline_BeforeMutatesRequest(t *testing.T) {
	p, rec := newTestPortal(t, "https://x.org/data", `{"success":true,"result":null}`)

	p.AddInterceptor(Before(func(_ context.Context, u *url.URL, params *RequestParams) error {
		params.Headers["X-Trace"] = "1"
		return nil
	}))
	p.AddInterceptor(Before(func(_ context.Context, u *url.URL, params *RequestParams) error {
		u.Path = "/mirror/" + u.Path[len("/data/"):]
		return nil
	}))

	if _, err := p.Invoke(context.Background(), action.New("status_show"), nil); err != nil {
		t.Fatalf("%s - Invoke: %v", pipelineTestPrefix, err)
	}

	call := rec.last(t)
	if call.Params.Headers["X-Trace"] != "1" {
		t.Errorf("%s - header not applied: %v", pipelineTestPrefix, call.Params.Headers)
	}
	if call.URL != "https://x.org/mirror/api/3/action/status_show" {
		t.Errorf("%s - url = %q", pipelineTestPrefix, call.URL)
	}
}

func TestPipeline_BeforeErrorAbortsRequest(t *testing.T) {
	p, rec := newTestPortal(t, "https://x.org", `{"success":true,"result":null}`)
	sentinel := errors.New("token refresh failed")

	var ran []string
	p.AddInterceptor(Before(func(context.Context, *url.URL, *RequestParams) error {
		ran = append(ran, "A")
		return sentinel
	}))
	p.AddInterceptor(Before(func(context.Context, *url.URL, *RequestParams) error {
		ran = append(ran, "B")
		return nil
	}))

	_, err := p.Invoke(context.Background(), action.New("status_show"), nil)
	if !IsInterceptor(err) || !errors.Is(err, sentinel) {
		t.Fatalf("%s - expected interceptor error wrapping sentinel, got %v", pipelineTestPrefix, err)
	}
	if !reflect.DeepEqual(ran, []string{"A"}) {
		t.Errorf("%s - ran = %v", pipelineTestPrefix, ran)
	}
	if len(rec.calls) != 0 {
		t.Errorf("%s - request must not be sent", pipelineTestPrefix)
	}
}

func TestPipeline_AfterErrorSkipsEnvelope(t *testing.T) {
	// The transport body is not a valid envelope; a transport error would
	// surface if parsing happened after the failing hook.
	p, _ := newTestPortal(t, "https://x.org", `not json`)
	sentinel := errors.New("rejected")

	var ran []string
	p.AddInterceptor(After(func(context.Context, *url.URL, *RequestParams, Response) (Response, error) {
		ran = append(ran, "A")
		return nil, nil
	}))
	p.AddInterceptor(After(func(context.Context, *url.URL, *RequestParams, Response) (Response, error) {
		ran = append(ran, "B")
		return nil, sentinel
	}))

	_, err := p.Invoke(context.Background(), action.New("status_show"), nil)
	if !IsInterceptor(err) || !errors.Is(err, sentinel) {
		t.Fatalf("%s - expected interceptor error, got %v", pipelineTestPrefix, err)
	}
	if !reflect.DeepEqual(ran, []string{"B"}) {
		t.Errorf("%s - ran = %v", pipelineTestPrefix, ran)
	}
}

func TestPipeline_AfterCanRecoverProtocolError(t *testing.T) {
	p, _ := newTestPortal(t, "https://x.org", `{"success":false,"error":"boom"}`)

	p.AddInterceptor(After(func(_ context.Context, _ *url.URL, _ *RequestParams, resp Response) (Response, error) {
		env, replay, err := Inspect(resp)
		if err != nil {
			return nil, err
		}
		if env.Success {
			return replay, nil
		}
		return NewJSONResponse(map[string]any{"success": true, "result": "fallback"})
	}))

	got, err := p.Invoke(context.Background(), action.New("status_show"), nil)
	if err != nil {
		t.Fatalf("%s - Invoke: %v", pipelineTestPrefix, err)
	}
	if string(got) != `"fallback"` {
		t.Errorf("%s - got %s", pipelineTestPrefix, got)
	}
}

func TestBeforeAfter_PhaseFiltering(t *testing.T) {
	var beforeCalls, afterCalls int
	b := Before(func(context.Context, *url.URL, *RequestParams) error {
		beforeCalls++
		return nil
	})
	a := After(func(context.Context, *url.URL, *RequestParams, Response) (Response, error) {
		afterCalls++
		return nil, nil
	})

	u := &url.URL{}
	params := &RequestParams{Headers: map[string]string{}}
	resp := JSONResponse(`{}`)

	for _, ic := range []Interceptor{a, b} {
		if _, err := ic(context.Background(), u, params, nil); err != nil {
			t.Fatal(err)
		}
		if _, err := ic(context.Background(), u, params, resp); err != nil {
			t.Fatal(err)
		}
	}
	if beforeCalls != 1 || afterCalls != 1 {
		t.Errorf("%s - before=%d after=%d", pipelineTestPrefix, beforeCalls, afterCalls)
	}
}

func TestInspect_Replay(t *testing.T) {
	env, replay, err := Inspect(JSONResponse(`{"success":true,"result":[1,2]}`))
	if err != nil {
		t.Fatalf("%s - Inspect: %v", pipelineTestPrefix, err)
	}
	if !env.Success || string(env.Result) != "[1,2]" {
		t.Errorf("%s - env = %+v", pipelineTestPrefix, env)
	}

	var again Envelope
	if err := replay.JSON(&again); err != nil || !again.Success {
		t.Errorf("%s - replay decode: %+v %v", pipelineTestPrefix, again, err)
	}

	if _, _, err := Inspect(JSONResponse(`nope`)); err == nil {
		t.Errorf("%s - expected error for invalid JSON", pipelineTestPrefix)
	}
}
