package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Biji-Biji-Initiative/apiflow/packages/flow"
	"github.com/Biji-Biji-Initiative/apiflow/packages/registry"
	"github.com/Biji-Biji-Initiative/apiflow/packages/transport"
	"github.com/Biji-Biji-Initiative/apiflow/packages/vars"
)

// fakeTransport answers from a handler func and records every request.
type fakeTransport struct {
	calls   []*transport.Request
	handler func(req *transport.Request) (*transport.Response, error)
}

func (f *fakeTransport) Execute(_ context.Context, req *transport.Request) (*transport.Response, error) {
	f.calls = append(f.calls, req)
	return f.handler(req)
}

func jsonResponse(status int, body string) (*transport.Response, error) {
	return &transport.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       []byte(body),
	}, nil
}

func testRegistry() *registry.Registry {
	reg, err := registry.Parse([]byte(`
baseUrl: https://api.test
endpoints:
  login:
    method: POST
    path: /auth/login
  getUser:
    method: GET
    path: /users/{id}
  listItems:
    method: GET
    path: /items
`))
	if err != nil {
		panic(err)
	}
	return reg
}

func newTestRunner(tr transport.Transport, opts ...Option) *Runner {
	store := vars.NewStore()
	opts = append([]Option{WithBaseURL("https://api.test")}, opts...)
	return New(testRegistry(), tr, store, opts...)
}

func TestRunFlow_LoginExample(t *testing.T) {
	tr := &fakeTransport{handler: func(req *transport.Request) (*transport.Response, error) {
		return jsonResponse(200, `{"data": {"token": "abc123"}}`)
	}}
	r := newTestRunner(tr)

	fl := &flow.Flow{
		Steps: []flow.Step{{
			Endpoint: "login",
			Params:   map[string]any{"username": "bob", "password": "pw"},
			Extract:  []vars.Rule{{Name: "token", Path: "$.data.token"}},
		}},
	}

	result := r.RunFlow(context.Background(), fl)

	require.Len(t, result.Results, 1)
	assert.True(t, result.Results[0].Success)
	assert.False(t, result.Halted)
	assert.Equal(t, 1, result.Passed)

	token, ok := r.Store().Get("token")
	require.True(t, ok)
	assert.Equal(t, "abc123", token)

	require.Len(t, result.Results[0].Extracted, 1)
	assert.Equal(t, vars.Extraction{Name: "token", Value: "abc123"}, result.Results[0].Extracted[0])
}

func TestRunFlow_SequentialDependency(t *testing.T) {
	// Step 1 extracts userId; step 2 must see it in its path template.
	tr := &fakeTransport{handler: func(req *transport.Request) (*transport.Response, error) {
		if req.Method == "POST" {
			return jsonResponse(200, `{"user": {"id": 42}}`)
		}
		return jsonResponse(200, `{"name": "bob"}`)
	}}
	r := newTestRunner(tr)

	fl := &flow.Flow{
		Steps: []flow.Step{
			{
				Endpoint: "login",
				Extract:  []vars.Rule{{Name: "userId", Path: "$.user.id"}},
			},
			{
				Endpoint: "getUser",
				Params:   map[string]any{"id": "{{userId}}"},
			},
		},
	}

	result := r.RunFlow(context.Background(), fl)

	require.Equal(t, 2, result.Passed)
	require.Len(t, tr.calls, 2)
	assert.Equal(t, "https://api.test/users/42", tr.calls[1].URL)
}

func TestRunFlow_StopOnError(t *testing.T) {
	makeFlow := func(stop bool) *flow.Flow {
		return &flow.Flow{
			StopOnError: stop,
			Steps: []flow.Step{
				{Endpoint: "listItems"},
				{Endpoint: "listItems", Params: map[string]any{"fail": "yes"}},
				{Endpoint: "listItems"},
			},
		}
	}
	makeTransport := func() *fakeTransport {
		return &fakeTransport{handler: func(req *transport.Request) (*transport.Response, error) {
			if req.Query["fail"] == "yes" {
				return jsonResponse(500, `{"error": "boom"}`)
			}
			return jsonResponse(200, `{}`)
		}}
	}

	t.Run("halts when stopOnError", func(t *testing.T) {
		r := newTestRunner(makeTransport())
		result := r.RunFlow(context.Background(), makeFlow(true))

		assert.Len(t, result.Results, 2, "step 2 must not have been attempted")
		assert.True(t, result.Halted)
		assert.Equal(t, 1, result.HaltedAt)
		assert.Equal(t, HaltStopOnError, result.HaltReason)
		assert.Equal(t, 1, result.Passed)
		assert.Equal(t, 1, result.Failed)
	})

	t.Run("continues otherwise", func(t *testing.T) {
		r := newTestRunner(makeTransport())
		result := r.RunFlow(context.Background(), makeFlow(false))

		assert.Len(t, result.Results, 3)
		assert.False(t, result.Halted)
		assert.Equal(t, 2, result.Passed)
		assert.Equal(t, 1, result.Failed)
	})
}

func TestRunFlow_Cancellation(t *testing.T) {
	t.Run("before any step", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		r := newTestRunner(&fakeTransport{handler: func(*transport.Request) (*transport.Response, error) {
			return jsonResponse(200, `{}`)
		}})
		result := r.RunFlow(ctx, &flow.Flow{Steps: []flow.Step{{Endpoint: "listItems"}}})

		assert.Empty(t, result.Results)
		assert.True(t, result.Halted)
		assert.Equal(t, 0, result.HaltedAt)
		assert.Equal(t, HaltCancelled, result.HaltReason)
	})

	t.Run("between steps", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		tr := &fakeTransport{handler: func(*transport.Request) (*transport.Response, error) {
			cancel() // user clicks stop while step 0 is in flight
			return jsonResponse(200, `{}`)
		}}
		r := newTestRunner(tr)
		result := r.RunFlow(ctx, &flow.Flow{Steps: []flow.Step{
			{Endpoint: "listItems"},
			{Endpoint: "listItems"},
		}})

		assert.Len(t, result.Results, 1, "the in-flight step finishes, the next never starts")
		assert.True(t, result.Halted)
		assert.Equal(t, HaltCancelled, result.HaltReason)
	})
}

func TestRunStep_UnknownEndpoint(t *testing.T) {
	r := newTestRunner(&fakeTransport{handler: func(*transport.Request) (*transport.Response, error) {
		t.Fatal("transport must not be called")
		return nil, nil
	}})

	res := r.RunStep(context.Background(), flow.Step{Endpoint: "ghost"}, 0)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "ghost")

	t.Run("fails the step, not the flow", func(t *testing.T) {
		tr := &fakeTransport{handler: func(*transport.Request) (*transport.Response, error) {
			return jsonResponse(200, `{}`)
		}}
		r := newTestRunner(tr)
		result := r.RunFlow(context.Background(), &flow.Flow{Steps: []flow.Step{
			{Endpoint: "ghost"},
			{Endpoint: "listItems"},
		}})
		assert.Len(t, result.Results, 2)
		assert.Equal(t, 1, result.Failed)
		assert.Equal(t, 1, result.Passed)
	})
}

func TestRunStep_TransportError(t *testing.T) {
	r := newTestRunner(&fakeTransport{handler: func(*transport.Request) (*transport.Response, error) {
		return nil, fmt.Errorf("dial tcp: connection refused")
	}})

	res := r.RunStep(context.Background(), flow.Step{Endpoint: "listItems"}, 0)
	assert.False(t, res.Success)
	assert.Equal(t, 0, res.Status)
	assert.Contains(t, res.Error, "connection refused")
}

func TestRunStep_QueryVersusBody(t *testing.T) {
	tr := &fakeTransport{handler: func(*transport.Request) (*transport.Response, error) {
		return jsonResponse(200, `{}`)
	}}
	r := newTestRunner(tr)

	t.Run("GET params go to the query string", func(t *testing.T) {
		r.RunStep(context.Background(), flow.Step{
			Endpoint: "listItems",
			Params:   map[string]any{"page": 2, "q": "widgets"},
		}, 0)

		req := tr.calls[len(tr.calls)-1]
		assert.Equal(t, "2", req.Query["page"])
		assert.Equal(t, "widgets", req.Query["q"])
		assert.Empty(t, req.Body)
	})

	t.Run("POST params go to a JSON body", func(t *testing.T) {
		r.RunStep(context.Background(), flow.Step{
			Endpoint: "login",
			Params:   map[string]any{"username": "bob"},
		}, 0)

		req := tr.calls[len(tr.calls)-1]
		assert.Empty(t, req.Query)
		assert.Equal(t, "application/json", req.Headers["Content-Type"])

		var body map[string]any
		require.NoError(t, json.Unmarshal(req.Body, &body))
		assert.Equal(t, "bob", body["username"])
	})

	t.Run("path params are removed from the outgoing set", func(t *testing.T) {
		r.RunStep(context.Background(), flow.Step{
			Endpoint: "getUser",
			Params:   map[string]any{"id": 7, "expand": "profile"},
		}, 0)

		req := tr.calls[len(tr.calls)-1]
		assert.Equal(t, "https://api.test/users/7", req.URL)
		assert.NotContains(t, req.Query, "id")
		assert.Equal(t, "profile", req.Query["expand"])
	})
}

func TestRunStep_ExtractionMisses(t *testing.T) {
	t.Run("miss without default is reported, not written", func(t *testing.T) {
		tr := &fakeTransport{handler: func(*transport.Request) (*transport.Response, error) {
			return jsonResponse(200, `{"a": 1}`)
		}}
		r := newTestRunner(tr)

		res := r.RunStep(context.Background(), flow.Step{
			Endpoint: "listItems",
			Extract: []vars.Rule{
				{Name: "a", Path: "$.a"},
				{Name: "b", Path: "$.missing"},
				{Name: "c", Path: "$.also.missing", Default: "fallback"},
			},
		}, 0)

		assert.True(t, res.Success)
		assert.Equal(t, []string{"b"}, res.Misses)
		require.Len(t, res.Extracted, 2)
		assert.False(t, r.Store().Has("b"))

		v, _ := r.Store().Get("c")
		assert.Equal(t, "fallback", v)
	})

	t.Run("non-JSON response misses every rule", func(t *testing.T) {
		tr := &fakeTransport{handler: func(*transport.Request) (*transport.Response, error) {
			return &transport.Response{
				StatusCode: 200,
				Headers:    map[string]string{"Content-Type": "text/html"},
				Body:       []byte("<html></html>"),
			}, nil
		}}
		r := newTestRunner(tr)

		res := r.RunStep(context.Background(), flow.Step{
			Endpoint: "listItems",
			Extract:  []vars.Rule{{Name: "x", Path: "$.x"}},
		}, 0)

		assert.True(t, res.Success)
		assert.Equal(t, []string{"x"}, res.Misses)
		assert.Empty(t, res.Extracted)
	})
}

func TestRunStep_Condition(t *testing.T) {
	tr := &fakeTransport{handler: func(*transport.Request) (*transport.Response, error) {
		return jsonResponse(200, `{}`)
	}}
	r := newTestRunner(tr)
	r.Store().Set("env", "production")

	t.Run("met condition runs", func(t *testing.T) {
		res := r.RunStep(context.Background(), flow.Step{
			Endpoint: "listItems",
			If:       `env == "production"`,
		}, 0)
		assert.True(t, res.Success)
	})

	t.Run("unmet condition skips", func(t *testing.T) {
		res := r.RunStep(context.Background(), flow.Step{
			Endpoint: "listItems",
			If:       `env == "staging"`,
		}, 0)
		assert.True(t, res.Skipped)
		assert.False(t, res.Success)
		assert.Contains(t, res.SkipReason, "not met")
	})

	t.Run("invalid condition fails the step", func(t *testing.T) {
		res := r.RunStep(context.Background(), flow.Step{
			Endpoint: "listItems",
			If:       `a == b == c`,
		}, 0)
		assert.False(t, res.Success)
		assert.False(t, res.Skipped)
		assert.Contains(t, res.Error, "condition")
	})
}

func TestRunStep_ParamValidation(t *testing.T) {
	reg, err := registry.Parse([]byte(`
endpoints:
  create:
    method: POST
    path: /things
    paramSchema:
      type: object
      required: [name]
      properties:
        name: {type: string}
`))
	require.NoError(t, err)

	tr := &fakeTransport{handler: func(*transport.Request) (*transport.Response, error) {
		return jsonResponse(200, `{}`)
	}}
	r := New(reg, tr, vars.NewStore(), WithBaseURL("https://api.test"), WithParamValidation(true))

	res := r.RunStep(context.Background(), flow.Step{Endpoint: "create", Params: map[string]any{}}, 0)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "invalid params")
	assert.Empty(t, tr.calls, "invalid params must not reach the transport")

	res = r.RunStep(context.Background(), flow.Step{
		Endpoint: "create",
		Params:   map[string]any{"name": "x"},
	}, 0)
	assert.True(t, res.Success)
}

func TestFlowResult_RerunReplaces(t *testing.T) {
	fr := &FlowResult{}
	fr.Record(&StepResult{Index: 0, Success: false})
	fr.Record(&StepResult{Index: 0, Success: true})

	require.Len(t, fr.Results, 1)
	assert.True(t, fr.Results[0].Success)
	assert.Equal(t, 1, fr.Passed)
	assert.Equal(t, 0, fr.Failed)
}

func TestRunFlow_SeedsFlowVariables(t *testing.T) {
	tr := &fakeTransport{handler: func(req *transport.Request) (*transport.Response, error) {
		return jsonResponse(200, `{}`)
	}}
	r := newTestRunner(tr)

	fl := &flow.Flow{
		Variables: map[string]any{"tenant": "acme"},
		Steps: []flow.Step{{
			Endpoint: "listItems",
			Params:   map[string]any{"tenant": "{{tenant}}"},
		}},
	}
	result := r.RunFlow(context.Background(), fl)

	require.Equal(t, 1, result.Passed)
	assert.Equal(t, "acme", tr.calls[0].Query["tenant"])
}

func TestRunFlow_NilFlow(t *testing.T) {
	r := newTestRunner(&fakeTransport{handler: func(*transport.Request) (*transport.Response, error) {
		return jsonResponse(200, `{}`)
	}})

	result := r.RunFlow(context.Background(), nil)
	assert.True(t, result.Halted)
	assert.Contains(t, result.HaltReason, "internal error")
}

func TestRunFlow_EndToEndHTTP(t *testing.T) {
	var authSeen string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/auth/login":
			_, _ = w.Write([]byte(`{"data": {"token": "abc123"}}`))
		case "/users/1":
			authSeen = r.Header.Get("Authorization")
			_, _ = w.Write([]byte(`{"name": "bob"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	store := vars.NewStore()
	r := New(testRegistry(), transport.NewClient(), store, WithBaseURL(server.URL))

	fl := &flow.Flow{
		StopOnError: true,
		Steps: []flow.Step{
			{
				Endpoint: "login",
				Params:   map[string]any{"username": "bob", "password": "pw"},
				Extract:  []vars.Rule{{Name: "token", Path: "$.data.token"}},
			},
			{
				Endpoint: "getUser",
				Params:   map[string]any{"id": 1},
				Headers:  map[string]string{"Authorization": "Bearer {{token}}"},
			},
		},
	}

	result := r.RunFlow(context.Background(), fl)

	require.True(t, result.Ok(), "halt reason: %s", result.HaltReason)
	assert.Equal(t, 2, result.Passed)
	assert.Equal(t, "Bearer abc123", authSeen)
}
