package clientx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/wrapperspb"

	coreerrors "go.eggybyte.com/clientpool/core/errors"
	"go.eggybyte.com/clientpool/core/identity"
	"go.eggybyte.com/clientpool/obsx"
	"go.eggybyte.com/clientpool/testingx"
)

func newTestProvider(t *testing.T) *obsx.Provider {
	t.Helper()
	provider, err := obsx.NewProvider(context.Background(), obsx.Options{ServiceName: "clientx-test"})
	testingx.AssertNoError(t, err)
	t.Cleanup(func() { provider.Shutdown(context.Background()) })
	return provider
}

func scrape(t *testing.T, provider *obsx.Provider) string {
	t.Helper()
	w := httptest.NewRecorder()
	provider.PrometheusHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return w.Body.String()
}

// sample returns the value of the first sample named name whose labels
// contain every fragment, or "" when none matches.
func sample(body, name string, fragments ...string) string {
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, name+"{") && !strings.HasPrefix(line, name+" ") {
			continue
		}
		matched := true
		for _, f := range fragments {
			if !strings.Contains(line, f) {
				matched = false
				break
			}
		}
		if matched {
			return line[strings.LastIndex(line, " ")+1:]
		}
	}
	return ""
}

func TestNewMetrics_NilProvider(t *testing.T) {
	m, err := NewMetrics(nil)
	testingx.AssertNoError(t, err)
	if m != nil {
		t.Error("nil provider should disable metrics")
	}

	r := New(WithMetrics(m), WithFactory(func(*url.URL) (*http.Client, error) { return &http.Client{}, nil }))
	if _, err := r.GetClient(nil, testingx.MustParseURL(t, "https://a.example.com")); err != nil {
		t.Fatalf("disabled metrics must not affect lookups: %v", err)
	}
}

func TestRegistryMetrics(t *testing.T) {
	provider := newTestProvider(t)
	m, err := NewMetrics(provider)
	testingx.AssertNoError(t, err)

	fail := true
	r := New(WithMetrics(m), WithFactory(func(*url.URL) (*http.Client, error) {
		if fail {
			return nil, errors.New("unreachable")
		}
		return &http.Client{}, nil
	}))

	target := testingx.MustParseURL(t, "https://metrics.example.com")
	_, err = r.GetClient(nil, target)
	testingx.AssertError(t, err, coreerrors.CodeUnavailable)

	fail = false
	r.GetClient(nil, target)
	r.GetClient(nil, target)
	r.GetClient(nil, testingx.MustParseURL(t, "https://other.example.com"))

	body := scrape(t, provider)
	checks := []struct {
		name      string
		fragments []string
		want      string
	}{
		{"clientx_registry_lookups_total", []string{`result="miss"`}, "3"},
		{"clientx_registry_lookups_total", []string{`result="hit"`}, "1"},
		{"clientx_registry_constructions_total", []string{`outcome="failed"`}, "1"},
		{"clientx_registry_constructions_total", []string{`outcome="stored"`}, "2"},
		{"clientx_registry_clients", nil, "2"},
	}
	for _, c := range checks {
		if got := sample(body, c.name, c.fragments...); got != c.want {
			t.Errorf("%s%v = %q, want %q\n%s", c.name, c.fragments, got, c.want, body)
		}
	}
}

const echoProcedure = "/test.v1.EchoService/Echo"

type echoClient struct {
	echo *connect.Client[wrapperspb.StringValue, wrapperspb.StringValue]
}

func newEchoClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *echoClient {
	return &echoClient{
		echo: connect.NewClient[wrapperspb.StringValue, wrapperspb.StringValue](httpClient, baseURL+echoProcedure, opts...),
	}
}

func newEchoServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.Handle(echoProcedure, connect.NewUnaryHandler(echoProcedure,
		func(ctx context.Context, req *connect.Request[wrapperspb.StringValue]) (*connect.Response[wrapperspb.StringValue], error) {
			if req.Msg.GetValue() == "fail" {
				return nil, connect.NewError(connect.CodeUnavailable, errors.New("backend down"))
			}
			return connect.NewResponse(wrapperspb.String(req.Msg.GetValue())), nil
		},
	))
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestNewConnectClient(t *testing.T) {
	server := newEchoServer(t)
	provider := newTestProvider(t)
	m, err := NewMetrics(provider)
	testingx.AssertNoError(t, err)

	r := New(WithMetrics(m))
	client, err := NewConnectClient(r, nil, server.URL, newEchoClient)
	testingx.AssertNoError(t, err)

	resp, err := client.echo.CallUnary(context.Background(), connect.NewRequest(wrapperspb.String("hello")))
	testingx.AssertNoError(t, err)
	if resp.Msg.GetValue() != "hello" {
		t.Errorf("echo = %q, want hello", resp.Msg.GetValue())
	}

	_, err = client.echo.CallUnary(context.Background(), connect.NewRequest(wrapperspb.String("fail")))
	if connect.CodeOf(err) != connect.CodeUnavailable {
		t.Errorf("CodeOf() = %v, want unavailable", connect.CodeOf(err))
	}

	if _, ok := r.Lookup(identity.Resolve(nil, testingx.MustParseURL(t, server.URL))); !ok {
		t.Error("connect client should be built on the pooled handle")
	}

	body := scrape(t, provider)
	okCount := sample(body, "rpc_client_requests_total", `rpc_code="ok"`, `rpc_method="Echo"`, `rpc_service="test.v1.EchoService"`)
	failCount := sample(body, "rpc_client_requests_total", `rpc_code="unavailable"`)
	if okCount != "1" || failCount != "1" {
		t.Errorf("rpc_client_requests_total ok=%q unavailable=%q, want 1 and 1\n%s", okCount, failCount, body)
	}
	if got := sample(body, "rpc_client_request_duration_seconds_count", `rpc_code="ok"`); got != "1" {
		t.Errorf("rpc_client_request_duration_seconds_count = %q, want 1", got)
	}
}

func TestNewConnectClient_InvalidBaseURL(t *testing.T) {
	r := New()
	for _, raw := range []string{"::not a url", "/relative/path"} {
		_, err := NewConnectClient(r, nil, raw, newEchoClient)
		testingx.AssertError(t, err, coreerrors.CodeInvalidArgument)
	}
	if r.Len() != 0 {
		t.Error("invalid base URLs must not construct clients")
	}
}

func TestClientMetricsInterceptor_NilMetrics(t *testing.T) {
	called := false
	next := connect.UnaryFunc(func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		called = true
		return nil, nil
	})

	ClientMetricsInterceptor(nil)(next)(context.Background(), connect.NewRequest(wrapperspb.String("x")))
	if !called {
		t.Error("nil metrics interceptor should call through")
	}
}

func TestParseClientProcedure(t *testing.T) {
	tests := []struct {
		procedure, service, method string
	}{
		{"/test.v1.EchoService/Echo", "test.v1.EchoService", "Echo"},
		{"Echo", "", "Echo"},
		{"/a/b/c", "a/b", "c"},
	}
	for _, tt := range tests {
		service, method := parseClientProcedure(tt.procedure)
		if service != tt.service || method != tt.method {
			t.Errorf("parseClientProcedure(%q) = %q, %q", tt.procedure, service, method)
		}
	}
}
