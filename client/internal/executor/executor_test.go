package executor

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Theruz/8aAscents/client/internal/endpoint"
	"github.com/Theruz/8aAscents/client/internal/environment"
	apierrors "github.com/Theruz/8aAscents/client/internal/errors"
	"github.com/Theruz/8aAscents/client/internal/transport"
)

type widget struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func (w *widget) Mock() any { return &widget{ID: 1, Name: "mock"} }

func envFor(t *testing.T, srv *httptest.Server) environment.Environment {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return environment.New(environment.ModeDevelopment, environment.HostTable{
		environment.ModeDevelopment: {Default: endpoint.Target{Scheme: "http", Host: host, Port: port}},
	})
}

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func widgetDescriptor() endpoint.Descriptor {
	return endpoint.New(endpoint.CategoryProfiles, http.MethodGet, "/v1/widgets/{id}", endpoint.WithPathParams("42"))
}

func TestExecute_SingleObject(t *testing.T) {
	var gotPath, gotID, gotExtra string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotID = r.Header.Get(RequestIDHeader)
		gotExtra = r.Header.Get("X-Client")
		_, _ = w.Write([]byte(`{"id":42,"name":"rope"}`))
	}))
	defer srv.Close()

	ex := New(envFor(t, srv), transport.NewResty(), WithRequestIDs(func() string { return "req-1" }))
	res := ex.Execute(context.Background(), widgetDescriptor(), Single[widget](), map[string]string{"X-Client": "test"})
	require.NoError(t, res.Err)

	w, err := ObjectAs[widget](res)
	require.NoError(t, err)
	assert.Equal(t, &widget{ID: 42, Name: "rope"}, w)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "/v1/widgets/42", gotPath)
	assert.Equal(t, "req-1", gotID)
	assert.Equal(t, "test", gotExtra)
}

func TestExecute_Shapes(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		shape   Shape
		wantErr error
		check   func(t *testing.T, r Result)
	}{
		{
			name:  "list",
			body:  `[{"id":1},{"id":2}]`,
			shape: List[widget](),
			check: func(t *testing.T, r Result) {
				ws, err := ListAs[widget](r)
				require.NoError(t, err)
				assert.Len(t, ws, 2)
			},
		},
		{
			name:  "raw",
			body:  `{"a":"b"}`,
			shape: Raw(),
			check: func(t *testing.T, r Result) {
				assert.Equal(t, map[string]any{"a": "b"}, r.Raw)
			},
		},
		{
			name:  "raw empty body",
			body:  ``,
			shape: Raw(),
			check: func(t *testing.T, r Result) {
				assert.Equal(t, map[string]any{}, r.Raw)
			},
		},
		{
			name:  "empty ignores body",
			body:  `not json`,
			shape: Empty(),
			check: func(t *testing.T, r Result) {
				assert.Nil(t, r.Object)
				assert.Nil(t, r.Raw)
			},
		},
		{name: "single with malformed body", body: `{"id":`, shape: Single[widget](), wantErr: apierrors.ErrDecoding},
		{name: "single with empty body", body: ``, shape: Single[widget](), wantErr: apierrors.ErrDecoding},
		{name: "list given an object", body: `{"id":1}`, shape: List[widget](), wantErr: apierrors.ErrDecoding},
		{name: "list given null", body: `null`, shape: List[widget](), wantErr: apierrors.ErrDecoding},
		{name: "raw given an array", body: `[1]`, shape: Raw(), wantErr: apierrors.ErrDecoding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, http.StatusOK, tt.body)
			res := New(envFor(t, srv), transport.NewResty()).Execute(context.Background(), widgetDescriptor(), tt.shape, nil)
			if tt.wantErr != nil {
				require.Error(t, res.Err)
				assert.ErrorIs(t, res.Err, tt.wantErr)
				return
			}
			require.NoError(t, res.Err)
			tt.check(t, res)
		})
	}
}

func TestExecute_ServerError(t *testing.T) {
	srv := serve(t, http.StatusBadRequest, `{"message":"Invalid","fieldErrors":[{"fieldName":"birthDate","message":"required"}]}`)
	res := New(envFor(t, srv), transport.NewResty()).Execute(context.Background(), widgetDescriptor(), Single[widget](), nil)

	var se *apierrors.ServerError
	require.ErrorAs(t, res.Err, &se)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Equal(t, "Invalid", se.Title)
	assert.Equal(t, "birthDate: required\n", se.Description)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Nil(t, res.Object)
}

func TestExecute_Unauthorized(t *testing.T) {
	srv := serve(t, http.StatusUnauthorized, ``)
	res := New(envFor(t, srv), transport.NewResty()).Execute(context.Background(), widgetDescriptor(), Empty(), nil)

	var se *apierrors.ServerError
	require.ErrorAs(t, res.Err, &se)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "401 Unauthorized", se.Description)
}

func TestExecute_TransportFailures(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()
		res := New(envFor(t, srv), transport.NewResty()).Execute(ctx, widgetDescriptor(), Empty(), nil)
		assert.ErrorIs(t, res.Err, apierrors.ErrCancelled)
		assert.Zero(t, res.StatusCode)
	})

	t.Run("timeout", func(t *testing.T) {
		tr := transport.NewResty(transport.WithTimeout(30 * time.Millisecond))
		res := New(envFor(t, srv), tr).Execute(context.Background(), widgetDescriptor(), Empty(), nil)
		assert.ErrorIs(t, res.Err, apierrors.ErrTransport)
	})

	t.Run("connection refused", func(t *testing.T) {
		dead := httptest.NewServer(http.NotFoundHandler())
		env := envFor(t, dead)
		dead.Close()
		res := New(env, transport.NewResty()).Execute(context.Background(), widgetDescriptor(), Empty(), nil)
		assert.ErrorIs(t, res.Err, apierrors.ErrConnection)
	})
}

type recordingTransport struct{ calls int }

func (r *recordingTransport) Send(context.Context, *endpoint.Request) (*transport.Response, error) {
	r.calls++
	return &transport.Response{StatusCode: http.StatusOK}, nil
}

func TestExecute_EncodingErrorSkipsNetwork(t *testing.T) {
	tr := &recordingTransport{}
	env := environment.New(environment.ModeDevelopment, nil)

	missing := endpoint.New(endpoint.CategoryProfiles, http.MethodGet, "/v1/profiles/{id}")
	res := New(env, tr).Execute(context.Background(), missing, Empty(), nil)
	assert.ErrorIs(t, res.Err, apierrors.ErrEncoding)

	noHost := endpoint.New(endpoint.CategoryProfiles, http.MethodGet, "/v1/profiles")
	res = New(environment.New(environment.ModeProduction, nil), tr).Execute(context.Background(), noHost, Empty(), nil)
	assert.ErrorIs(t, res.Err, apierrors.ErrEncoding)

	assert.Zero(t, tr.calls)
}

func TestExecute_MockMode(t *testing.T) {
	tr := &recordingTransport{}
	ex := New(environment.New(environment.ModeMock, nil), tr)
	ctx := context.Background()

	first := ex.Execute(ctx, widgetDescriptor(), Single[widget](), nil)
	second := ex.Execute(ctx, widgetDescriptor(), Single[widget](), nil)
	require.NoError(t, first.Err)
	assert.Equal(t, first.Object, second.Object)
	assert.Equal(t, &widget{ID: 1, Name: "mock"}, first.Object)

	list := ex.Execute(ctx, widgetDescriptor(), List[widget](), nil)
	assert.Equal(t, []widget{{ID: 1, Name: "mock"}}, list.List)

	override := ex.Execute(ctx, widgetDescriptor(), Raw().WithMock(map[string]any{"ok": true}), nil)
	assert.Equal(t, map[string]any{"ok": true}, override.Raw)

	// Descriptors that could never be encoded still resolve in mock mode.
	broken := endpoint.New(endpoint.CategoryProfiles, http.MethodGet, "/v1/profiles/{id}")
	assert.NoError(t, ex.Execute(ctx, broken, Empty(), nil).Err)

	assert.Zero(t, tr.calls)
}

func TestExecute_MockDelayHonoursContext(t *testing.T) {
	ex := New(environment.New(environment.ModeMock, nil), &recordingTransport{}, WithMockDelay(time.Hour))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res := ex.Execute(ctx, widgetDescriptor(), Single[widget](), nil)
	assert.True(t, errors.Is(res.Err, apierrors.ErrTimeout))
}

func TestExecute_LogsRedactedCall(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"id":3}`)
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.InfoLevel)

	ex := New(envFor(t, srv), transport.NewResty(), WithLogger(logger))
	res := ex.Execute(context.Background(), widgetDescriptor(), Single[widget](), map[string]string{"Authorization": "Bearer secret"})
	require.NoError(t, res.Err)

	out := buf.String()
	assert.Contains(t, out, `"level":"info"`)
	assert.Contains(t, out, "request completed")
	assert.Contains(t, out, "[redacted]")
	assert.NotContains(t, out, "secret")

	buf.Reset()
	quiet := New(envFor(t, srv), transport.NewResty(), WithLogger(logger.Level(zerolog.ErrorLevel)))
	quiet.Execute(context.Background(), widgetDescriptor(), Single[widget](), nil)
	assert.Empty(t, buf.String())
}

func TestReshape(t *testing.T) {
	ex := New(envFor(t, serve(t, http.StatusOK, `{"id":3,"name":"w"}`)), transport.NewResty())
	res := ex.Execute(context.Background(), widgetDescriptor(), Single[widget](), nil)
	require.NoError(t, res.Err)

	raw := Reshape(res, Raw())
	require.NoError(t, raw.Err)
	assert.Equal(t, KindRaw, raw.Kind)
	assert.Equal(t, map[string]any{"id": float64(3), "name": "w"}, raw.Raw)
	assert.Nil(t, raw.Object)
	assert.Equal(t, http.StatusOK, raw.StatusCode)

	assert.True(t, Single[widget]().Same(Single[widget]()))
	assert.False(t, Single[widget]().Same(Raw()))
	assert.False(t, Single[widget]().Same(List[widget]()))

	failed := Reshape(Result{Kind: KindRaw, Err: apierrors.ErrTimeout}, Single[widget]())
	assert.Equal(t, KindSingle, failed.Kind)
	assert.ErrorIs(t, failed.Err, apierrors.ErrTimeout)

	mock := New(environment.New(environment.ModeMock, nil), &recordingTransport{})
	asWidget := Reshape(mock.Execute(context.Background(), widgetDescriptor(), Raw(), nil), Single[widget]())
	assert.Equal(t, &widget{ID: 1, Name: "mock"}, asWidget.Object)
}
