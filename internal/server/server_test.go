package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attache/internal/attachments"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

func TestAttachmentRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp := doJSON(t, srv, http.MethodPost, "/api/attachments", `{"uri":"file:///docs/a.prompt.md"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"success":true,"data":{"existed":false}}`, resp.Body.String())

	resp = doJSON(t, srv, http.MethodPost, "/api/attachments", `{"uri":"file:///docs/a.prompt.md"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"success":true,"data":{"existed":true}}`, resp.Body.String())

	resp = doJSON(t, srv, http.MethodGet, "/api/attachments", "")
	require.Equal(t, http.StatusOK, resp.Code)
	var list struct {
		Success bool `json:"success"`
		Data    struct {
			Variables []attachments.ChatVariable `json:"variables"`
			Enabled   bool                       `json:"enabled"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	require.Len(t, list.Data.Variables, 1)
	assert.True(t, list.Data.Enabled)
	assert.True(t, attachments.IsPromptFileVariable(list.Data.Variables[0]))

	resp = doJSON(t, srv, http.MethodGet, "/api/attachments/references", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "file:///docs/a.prompt.md")

	resp = doJSON(t, srv, http.MethodDelete, "/api/attachments?uri="+url.QueryEscape("file:///docs/a.prompt.md"), "")
	require.Equal(t, http.StatusOK, resp.Code)

	resp = doJSON(t, srv, http.MethodGet, "/api/attachments", "")
	assert.NotContains(t, resp.Body.String(), "a.prompt.md")
}

func TestAddRequiresURI(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp := doJSON(t, srv, http.MethodPost, "/api/attachments", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = doJSON(t, srv, http.MethodPost, "/api/attachments", `{"uri":"://bad"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAddRejectedWhenFeatureDisabled(t *testing.T) {
	gate := &stubGate{enabled: false}
	srv, col := newTestServer(t, gate)

	resp := doJSON(t, srv, http.MethodPost, "/api/attachments", `{"uri":"file:///docs/a.prompt.md"}`)
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Equal(t, 0, col.Len())
}

func TestRemoveAbsentIsNoOp(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp := doJSON(t, srv, http.MethodDelete, "/api/attachments?uri="+url.QueryEscape("file:///nope.md"), "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"success":true}`, resp.Body.String())
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp := doJSON(t, srv, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"status":"ok"`)
}

func TestStreamListenerForwardsCollectionEvents(t *testing.T) {
	_, col := newTestServer(t, nil)

	listener := newStreamListener(16)
	col.Subscribe(listener)
	defer col.Unsubscribe(listener)

	uri, _ := url.Parse("file:///docs/a.prompt.md")
	col.Add(context.Background(), uri)
	col.Remove(uri)

	var types []string
	for len(listener.events) > 0 {
		types = append(types, (<-listener.events).Type)
	}
	assert.Equal(t, []string{
		EventAttachmentAdded,
		EventCollectionUpdated,
		EventCollectionUpdated,
		EventAttachmentRemoved,
	}, types)
}

func newTestServer(t *testing.T, gate attachments.FeatureGate) (*Server, *attachments.Collection) {
	t.Helper()
	opts := []attachments.Option{}
	if gate != nil {
		opts = append(opts, attachments.WithFeatureGate(gate))
	}
	col := attachments.NewCollection(testFactory(), opts...)
	t.Cleanup(col.Close)

	cfg := DefaultConfig()
	cfg.EnableCORS = false
	return NewServer(col, cfg), col
}

func doJSON(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	return rec
}

// testHandle is a minimal settled Handle for exercising the HTTP surface
// without filesystem resolution.
type testHandle struct {
	root       *attachments.Reference
	settled    chan struct{}
	disposeFns []func()
	disposed   bool
}

func testFactory() attachments.HandleFactory {
	return attachments.HandleFactoryFunc(func(uri *url.URL) attachments.Handle {
		settled := make(chan struct{})
		close(settled)
		return &testHandle{
			root:    attachments.NewReference(uri, true),
			settled: settled,
		}
	})
}

func (h *testHandle) Reference() *attachments.Reference { return h.root }

func (h *testHandle) References() []*url.URL {
	return []*url.URL{h.root.URI()}
}

func (h *testHandle) OnUpdate(func()) {}

func (h *testHandle) OnDispose(fn func()) { h.disposeFns = append(h.disposeFns, fn) }

func (h *testHandle) Resolve(context.Context) {}

func (h *testHandle) Settled() <-chan struct{} { return h.settled }

func (h *testHandle) Dispose() {
	if h.disposed {
		return
	}
	h.disposed = true
	for _, fn := range h.disposeFns {
		fn()
	}
}

type stubGate struct{ enabled bool }

func (g *stubGate) PromptFilesEnabled() bool { return g.enabled }
