package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"api-router/internal/config"
	"api-router/internal/gateway"
	"api-router/internal/routing"
	"api-router/internal/storage"
)

// memoryStorage keeps configuration documents in a map for handler tests.
type memoryStorage struct {
	docs map[string][]byte
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{docs: make(map[string][]byte)}
}

func (m *memoryStorage) LoadConfig(_ context.Context, name string) (*storage.ConfigRecord, error) {
	doc, ok := m.docs[name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.ConfigRecord{Name: name, Document: doc}, nil
}

func (m *memoryStorage) SaveConfig(_ context.Context, name string, document []byte) error {
	m.docs[name] = append([]byte(nil), document...)
	return nil
}

func (m *memoryStorage) ListConfigs(_ context.Context) (map[string][]byte, error) {
	out := make(map[string][]byte, len(m.docs))
	for name, doc := range m.docs {
		out[name] = doc
	}
	return out, nil
}

func (m *memoryStorage) Health() error { return nil }
func (m *memoryStorage) Close() error  { return nil }

// failingStorage simulates a store outage on reads.
type failingStorage struct {
	*memoryStorage
	loadErr error
}

func (f *failingStorage) LoadConfig(ctx context.Context, name string) (*storage.ConfigRecord, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.memoryStorage.LoadConfig(ctx, name)
}

func newTestHandlers(t *testing.T, store storage.Storage, document string) *Handlers {
	t.Helper()
	table := routing.NewTable()
	if document != "" {
		table.Publish([]byte(document))
	}
	cfg := &config.Config{DefaultConfigName: "default"}
	return New(store, gateway.New(nil, nil), table, cfg, nil)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestForward_RoutesToMatchedDestination(t *testing.T) {
	var gotBody string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"received": true}`))
	}))
	defer upstream.Close()

	doc := `[{"field": "user", "op": "eq", "value": 1, "api_endpoint": "` + upstream.URL + `"}]`
	h := newTestHandlers(t, newMemoryStorage(), doc)

	req := httptest.NewRequest(http.MethodPost, "/forward", strings.NewReader(`{"user": 1}`))
	rec := httptest.NewRecorder()
	h.Forward(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"user": 1}`, gotBody)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(http.StatusAccepted), body["status_code"])
	assert.Equal(t, upstream.URL, body["target_url"])
	assert.Equal(t, map[string]interface{}{"received": true}, body["data"])
}

func TestForward_NoMatchingRule(t *testing.T) {
	doc := `[{"field": "user", "op": "eq", "value": 1, "api_endpoint": "http://localhost:9/x"}]`
	h := newTestHandlers(t, newMemoryStorage(), doc)

	req := httptest.NewRequest(http.MethodPost, "/forward", strings.NewReader(`{"user": 3}`))
	rec := httptest.NewRecorder()
	h.Forward(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No matching target API for filter condition", decodeBody(t, rec)["detail"])
}

func TestForward_MatchedRuleWithoutDestination(t *testing.T) {
	// The empty-destination rule wins; rule two must not be consulted.
	doc := `[
		{"field": "user", "op": "eq", "value": 1, "api_endpoint": ""},
		{"field": "user", "op": "eq", "value": 1, "api_endpoint": "http://localhost:9/x"}
	]`
	h := newTestHandlers(t, newMemoryStorage(), doc)

	req := httptest.NewRequest(http.MethodPost, "/forward", strings.NewReader(`{"user": 1}`))
	rec := httptest.NewRecorder()
	h.Forward(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No matching target API for filter condition", decodeBody(t, rec)["detail"])
}

func TestForward_InvalidPayload(t *testing.T) {
	h := newTestHandlers(t, newMemoryStorage(), "")

	for _, payload := range []string{"", "{not json"} {
		req := httptest.NewRequest(http.MethodPost, "/forward", strings.NewReader(payload))
		rec := httptest.NewRecorder()
		h.Forward(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Payload data is required for routing", decodeBody(t, rec)["detail"])
	}
}

func TestForward_UnreachableDestination(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := upstream.URL
	upstream.Close()

	doc := `[{"field": "user", "op": "eq", "value": 1, "api_endpoint": "` + url + `"}]`
	h := newTestHandlers(t, newMemoryStorage(), doc)

	req := httptest.NewRequest(http.MethodPost, "/forward", strings.NewReader(`{"user": 1}`))
	rec := httptest.NewRecorder()
	h.Forward(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Failed to reach target API", decodeBody(t, rec)["detail"])
}

func TestForward_UpstreamErrorStatusIsRelayed(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "teapot", http.StatusTeapot)
	}))
	defer upstream.Close()

	doc := `[{"field": "user", "op": "eq", "value": 1, "api_endpoint": "` + upstream.URL + `"}]`
	h := newTestHandlers(t, newMemoryStorage(), doc)

	req := httptest.NewRequest(http.MethodPost, "/forward", strings.NewReader(`{"user": 1}`))
	rec := httptest.NewRecorder()
	h.Forward(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(http.StatusTeapot), decodeBody(t, rec)["status_code"])
}

func TestHealth_ReportsTargets(t *testing.T) {
	doc := `[
		{"field": "user", "op": "eq", "value": 1, "api_endpoint": "http://a/data"},
		{"field": "user", "op": "eq", "value": 2, "api_endpoint": "http://b/data"}
	]`
	h := newTestHandlers(t, newMemoryStorage(), doc)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, []interface{}{"http://a/data", "http://b/data"}, body["targets"])
}

func TestUpdateConfig_MergesAndPersists(t *testing.T) {
	store := newMemoryStorage()
	h := newTestHandlers(t, store, `{"user": {"1": "http://a/data"}}`)

	req := httptest.NewRequest(http.MethodPost, "/config/filter",
		strings.NewReader(`{"branch": {"kingston": "http://b/data"}}`))
	rec := httptest.NewRecorder()
	h.UpdateConfig(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Filter config updated", body["message"])

	// Both the original and the merged key survive in the persisted doc.
	saved, err := store.LoadConfig(context.Background(), "default")
	require.NoError(t, err)
	assert.JSONEq(t, `{"user": {"1": "http://a/data"}, "branch": {"kingston": "http://b/data"}}`, string(saved.Document))

	// The active rule set reflects the merge immediately.
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	h.Health(rec, req)
	assert.Equal(t, []interface{}{"http://a/data", "http://b/data"},
		decodeBody(t, rec)["targets"])
}

func TestUpdateConfig_OverwritesExistingKey(t *testing.T) {
	store := newMemoryStorage()
	h := newTestHandlers(t, store, `{"user": {"1": "http://a/data"}, "branch": {"kingston": "http://b/data"}}`)

	req := httptest.NewRequest(http.MethodPost, "/config/filter",
		strings.NewReader(`{"user": {"1": "http://c/data"}}`))
	rec := httptest.NewRecorder()
	h.UpdateConfig(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	saved, err := store.LoadConfig(context.Background(), "default")
	require.NoError(t, err)
	assert.JSONEq(t, `{"user": {"1": "http://c/data"}, "branch": {"kingston": "http://b/data"}}`, string(saved.Document))
}

func TestUpdateConfig_DottedKeyStaysLiteral(t *testing.T) {
	store := newMemoryStorage()
	h := newTestHandlers(t, store, `{"branch": {"kingston": "http://b/data"}}`)

	// "user.id" is a field specifier, not a path into the document: the
	// merge must write it as one literal top-level key.
	req := httptest.NewRequest(http.MethodPost, "/config/filter",
		strings.NewReader(`{"user.id": {"42": "http://a/data"}}`))
	rec := httptest.NewRecorder()
	h.UpdateConfig(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	saved, err := store.LoadConfig(context.Background(), "default")
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"branch": {"kingston": "http://b/data"}, "user.id": {"42": "http://a/data"}}`,
		string(saved.Document))

	// The dotted-field rule is live with its destination intact.
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	h.Health(rec, req)
	assert.Equal(t, []interface{}{"http://b/data", "http://a/data"},
		decodeBody(t, rec)["targets"])
}

func TestUpdateConfig_RejectsNonObject(t *testing.T) {
	h := newTestHandlers(t, newMemoryStorage(), "")

	for _, payload := range []string{`[1, 2]`, `"text"`, `not json`} {
		req := httptest.NewRequest(http.MethodPost, "/config/filter", strings.NewReader(payload))
		rec := httptest.NewRecorder()
		h.UpdateConfig(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "payload %q", payload)
	}
}

func TestGetConfig_ReturnsActiveDocument(t *testing.T) {
	doc := `{"user": {"1": "http://a/data"}}`
	h := newTestHandlers(t, newMemoryStorage(), doc)

	req := httptest.NewRequest(http.MethodGet, "/config/getfilters", nil)
	rec := httptest.NewRecorder()
	h.GetConfig(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	raw, err := json.Marshal(decodeBody(t, rec)["config"])
	require.NoError(t, err)
	assert.JSONEq(t, doc, string(raw))
}

func TestReloadConfig_FromStore(t *testing.T) {
	store := newMemoryStorage()
	require.NoError(t, store.SaveConfig(context.Background(), "default",
		[]byte(`{"branch": {"kingston": "http://b/data"}}`)))

	h := newTestHandlers(t, store, `{"user": {"1": "http://a/data"}}`)

	req := httptest.NewRequest(http.MethodPost, "/config/reload", nil)
	rec := httptest.NewRecorder()
	h.ReloadConfig(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Filter config reloaded from database", decodeBody(t, rec)["message"])

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	h.Health(rec, req)
	assert.Equal(t, []interface{}{"http://b/data"}, decodeBody(t, rec)["targets"])
}

func TestReloadConfig_StoreFailure(t *testing.T) {
	store := &failingStorage{
		memoryStorage: newMemoryStorage(),
		loadErr:       fmt.Errorf("dial tcp 127.0.0.1:5432: connection refused"),
	}
	h := newTestHandlers(t, store, `{"user": {"1": "http://a/data"}}`)

	req := httptest.NewRequest(http.MethodPost, "/config/reload", nil)
	rec := httptest.NewRecorder()
	h.ReloadConfig(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to load config from database", decodeBody(t, rec)["detail"])

	// The active rules survive the outage untouched.
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	h.Health(rec, req)
	assert.Equal(t, []interface{}{"http://a/data"}, decodeBody(t, rec)["targets"])
}

func TestReloadConfig_MissingKeepsCurrentRules(t *testing.T) {
	h := newTestHandlers(t, newMemoryStorage(), `{"user": {"1": "http://a/data"}}`)

	req := httptest.NewRequest(http.MethodPost, "/config/reload", nil)
	rec := httptest.NewRecorder()
	h.ReloadConfig(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "No config found in database, using default", decodeBody(t, rec)["message"])

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	h.Health(rec, req)
	assert.Equal(t, []interface{}{"http://a/data"}, decodeBody(t, rec)["targets"])
}
