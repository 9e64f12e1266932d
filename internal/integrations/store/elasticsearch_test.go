package store

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeES answers the document GET and _update endpoints for one index.
type fakeES struct {
	docs       map[string]map[string]interface{}
	lastUpdate map[string]interface{}
	failWith   int
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	if f.failWith != 0 {
		w.WriteHeader(f.failWith)
		_, _ = io.WriteString(w, `{"error":"boom"}`)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	id := parts[2]
	doc, ok := f.docs[id]

	switch {
	case r.Method == http.MethodGet && parts[1] == "_doc":
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"found":false}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"found": true, "_id": id, "_source": doc})

	case r.Method == http.MethodPost && parts[1] == "_update":
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":{"type":"document_missing_exception"}}`)
			return
		}
		var body struct {
			Script struct {
				Params struct {
					Fields   map[string]interface{} `json:"fields"`
					Field    *string                `json:"field"`
					Expected string                 `json:"expected"`
				} `json:"params"`
			} `json:"script"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.lastUpdate = body.Script.Params.Fields

		p := body.Script.Params
		if p.Field != nil {
			cur, _ := doc[*p.Field].(string)
			if cur != p.Expected {
				_ = json.NewEncoder(w).Encode(map[string]interface{}{"result": "noop"})
				return
			}
		}
		for k, v := range p.Fields {
			doc[k] = v
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"result": "updated",
			"get":    map[string]interface{}{"_source": doc},
		})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newESStore(t *testing.T, fake *fakeES) *ElasticsearchStore {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    []string{srv.URL},
		DisableRetry: true,
	})
	require.NoError(t, err)
	return NewElasticsearchStore(client)
}

func TestElasticsearchStore_Get(t *testing.T) {
	fake := &fakeES{docs: map[string]map[string]interface{}{
		"ps-1": {"hash": "abc", "netPay": 1234.5, "employeeId": "emp-1"},
	}}
	s := newESStore(t, fake)

	rec, err := s.Get(context.Background(), "main", "pay_stubs", "ps-1")
	require.NoError(t, err)
	assert.Equal(t, "ps-1", rec.ID)
	assert.Equal(t, "pay_stubs", rec.Collection)
	assert.Equal(t, "1234.5", rec.String("netPay"))

	_, err = s.Get(context.Background(), "main", "pay_stubs", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestElasticsearchStore_GetServerError(t *testing.T) {
	s := newESStore(t, &fakeES{failWith: http.StatusInternalServerError})

	_, err := s.Get(context.Background(), "main", "pay_stubs", "ps-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestElasticsearchStore_UpdatePrecondition(t *testing.T) {
	fake := &fakeES{docs: map[string]map[string]interface{}{
		"app-1": {"status": "approved", "lastNotifiedHash": "h1"},
	}}
	s := newESStore(t, fake)
	ctx := context.Background()

	rec, err := s.Update(ctx, "main", "applications", "app-1",
		map[string]interface{}{"lastNotifiedHash": "h2"},
		&Precondition{Field: "lastNotifiedHash", Value: "h1"})
	require.NoError(t, err)
	assert.Equal(t, "h2", rec.String("lastNotifiedHash"))
	assert.Equal(t, "approved", rec.String("status"))

	// replaying the same guarded write loses the race
	_, err = s.Update(ctx, "main", "applications", "app-1",
		map[string]interface{}{"lastNotifiedHash": "h3"},
		&Precondition{Field: "lastNotifiedHash", Value: "h1"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = s.Update(ctx, "main", "applications", "gone",
		map[string]interface{}{"lastNotifiedHash": "h3"}, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}
