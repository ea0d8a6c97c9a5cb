package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calcount/calcount-api/internal/domain/entity"
	"github.com/calcount/calcount-api/internal/infrastructure/memory"
)

type recorded struct {
	Method string
	Path   string
	Body   []byte
}

type fakeES struct {
	mu       sync.Mutex
	requests []recorded
	reply    func(r *http.Request) (int, string)
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recorded{Method: r.Method, Path: r.URL.Path, Body: body})
	f.mu.Unlock()

	status, payload := http.StatusOK, `{}`
	if f.reply != nil {
		status, payload = f.reply(r)
	}
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, payload)
}

func (f *fakeES) last() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newIndex(t *testing.T, f *fakeES) *UserIndex {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewUserIndex(es, "users_test")
}

func TestEnsureIndex_CreatesWhenMissing(t *testing.T) {
	f := &fakeES{reply: func(r *http.Request) (int, string) {
		if r.Method == http.MethodHead {
			return http.StatusNotFound, ``
		}
		return http.StatusOK, `{"acknowledged":true}`
	}}
	x := newIndex(t, f)

	require.NoError(t, x.EnsureIndex(context.Background()))
	require.Len(t, f.requests, 2)
	assert.Equal(t, http.MethodPut, f.requests[1].Method)
	assert.Equal(t, "/users_test", f.requests[1].Path)
	assert.Contains(t, string(f.requests[1].Body), `"username"`)
}

func TestEnsureIndex_ExistingIsLeftAlone(t *testing.T) {
	f := &fakeES{}
	x := newIndex(t, f)

	require.NoError(t, x.EnsureIndex(context.Background()))
	require.Len(t, f.requests, 1)
	assert.Equal(t, http.MethodHead, f.requests[0].Method)
}

func TestIndexUser(t *testing.T) {
	f := &fakeES{reply: func(*http.Request) (int, string) { return http.StatusCreated, `{"result":"created"}` }}
	x := newIndex(t, f)

	u := &entity.User{
		ID:        "u-1",
		Username:  "alice",
		FullName:  entity.FullName{FirstName: "Alice", LastName: "Smith"},
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, x.IndexUser(context.Background(), u))

	req := f.last()
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/users_test/_doc/u-1", req.Path)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(req.Body, &doc))
	assert.Equal(t, "alice", doc["username"])
	assert.Equal(t, "Alice Smith", doc["full_name"])
}

func TestIndexUser_ServerError(t *testing.T) {
	f := &fakeES{reply: func(*http.Request) (int, string) { return http.StatusBadRequest, `{"error":"bad"}` }}
	x := newIndex(t, f)

	err := x.IndexUser(context.Background(), &entity.User{ID: "u-1", Username: "alice"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index user u-1")
}

func TestSearchUsernames(t *testing.T) {
	f := &fakeES{reply: func(*http.Request) (int, string) {
		return http.StatusOK, `{"hits":{"hits":[{"_id":"u-2"},{"_id":"u-7"}]}}`
	}}
	x := newIndex(t, f)

	ids, err := x.SearchUsernames(context.Background(), "Al*", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"u-2", "u-7"}, ids)

	req := f.last()
	assert.Equal(t, "/users_test/_search", req.Path)

	var q struct {
		Query struct {
			Wildcard struct {
				Username struct {
					Value           string `json:"value"`
					CaseInsensitive bool   `json:"case_insensitive"`
				} `json:"username"`
			} `json:"wildcard"`
		} `json:"query"`
		Size int `json:"size"`
	}
	require.NoError(t, json.Unmarshal(req.Body, &q))
	assert.Equal(t, `*Al\**`, q.Query.Wildcard.Username.Value)
	assert.True(t, q.Query.Wildcard.Username.CaseInsensitive)
	assert.Equal(t, 50, q.Size)
}

func TestSearchUsernames_Error(t *testing.T) {
	f := &fakeES{reply: func(*http.Request) (int, string) { return http.StatusNotFound, `{"error":"index_not_found"}` }}
	x := newIndex(t, f)

	_, err := x.SearchUsernames(context.Background(), "al", 10)
	require.Error(t, err)
}

func TestBackfill_IndexesEveryStoredUser(t *testing.T) {
	f := &fakeES{reply: func(*http.Request) (int, string) { return http.StatusOK, `{"result":"updated"}` }}
	x := newIndex(t, f)

	store := memory.NewUserRepository()
	ctx := context.Background()
	for _, name := range []string{"alice", "bob"} {
		require.NoError(t, store.Create(ctx, &entity.User{ID: "id-" + name, Username: name, Email: name + "@example.com"}))
	}

	n, err := x.Backfill(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	paths := make([]string, 0, len(f.requests))
	for _, r := range f.requests {
		paths = append(paths, r.Path)
	}
	assert.ElementsMatch(t, []string{"/users_test/_doc/id-alice", "/users_test/_doc/id-bob"}, paths)
}

func TestBackfill_StopsOnIndexError(t *testing.T) {
	f := &fakeES{reply: func(*http.Request) (int, string) { return http.StatusBadRequest, `{"error":"bad"}` }}
	x := newIndex(t, f)

	store := memory.NewUserRepository()
	require.NoError(t, store.Create(context.Background(), &entity.User{ID: "id-alice", Username: "alice", Email: "alice@example.com"}))

	n, err := x.Backfill(context.Background(), store)
	require.Error(t, err)
	assert.Equal(t, 0, n)
}

func TestEscapeWildcard(t *testing.T) {
	assert.Equal(t, "plain", escapeWildcard("plain"))
	assert.Equal(t, `a\*b\?c\\`, escapeWildcard(`a*b?c\`))
}
