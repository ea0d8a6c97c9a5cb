// Package search keeps an Elasticsearch index of users for partial-username
// lookups.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/calcount/calcount-api/internal/domain/entity"
	"github.com/calcount/calcount-api/internal/domain/repository"
)

const requestTimeout = 3 * time.Second

const usersMapping = `{
  "mappings": {
    "properties": {
      "id":         { "type": "keyword" },
      "username":   { "type": "keyword" },
      "full_name":  { "type": "text" },
      "created_at": { "type": "date" }
    }
  }
}`

type UserIndex struct {
	ES    *elasticsearch.Client
	Index string
}

func NewUserIndex(es *elasticsearch.Client, index string) *UserIndex {
	return &UserIndex{ES: es, Index: index}
}

// EnsureIndex creates the index with its mapping when it does not exist yet.
func (x *UserIndex) EnsureIndex(ctx context.Context) error {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := x.ES.Indices.Exists([]string{x.Index}, x.ES.Indices.Exists.WithContext(c))
	if err != nil {
		return err
	}
	_ = res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = x.ES.Indices.Create(x.Index,
		x.ES.Indices.Create.WithContext(c),
		x.ES.Indices.Create.WithBody(strings.NewReader(usersMapping)))
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("create index %s: %s", x.Index, res.Status())
	}
	return nil
}

func (x *UserIndex) IndexUser(ctx context.Context, u *entity.User) error {
	doc := map[string]any{
		"id":         u.ID,
		"username":   u.Username,
		"full_name":  u.FullName.String(),
		"created_at": u.CreatedAt.Format(time.RFC3339Nano),
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: x.Index, DocumentID: u.ID, Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.ES)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("index user %s: %s", u.ID, res.Status())
	}
	return nil
}

// SearchUsernames returns the ids of users whose username contains fragment,
// ignoring case, ordered by username.
func (x *UserIndex) SearchUsernames(ctx context.Context, fragment string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 50
	}
	query := map[string]any{
		"query": map[string]any{
			"wildcard": map[string]any{
				"username": map[string]any{
					"value":            "*" + escapeWildcard(fragment) + "*",
					"case_insensitive": true,
				},
			},
		},
		"sort":    []any{map[string]any{"username": "asc"}},
		"size":    limit,
		"_source": false,
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := x.ES.Search(x.ES.Search.WithContext(c), x.ES.Search.WithIndex(x.Index), x.ES.Search.WithBody(bytes.NewReader(b)))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("search %s: %s", x.Index, res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.ID)
	}
	return out, nil
}

// UserSource is the read side of the user store used to rebuild the index.
type UserSource interface {
	ListUsernames(ctx context.Context) ([]string, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
}

// Backfill indexes every user in src and returns how many were written.
// Documents are keyed by user id, so a re-run overwrites instead of duplicating.
func (x *UserIndex) Backfill(ctx context.Context, src UserSource) (int, error) {
	names, err := src.ListUsernames(ctx)
	if err != nil {
		return 0, fmt.Errorf("list usernames: %w", err)
	}
	n := 0
	for _, name := range names {
		u, err := src.GetByUsername(ctx, name)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return n, fmt.Errorf("load user %s: %w", name, err)
		}
		if err := x.IndexUser(ctx, u); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func escapeWildcard(s string) string {
	return strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`).Replace(s)
}
