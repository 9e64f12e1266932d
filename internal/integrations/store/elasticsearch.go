package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"notification-dispatcher/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
)

// updateScript merges params.fields into the source unless the guarded
// field no longer matches, in which case the update becomes a noop.
const updateScript = `if (params.field != null) {
  String cur = ctx._source[params.field] == null ? '' : ctx._source[params.field].toString();
  if (cur != params.expected) { ctx.op = 'noop'; return; }
}
for (entry in params.fields.entrySet()) { ctx._source[entry.getKey()] = entry.getValue(); }`

// ElasticsearchStore keeps each collection in an index named after its
// database and collection.
type ElasticsearchStore struct {
	client *elasticsearch.Client
}

func NewElasticsearchStore(client *elasticsearch.Client) *ElasticsearchStore {
	return &ElasticsearchStore{client: client}
}

type getResponse struct {
	Found  bool                   `json:"found"`
	Source map[string]interface{} `json:"_source"`
}

type updateResponse struct {
	Result string `json:"result"`
	Get    struct {
		Source map[string]interface{} `json:"_source"`
	} `json:"get"`
}

func (s *ElasticsearchStore) Get(ctx context.Context, database, collection, id string) (*models.Record, error) {
	res, err := s.client.Get(
		IndexName(database, collection),
		id,
		s.client.Get.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch get: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch get: %s", res.Status())
	}

	var body getResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode get response: %w", err)
	}
	if !body.Found || body.Source == nil {
		return nil, ErrNotFound
	}

	return fillIdentity(models.RecordFromMap(body.Source), database, collection, id), nil
}

func (s *ElasticsearchStore) Update(ctx context.Context, database, collection, id string, fields map[string]interface{}, pre *Precondition) (*models.Record, error) {
	params := map[string]interface{}{
		"fields":   fields,
		"field":    nil,
		"expected": "",
	}
	if pre != nil {
		params["field"] = pre.Field
		params["expected"] = pre.Value
	}

	payload, err := json.Marshal(map[string]interface{}{
		"script": map[string]interface{}{
			"lang":   "painless",
			"source": updateScript,
			"params": params,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal update: %w", err)
	}

	res, err := s.client.Update(
		IndexName(database, collection),
		id,
		bytes.NewReader(payload),
		s.client.Update.WithContext(ctx),
		s.client.Update.WithSource("true"),
		s.client.Update.WithRefresh("wait_for"),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch update: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch update: %s", res.Status())
	}

	var body updateResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode update response: %w", err)
	}
	// a noop also happens when fields already hold the written values;
	// only a guarded update treats it as a lost race
	if body.Result == "noop" && pre != nil {
		return nil, ErrConflict
	}

	source := body.Get.Source
	if source == nil {
		source = fields
	}
	return fillIdentity(models.RecordFromMap(source), database, collection, id), nil
}
