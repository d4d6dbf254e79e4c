package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"

	"legalqa/internal/config"
	"legalqa/internal/constants"
	apperrors "legalqa/pkg/errors"
)

// Index runs a ranked search and returns hits best first.
type Index interface {
	Search(ctx context.Context, query Query) ([]Hit, error)
}

type ElasticsearchIndex struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchIndex(cfg config.SearchConfig) (*ElasticsearchIndex, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		APIKey:    cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return NewElasticsearchIndexWithClient(client, cfg.Index), nil
}

func NewElasticsearchIndexWithClient(client *elasticsearch.Client, index string) *ElasticsearchIndex {
	return &ElasticsearchIndex{
		client: client,
		index:  index,
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string          `json:"_id"`
			Score  float64         `json:"_score"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (i *ElasticsearchIndex) Search(ctx context.Context, query Query) ([]Hit, error) {
	body, err := query.JSON()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrRetrieval).AsFatal()
	}

	res, err := i.client.Search(
		i.client.Search.WithContext(ctx),
		i.client.Search.WithIndex(i.index),
		i.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, apperrors.Wrap(fmt.Errorf("search request failed: %w", err), apperrors.ErrRetrieval)
	}
	defer res.Body.Close()

	if res.StatusCode < constants.HTTPStatusOKMin || res.StatusCode >= constants.HTTPStatusOKMax {
		return nil, apperrors.ErrRetrieval.
			WithCause(fmt.Errorf("search returned status %d: %s", res.StatusCode, readSnippet(res.Body))).
			WithDetail("status", res.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, apperrors.Wrap(fmt.Errorf("failed to decode search response: %w", err), apperrors.ErrRetrieval)
	}

	hits := make([]Hit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hits = append(hits, Hit{
			ID:     h.ID,
			Score:  h.Score,
			Source: h.Source,
		})
	}
	return hits, nil
}

// Ping checks that the cluster answers and the configured index exists.
func (i *ElasticsearchIndex) Ping(ctx context.Context) error {
	res, err := i.client.Indices.Exists(
		[]string{i.index},
		i.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch unreachable: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < constants.HTTPStatusOKMin || res.StatusCode >= constants.HTTPStatusOKMax {
		return fmt.Errorf("index %s check returned status %d", i.index, res.StatusCode)
	}
	return nil
}

func readSnippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return string(bytes.TrimSpace(b))
}
