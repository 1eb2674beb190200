package queries

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
)

// ErrIndexMissing is returned when Elasticsearch answers 404 for the index.
type ErrIndexMissing struct {
	Index string
}

func (e *ErrIndexMissing) Error() string {
	return fmt.Sprintf("index %q does not exist", e.Index)
}

// Hit is one matching document.
type Hit struct {
	ID     string
	Score  float64
	Source map[string]interface{}
}

type Result struct {
	Hits      []Hit
	TotalHits int64
	MaxScore  float64
	Took      int64
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		MaxScore *float64 `json:"max_score"`
		Hits     []struct {
			ID     string                 `json:"_id"`
			Score  *float64               `json:"_score"`
			Source map[string]interface{} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Execute runs q and decodes the hits.
func Execute(ctx context.Context, client *elasticsearch.Client, q CatalogQuery) (*Result, error) {
	req, err := BuildRequest(q)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := req.Do(ctx, client)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, &ErrIndexMissing{Index: q.Index}
	}
	if res.IsError() {
		return nil, fmt.Errorf("search query failed: %s", res.String())
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	result := &Result{
		Hits:      make([]Hit, 0, len(r.Hits.Hits)),
		TotalHits: r.Hits.Total.Value,
		Took:      time.Since(start).Milliseconds(),
	}
	if r.Hits.MaxScore != nil {
		result.MaxScore = *r.Hits.MaxScore
	}
	for _, h := range r.Hits.Hits {
		hit := Hit{ID: h.ID, Source: h.Source}
		if h.Score != nil {
			hit.Score = *h.Score
		}
		if hit.Source == nil {
			hit.Source = map[string]interface{}{}
		}
		result.Hits = append(result.Hits, hit)
	}
	return result, nil
}
