package queries

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var (
	ErrMissingIndex = errors.New("index name is required")
)

// CatalogQuery describes one catalog search. From and Size are already clamped by the caller.
type CatalogQuery struct {
	Index    string
	Keywords string
	Genre    string
	Status   string
	Type     string
	From     int
	Size     int
}

// BuildRequest turns q into a search request against the catalog index.
func BuildRequest(q CatalogQuery) (*esapi.SearchRequest, error) {
	if q.Index == "" {
		return nil, ErrMissingIndex
	}

	body, err := json.Marshal(BuildBody(q))
	if err != nil {
		return nil, err
	}

	from, size := q.From, q.Size
	return &esapi.SearchRequest{
		Index:          []string{q.Index},
		Body:           bytes.NewReader(body),
		From:           &from,
		Size:           &size,
		TrackTotalHits: true,
	}, nil
}

// BuildBody returns the query DSL. Keywords score against title, description and genres;
// genre, status and type only filter.
func BuildBody(q CatalogQuery) map[string]interface{} {
	mustClauses := []interface{}{}
	filterClauses := []interface{}{}
	keywords := strings.TrimSpace(q.Keywords)

	if keywords != "" {
		mustClauses = append(mustClauses, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  keywords,
				"fields": []string{"title^3", "description", "genres"},
				"type":   "best_fields",
			},
		})
	}

	if q.Genre != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"genres": q.Genre},
		})
	}
	if q.Status != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"status": q.Status},
		})
	}
	if q.Type != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"type": q.Type},
		})
	}

	if len(mustClauses) == 0 {
		mustClauses = append(mustClauses, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	boolQuery := map[string]interface{}{"must": mustClauses}
	if len(filterClauses) > 0 {
		boolQuery["filter"] = filterClauses
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
	}
	if keywords == "" {
		query["sort"] = []map[string]interface{}{{"title.keyword": map[string]interface{}{"order": "asc", "unmapped_type": "keyword"}}}
	}
	return query
}
