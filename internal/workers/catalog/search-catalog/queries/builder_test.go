package queries

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildBody_KeywordsAndFilters(t *testing.T) {
	body := BuildBody(CatalogQuery{
		Keywords: "ronin",
		Genre:    "action",
		Status:   "ongoing",
		Type:     "anime",
	})

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	boolQuery := decoded["query"].(map[string]interface{})["bool"].(map[string]interface{})
	must := boolQuery["must"].([]interface{})
	require.Len(t, must, 1)

	match := must[0].(map[string]interface{})["multi_match"].(map[string]interface{})
	assert.Equal(t, "ronin", match["query"])
	assert.Equal(t, []interface{}{"title^3", "description", "genres"}, match["fields"])

	filters := boolQuery["filter"].([]interface{})
	assert.Len(t, filters, 3)
	assert.Equal(t, map[string]interface{}{"term": map[string]interface{}{"genres": "action"}}, filters[0])
	assert.Equal(t, map[string]interface{}{"term": map[string]interface{}{"status": "ongoing"}}, filters[1])
	assert.Equal(t, map[string]interface{}{"term": map[string]interface{}{"type": "anime"}}, filters[2])

	assert.NotContains(t, decoded, "sort")
}

func TestBuildBody_BrowseAll(t *testing.T) {
	body := BuildBody(CatalogQuery{Keywords: "   "})

	boolQuery := body["query"].(map[string]interface{})["bool"].(map[string]interface{})
	must := boolQuery["must"].([]interface{})
	assert.Contains(t, must[0], "match_all")
	assert.NotContains(t, boolQuery, "filter")
}

func TestBuildRequest(t *testing.T) {
	_, err := BuildRequest(CatalogQuery{})
	assert.ErrorIs(t, err, ErrMissingIndex)

	req, err := BuildRequest(CatalogQuery{Index: "manga", From: 40, Size: 20})
	require.NoError(t, err)
	assert.Equal(t, []string{"manga"}, req.Index)
	assert.Equal(t, 40, *req.From)
	assert.Equal(t, 20, *req.Size)
}
