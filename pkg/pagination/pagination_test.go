package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func parseQuery(query string) Params {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/items?"+query, nil)
	return Parse(c)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Params
	}{
		{"defaults", "", Params{Page: 1, Limit: 20, Offset: 0}},
		{"search trimmed", "search=%20parafuso%20", Params{Page: 1, Limit: 20, Offset: 0, Search: "parafuso"}},
		{"explicit", "page=3&limit=10", Params{Page: 3, Limit: 10, Offset: 20}},
		{"limit capped", "limit=500", Params{Page: 1, Limit: MaxLimit, Offset: 0}},
		{"garbage", "page=abc&limit=-4", Params{Page: 1, Limit: 20, Offset: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseQuery(tt.query))
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, Params{Page: 1, Limit: 20, Offset: 0}, Normalize(0, 0))
	assert.Equal(t, Params{Page: 2, Limit: 100, Offset: 100}, Normalize(2, 1000))
}
