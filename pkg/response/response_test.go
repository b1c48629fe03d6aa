package response

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuccessWithPagination(t *testing.T) {
	res := SuccessWithPagination(http.StatusOK, []string{"a"}, 2, 20, 41)

	assert.Equal(t, "success", res.Status)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	if assert.NotNil(t, res.Pagination) {
		assert.Equal(t, 2, res.Pagination.Page)
		assert.Equal(t, int64(41), res.Pagination.Total)
		assert.Equal(t, int64(3), res.Pagination.TotalPages)
	}
}

func TestError(t *testing.T) {
	res := Error(http.StatusForbidden, "denied")
	assert.Equal(t, "error", res.Status)
	assert.Equal(t, "denied", res.Error)
	assert.Nil(t, res.Data)
}
