package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func paginationContext(target string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestGetPaginationParams(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		wantPage   int
		wantSize   int
		wantOffset int
	}{
		{"defaults", "/v1/chats", 1, 20, 0},
		{"explicit page and limit", "/v1/chats?page=3&limit=10", 3, 10, 20},
		{"limit capped at 100", "/v1/chats?limit=500", 1, 20, 0},
		{"zero and negative fall back", "/v1/chats?page=0&limit=-5", 1, 20, 0},
		{"garbage falls back", "/v1/chats?page=abc&limit=xyz", 1, 20, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := GetPaginationParams(paginationContext(tt.target))
			assert.Equal(t, tt.wantPage, params.Page)
			assert.Equal(t, tt.wantSize, params.PageSize)
			assert.Equal(t, tt.wantOffset, params.Offset)
		})
	}
}
