package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"shelf-search-go/internal/middleware"
	"shelf-search-go/internal/model"
	"shelf-search-go/internal/service"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockSearchService struct {
	SearchFunc func(ctx context.Context, ownerID string, terms []string) ([]model.SearchResultDTO, error)
}

func (m *mockSearchService) Search(ctx context.Context, ownerID string, terms []string) ([]model.SearchResultDTO, error) {
	return m.SearchFunc(ctx, ownerID, terms)
}

// newRouter 用固定的 ownerId 代替 JWT 中间件。
func newRouter(ownerID string, svc service.SearchService) *gin.Engine {
	r := gin.New()
	r.Use(middleware.CORS())
	r.Use(func(c *gin.Context) {
		if ownerID != "" {
			c.Set(middleware.OwnerIDKey, ownerID)
		}
		c.Next()
	})
	r.POST("/api/v1/search", NewSearchHandler(svc).Search)
	return r
}

func post(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestSearchHandler_Success(t *testing.T) {
	var gotOwner string
	var gotTerms []string
	svc := &mockSearchService{
		SearchFunc: func(_ context.Context, ownerID string, terms []string) ([]model.SearchResultDTO, error) {
			gotOwner, gotTerms = ownerID, terms
			return []model.SearchResultDTO{
				{ID: "1", Title: "Dune", Authors: []string{"Frank Herbert"}, LibraryID: "L1", Picture: "aGk="},
				{ID: "2", Title: "Dune Messiah", Authors: []string{}, LibraryID: "L1", Score: 0.001},
			}, nil
		},
	}

	rec := post(newRouter("OWNER", svc), `{"terms":["dune"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OWNER", gotOwner)
	assert.Equal(t, []string{"dune"}, gotTerms)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	var body struct {
		Results []map[string]interface{} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Results, 2)
	assert.Equal(t, "aGk=", body.Results[0]["picture"])
	assert.NotContains(t, body.Results[1], "picture")
	for _, key := range []string{"id", "isbn", "libraryId", "libraryName", "summary", "title", "type", "authors", "score"} {
		assert.Contains(t, body.Results[1], key)
	}
}

func TestSearchHandler_EmptyResultsIsArray(t *testing.T) {
	svc := &mockSearchService{
		SearchFunc: func(context.Context, string, []string) ([]model.SearchResultDTO, error) {
			return nil, nil
		},
	}

	rec := post(newRouter("OWNER", svc), `{"terms":["zzz"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"results":[]}`, rec.Body.String())
}

func TestSearchHandler_EmptyBody(t *testing.T) {
	called := false
	svc := &mockSearchService{
		SearchFunc: func(_ context.Context, _ string, terms []string) ([]model.SearchResultDTO, error) {
			called = true
			assert.Empty(t, terms)
			return []model.SearchResultDTO{}, nil
		},
	}

	rec := post(newRouter("OWNER", svc), ``)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}

func TestSearchHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{service.ErrAuthResolution, http.StatusUnauthorized},
		{service.ErrInvalidQuery, http.StatusBadRequest},
		{fmt.Errorf("%w: 第 2 页: %w", service.ErrStorageQuery, errors.New("dial tcp: refused")), http.StatusInternalServerError},
		{errors.New("unexpected"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			svc := &mockSearchService{
				SearchFunc: func(context.Context, string, []string) ([]model.SearchResultDTO, error) {
					return nil, tc.err
				},
			}

			rec := post(newRouter("OWNER", svc), `{"terms":["dune"]}`)
			assert.Equal(t, tc.status, rec.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.EqualValues(t, tc.status, body["code"])
			assert.NotEmpty(t, body["message"])
			assert.NotContains(t, rec.Body.String(), "dial tcp")
		})
	}
}

func TestSearchHandler_MalformedBody(t *testing.T) {
	svc := &mockSearchService{
		SearchFunc: func(context.Context, string, []string) ([]model.SearchResultDTO, error) {
			t.Error("service should not be called")
			return nil, nil
		},
	}

	for _, body := range []string{`{"terms":`, `{"terms":"dune"}`, `[1,2]`} {
		rec := post(newRouter("OWNER", svc), body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestSearchHandler_MissingOwner(t *testing.T) {
	svc := &mockSearchService{
		SearchFunc: func(context.Context, string, []string) ([]model.SearchResultDTO, error) {
			t.Error("service should not be called")
			return nil, nil
		},
	}

	rec := post(newRouter("", svc), `{"terms":["dune"]}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
