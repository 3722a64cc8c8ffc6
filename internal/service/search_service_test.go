package service

import (
	"context"
	"errors"
	"fmt"
	"shelf-search-go/internal/config"
	"shelf-search-go/internal/model"
	"shelf-search-go/internal/repository"
	"shelf-search-go/internal/search"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioOwner = "ABCDEF1234567890ABCDEF1234567890"

// newTestSearchService 把给定的行放进单页目录，封面一律不存在。
func newTestSearchService(t *testing.T, rows []model.CatalogRow) SearchService {
	t.Helper()
	repo := &mockCatalogRepo{
		QueryItemsFunc: func(_ context.Context, ownerID, _ string, _ int) (repository.CatalogPage, error) {
			var out []model.CatalogRow
			for _, r := range rows {
				if r.PK == model.OwnerPartition(ownerID) {
					out = append(out, r)
				}
			}
			return repository.CatalogPage{Rows: out}, nil
		},
	}
	covers := &mockCoverRepo{
		GetCoverFunc: func(context.Context, string) ([]byte, error) {
			return nil, repository.ErrCoverNotFound
		},
	}
	matcher, err := search.NewMatcher(config.SearchConfig{
		Engine:             config.SearchEngineFuse,
		Threshold:          0.6,
		Distance:           100,
		MinMatchCharLength: 2,
	})
	require.NoError(t, err)

	indexes := NewIndexService(NewCatalogFetcher(repo, 50), matcher, search.NewMemoryCache(), 15*time.Minute)
	return NewSearchService(indexes, NewCoverResolver(covers, 4, time.Second), 10)
}

func TestSearch_SingleExactItem(t *testing.T) {
	svc := newTestSearchService(t, []model.CatalogRow{
		catalogRow(scenarioOwner, "dune-1", "Dune", "Frank Herbert"),
	})

	results, err := svc.Search(context.Background(), scenarioOwner, []string{"dune"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "dune-1", results[0].ID)
	assert.Equal(t, "Dune", results[0].Title)
	assert.Equal(t, []string{"Frank Herbert"}, results[0].Authors)
	assert.Equal(t, 0.0, results[0].Score)
	assert.Empty(t, results[0].Picture)
}

func TestSearch_EmptyCatalog(t *testing.T) {
	svc := newTestSearchService(t, nil)

	results, err := svc.Search(context.Background(), scenarioOwner, []string{"anything"})
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSearch_BelowMinimumMatchLength(t *testing.T) {
	svc := newTestSearchService(t, []model.CatalogRow{
		catalogRow(scenarioOwner, "1", "A Game of Thrones", "George R. R. Martin"),
		catalogRow(scenarioOwner, "2", "Data", "Anna"),
	})

	results, err := svc.Search(context.Background(), scenarioOwner, []string{"a"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_MisspelledAuthorRanksAboveUnrelated(t *testing.T) {
	svc := newTestSearchService(t, []model.CatalogRow{
		catalogRow(scenarioOwner, "pride", "Pride and Prejudice", "Jane Austen"),
		catalogRow(scenarioOwner, "hobbit", "The Hobbit", "Tolkien"),
	})

	results, err := svc.Search(context.Background(), scenarioOwner, []string{"Tolkein"})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "hobbit", results[0].ID)
	assert.Greater(t, results[0].Score, 0.0)
	assert.Less(t, results[0].Score, 1.0)
	for _, r := range results[1:] {
		assert.Greater(t, r.Score, results[0].Score)
	}
}

func TestSearch_LimitsResults(t *testing.T) {
	rows := make([]model.CatalogRow, 0, 25)
	for i := 0; i < 25; i++ {
		rows = append(rows, catalogRow(scenarioOwner, fmt.Sprintf("f%02d", i), fmt.Sprintf("Foundation %d", i), "Isaac Asimov"))
	}
	svc := newTestSearchService(t, rows)

	results, err := svc.Search(context.Background(), scenarioOwner, []string{"foundation"})
	require.NoError(t, err)
	require.Len(t, results, 10)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestSearch_MultipleTermsFormOnePhrase(t *testing.T) {
	svc := newTestSearchService(t, []model.CatalogRow{
		catalogRow(scenarioOwner, "1", "Dune", "Frank Herbert"),
	})

	results, err := svc.Search(context.Background(), scenarioOwner, []string{"frank", " herbert "})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 0.0, results[0].Score)
}

func TestSearch_EmptyTerms(t *testing.T) {
	svc := newTestSearchService(t, []model.CatalogRow{
		catalogRow(scenarioOwner, "1", "Dune"),
	})

	for _, terms := range [][]string{nil, {}, {"  ", ""}} {
		results, err := svc.Search(context.Background(), scenarioOwner, terms)
		require.NoError(t, err)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	}
}

func TestSearch_MissingOwner(t *testing.T) {
	svc := newTestSearchService(t, nil)

	_, err := svc.Search(context.Background(), "", []string{"dune"})
	assert.ErrorIs(t, err, ErrAuthResolution)
}

func TestSearch_StorageFailure(t *testing.T) {
	repo := &mockCatalogRepo{
		QueryItemsFunc: func(context.Context, string, string, int) (repository.CatalogPage, error) {
			return repository.CatalogPage{}, errors.New("table not found")
		},
	}
	matcher, err := search.NewMatcher(config.SearchConfig{Engine: config.SearchEngineFuse})
	require.NoError(t, err)
	indexes := NewIndexService(NewCatalogFetcher(repo, 50), matcher, search.NewMemoryCache(), time.Minute)
	svc := NewSearchService(indexes, nil, 10)

	_, err = svc.Search(context.Background(), scenarioOwner, []string{"dune"})
	assert.ErrorIs(t, err, ErrStorageQuery)
}

func TestBuildQuery(t *testing.T) {
	assert.Equal(t, "dune", BuildQuery([]string{"dune"}))
	assert.Equal(t, "frank herbert", BuildQuery([]string{"frank", "herbert"}))
	assert.Equal(t, "the lord of", BuildQuery([]string{" the  lord", "\tof "}))
	assert.Equal(t, "", BuildQuery(nil))
	assert.Equal(t, "", BuildQuery([]string{" ", ""}))
}

func TestNormalizeOwnerID(t *testing.T) {
	got, err := NormalizeOwnerID("abcdef12-3456-7890-abcd-ef1234567890")
	require.NoError(t, err)
	assert.Equal(t, scenarioOwner, got)

	got, err = NormalizeOwnerID(scenarioOwner)
	require.NoError(t, err)
	assert.Equal(t, scenarioOwner, got)

	for _, bad := range []string{"", "   ", "not-a-uuid", "user@example.com"} {
		_, err := NormalizeOwnerID(bad)
		assert.ErrorIs(t, err, ErrAuthResolution, bad)
	}
}
