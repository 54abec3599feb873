package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantry-matcher/internal/core/catalog"
	"pantry-matcher/internal/core/unit"
	"pantry-matcher/internal/infrastructure/config"
	"pantry-matcher/internal/pkg/common"
)

func ptr[T any](v T) *T { return &v }

func newTestEngine(t *testing.T, cfg config.EngineConfig, opts ...Option) *Engine {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	e, err := New(cfg, cat, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestEngineScenarios(t *testing.T) {
	e := newTestEngine(t, config.DefaultEngineConfig())

	assert.Equal(t, "tomato", e.Normalize("2 cups fresh chopped tomatoes"))

	res, err := e.Convert(1, "cup", "ml", "")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.InDelta(t, 236.59, res.Value, 0.01)

	res, err = e.Convert(100, "ml", "g", "olive_oil")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.InDelta(t, 92.0, res.Value, 0.01)

	m := e.Match("Olive Oil", "evoo")
	assert.Equal(t, "olive_oil", m.CanonicalID)
	assert.Equal(t, 2, m.Tier)

	parsed := e.Parse("2 cups flour")
	require.NotNil(t, parsed.Quantity)
	assert.Equal(t, 2.0, *parsed.Quantity)
}

func TestEngineBundledCatalogMatches(t *testing.T) {
	e := newTestEngine(t, config.DefaultEngineConfig())

	// 內建目錄有 chicken_breast，單複數差異在正規化後直接命中 tier 1
	m := e.Match("chicken breast", "chicken breasts")
	assert.Equal(t, 1, m.Tier, m.DebugPath)
	assert.Equal(t, "chicken_breast", m.CanonicalID)
	assert.Equal(t, 1.0, m.Confidence)

	m = e.Match("onion", "red onion")
	assert.Equal(t, 3, m.Tier, m.DebugPath)
	assert.Equal(t, "onion", m.CanonicalID)

	cfg, err := config.DefaultEngineConfig().Merge(config.EngineOverride{StrictCanonical: ptr(true)})
	require.NoError(t, err)
	strict := newTestEngine(t, cfg)
	m = strict.Match("onion", "red onion")
	assert.Equal(t, 0, m.Tier, m.DebugPath)
	assert.Empty(t, m.CanonicalID)
}

func TestEngineConvertUnknownIngredient(t *testing.T) {
	e := newTestEngine(t, config.DefaultEngineConfig())

	_, err := e.Convert(1, "cup", "g", "unobtainium")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrUnknownIngredient))

	res, err := e.Convert(1, "cup", "g", "")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, unit.ReasonMissingIngredient, res.Reason)
}

func TestEngineRejectsInvalidConfig(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)

	_, err = config.DefaultEngineConfig().Merge(config.EngineOverride{MinConfidence: ptr(1.5)})
	require.Error(t, err)

	bad := config.DefaultEngineConfig()
	bad.Scoring.Workers = 0
	_, err = New(bad, cat)
	assert.True(t, errors.Is(err, common.ErrInvalidConfig))

	_, err = New(config.DefaultEngineConfig(), nil)
	assert.True(t, errors.Is(err, common.ErrCatalogInvalid))

	_, err = New(config.DefaultEngineConfig(), &catalog.Catalog{})
	assert.True(t, errors.Is(err, common.ErrCatalogInvalid))
}

func TestEngineScoreCache(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	e := newTestEngine(t, config.DefaultEngineConfig(), WithClock(func() time.Time { return now }))

	r := common.Recipe{ID: "r1", Ingredients: []common.RecipeIngredient{{RecipeText: "1 cup milk"}}}
	inv := []common.InventoryItem{{ID: "i1", Name: "milk", Quantity: 1, Unit: "l"}}

	first, hit := e.ScoreRecipeCached(context.Background(), r, inv)
	assert.False(t, hit)
	second, hit := e.ScoreRecipeCached(context.Background(), r, inv)
	assert.True(t, hit)
	assert.Equal(t, first, second)

	stats, ok := e.CacheStats()
	require.True(t, ok)
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, int64(1), stats.Hits)
}

func TestEngineCacheDisabled(t *testing.T) {
	cfg, err := config.DefaultEngineConfig().Merge(config.EngineOverride{CacheEnabled: ptr(false)})
	require.NoError(t, err)
	e := newTestEngine(t, cfg)

	r := common.Recipe{ID: "r1", Ingredients: []common.RecipeIngredient{{RecipeText: "salt"}}}
	e.ScoreRecipe(context.Background(), r, nil)
	_, hit := e.ScoreRecipeCached(context.Background(), r, nil)
	assert.False(t, hit)

	_, ok := e.CacheStats()
	assert.False(t, ok)
	e.StartCleanup(context.Background())
}

type recordingStore struct {
	sets int
}

func (s *recordingStore) Get(context.Context, string) (common.RecipeScore, bool, error) {
	return common.RecipeScore{}, false, nil
}

func (s *recordingStore) Set(context.Context, string, common.RecipeScore) error {
	s.sets++
	return nil
}

func TestEngineRemoteCache(t *testing.T) {
	store := &recordingStore{}
	e := newTestEngine(t, config.DefaultEngineConfig(), WithRemoteCache(store))

	r := common.Recipe{ID: "r1", Ingredients: []common.RecipeIngredient{{RecipeText: "salt"}}}
	e.ScoreRecipe(context.Background(), r, nil)
	assert.Equal(t, 1, store.sets)
}

func TestEngineShoppingFlow(t *testing.T) {
	e := newTestEngine(t, config.DefaultEngineConfig())

	r := common.Recipe{ID: "r1", Name: "Bread", Ingredients: []common.RecipeIngredient{{RecipeText: "2 cup flour"}}}
	needed := e.CalculateNeeded(r, []common.InventoryItem{{ID: "i", Name: "flour", Quantity: 1, Unit: "cup"}})
	merged := e.MergeIntoList(needed, nil)

	require.Len(t, merged.ToAdd, 1)
	assert.Equal(t, "Flour", merged.ToAdd[0].Name)
	assert.Equal(t, 1.0, merged.ToAdd[0].Quantity)
	assert.Equal(t, "cup", merged.ToAdd[0].Unit)
}
