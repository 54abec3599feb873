package recipe

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantry-matcher/internal/core/cache"
	"pantry-matcher/internal/core/catalog"
	"pantry-matcher/internal/core/ingredient"
	"pantry-matcher/internal/infrastructure/config"
	"pantry-matcher/internal/pkg/common"
)

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time { return c.t }

func newTestService(t *testing.T, clock *testClock) *Service {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)
	reg, err := ingredient.NewRegistry(c.Ingredients, ingredient.NewNormalizer(256))
	require.NoError(t, err)

	cfg := config.DefaultEngineConfig()
	matcher := ingredient.NewMatcher(reg, cfg.Matching)
	scores := cache.NewManager[common.RecipeScore]("score", cfg.Cache.MaxEntries, cfg.Cache.TTL, cache.WithClock(clock.now))
	return NewService(matcher, cfg, cache.NewTiered[common.RecipeScore](scores, nil), WithClock(clock.now))
}

func newClock() *testClock {
	return &testClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func lines(texts ...string) []common.RecipeIngredient {
	out := make([]common.RecipeIngredient, len(texts))
	for i, text := range texts {
		out[i] = common.RecipeIngredient{RecipeText: text}
	}
	return out
}

func TestScoreExpiringBonus(t *testing.T) {
	clock := newClock()
	svc := newTestService(t, clock)

	recipe := common.Recipe{
		ID:          "r1",
		Name:        "Custard",
		Category:    "quick",
		Ingredients: lines("1 cup milk", "2 eggs"),
	}
	inventory := []common.InventoryItem{
		{ID: "i1", Name: "Milk", Quantity: 2, Unit: "cups", ExpirationDate: "2024-03-02"},
	}

	score := svc.ScoreRecipe(context.Background(), recipe, inventory)

	assert.Equal(t, 50.0, score.MatchPercentage)
	require.Len(t, score.ExpiringIngredients, 1)
	assert.Equal(t, 10, score.ExpiringIngredients[0].Bonus)
	assert.Equal(t, 1, score.ExpiringIngredients[0].DaysUntilExpiry)
	assert.Equal(t, 10, score.ScoreBreakdown.ExpiringBonus)
	assert.Equal(t, 1.2, score.ScoreBreakdown.CategoryWeight)

	ew := score.ScoreBreakdown.ExpiringWeight
	cw := score.ScoreBreakdown.CategoryWeight
	assert.InDelta(t, 10*ew*cw, score.TotalScore-score.ScoreBreakdown.BaseMatch, 1e-6)

	require.Len(t, score.MatchedIngredients, 1)
	assert.Equal(t, "milk", score.MatchedIngredients[0].CanonicalID)
	require.Len(t, score.MissingIngredients, 1)
	assert.Equal(t, "not_found", score.MissingIngredients[0].Reason)
}

func TestExpiringBonusTiers(t *testing.T) {
	clock := newClock()
	svc := newTestService(t, clock)

	tests := []struct {
		expires string
		bonus   int
		ok      bool
	}{
		{"2024-03-01", 10, true},
		{"2024-03-02", 10, true},
		{"2024-03-03", 5, true},
		{"2024-03-04", 5, true},
		{"2024-03-06", 2, true},
		{"2024-03-08", 2, true},
		{"2024-03-09", 0, false},
		{"2024-02-29", 0, false},
		{"not a date", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.expires, func(t *testing.T) {
			exp, ok := svc.expiringBonus(common.InventoryItem{ID: "x", ExpirationDate: tt.expires}, clock.now())
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.bonus, exp.Bonus)
		})
	}
}

func TestScoreIsCapped(t *testing.T) {
	svc := newTestService(t, newClock())
	score := svc.ScoreRecipe(context.Background(), common.Recipe{
		ID:          "r",
		Category:    "quick",
		Ingredients: lines("1 cup milk"),
	}, []common.InventoryItem{
		{ID: "i1", Name: "milk", Quantity: 1, Unit: "cup", ExpirationDate: "2024-03-01"},
	})
	assert.Equal(t, 100.0, score.TotalScore)
	assert.Equal(t, 120.0, score.ScoreBreakdown.BaseMatch)
}

func TestScoreCacheDeterminism(t *testing.T) {
	clock := newClock()
	svc := newTestService(t, clock)
	ctx := context.Background()

	recipe := common.Recipe{ID: "r1", Ingredients: lines("2 cups flour", "1 tsp salt")}
	inventory := []common.InventoryItem{
		{ID: "b", Name: "salt", Quantity: 500, Unit: "g"},
		{ID: "a", Name: "all-purpose flour", Quantity: 1, Unit: "kg", ExpirationDate: "2024-03-05"},
	}

	first, hit := svc.ScoreRecipeCached(ctx, recipe, inventory)
	assert.False(t, hit)

	// 命中快取的結果與第一次完全相同，連計算時間都不變
	clock.t = clock.t.Add(time.Minute)
	second, hit := svc.ScoreRecipeCached(ctx, recipe, inventory)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Equal(t, first, svc.ScoreRecipe(ctx, recipe, inventory))

	// 順序不同但內容相同仍命中
	reordered := []common.InventoryItem{inventory[1], inventory[0]}
	_, hit = svc.ScoreRecipeCached(ctx, recipe, reordered)
	assert.True(t, hit)

	// 庫存變動後重新計算
	changed := append([]common.InventoryItem(nil), inventory...)
	changed[0].Quantity = 400
	_, hit = svc.ScoreRecipeCached(ctx, recipe, changed)
	assert.False(t, hit)

	// 過期後重新計算
	clock.t = clock.t.Add(10 * time.Minute)
	third, hit := svc.ScoreRecipeCached(ctx, recipe, inventory)
	assert.False(t, hit)
	assert.Equal(t, clock.t, third.ComputedAt)
}

func TestScoreCachedCopyIsIndependent(t *testing.T) {
	svc := newTestService(t, newClock())
	ctx := context.Background()
	recipe := common.Recipe{ID: "r1", Ingredients: lines("1 cup milk", "salt")}
	inventory := []common.InventoryItem{{ID: "i", Name: "milk", Quantity: 1, Unit: "l"}}

	first := svc.ScoreRecipe(ctx, recipe, inventory)
	require.NotEmpty(t, first.MatchedIngredients)
	first.MatchedIngredients[0].InventoryName = "mutated"

	second, hit := svc.ScoreRecipeCached(ctx, recipe, inventory)
	assert.True(t, hit)
	assert.NotEqual(t, "mutated", second.MatchedIngredients[0].InventoryName)
}

func TestScoreWithoutIDSkipsCache(t *testing.T) {
	svc := newTestService(t, newClock())
	recipe := common.Recipe{Ingredients: lines("salt")}
	inventory := []common.InventoryItem{{ID: "i", Name: "salt", Quantity: 1}}

	svc.ScoreRecipe(context.Background(), recipe, inventory)
	_, hit := svc.ScoreRecipeCached(context.Background(), recipe, inventory)
	assert.False(t, hit)
}

func TestScoreQuantitySufficiency(t *testing.T) {
	svc := newTestService(t, newClock())
	ctx := context.Background()

	tests := []struct {
		name    string
		line    string
		item    common.InventoryItem
		matched bool
		reason  string
	}{
		{"enough same unit", "2 cups flour", common.InventoryItem{ID: "i", Name: "flour", Quantity: 3, Unit: "cup"}, true, ""},
		{"not enough", "3 cups flour", common.InventoryItem{ID: "i", Name: "flour", Quantity: 1, Unit: "cup"}, false, "insufficient"},
		{"converted by density", "2 cups flour", common.InventoryItem{ID: "i", Name: "flour", Quantity: 500, Unit: "g"}, true, ""},
		{"converted without density", "1 cup milk", common.InventoryItem{ID: "i", Name: "milk", Quantity: 1, Unit: "l"}, true, ""},
		{"presence only", "salt", common.InventoryItem{ID: "i", Name: "salt", Quantity: 0.1, Unit: "g"}, true, ""},
		{"bare count against dozen", "2 eggs", common.InventoryItem{ID: "i", Name: "eggs", Quantity: 1, Unit: "dozen"}, true, ""},
		{"dozen against bare count", "1 dozen eggs", common.InventoryItem{ID: "i", Name: "egg", Quantity: 6}, false, "insufficient"},
		{"raw compare when unconvertible", "2 garlic", common.InventoryItem{ID: "i", Name: "garlic", Quantity: 3, Unit: "head"}, true, ""},
		{"canonical id on item", "1 cup flour", common.InventoryItem{ID: "i", Name: "the white stuff", Quantity: 5, Unit: "cup", CanonicalID: "flour"}, true, ""},
		{"unrelated", "1 cup flour", common.InventoryItem{ID: "i", Name: "salmon", Quantity: 5, Unit: "cup"}, false, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := svc.ScoreRecipe(ctx, common.Recipe{Ingredients: lines(tt.line)}, []common.InventoryItem{tt.item})
			if tt.matched {
				assert.Equal(t, 100.0, score.MatchPercentage)
				require.Len(t, score.MatchedIngredients, 1)
				assert.GreaterOrEqual(t, score.MatchedIngredients[0].Confidence, 0.6)
				return
			}
			assert.Equal(t, 0.0, score.MatchPercentage)
			require.Len(t, score.MissingIngredients, 1)
			assert.Equal(t, tt.reason, score.MissingIngredients[0].Reason)
		})
	}
}

func TestConvertQuantityBareCount(t *testing.T) {
	q, ok := convertQuantity(1, "dozen", "", nil)
	require.True(t, ok)
	assert.Equal(t, 12.0, q)

	q, ok = convertQuantity(24, "", "dozen", nil)
	require.True(t, ok)
	assert.Equal(t, 2.0, q)

	_, ok = convertQuantity(1, "", "cup", nil)
	assert.False(t, ok)
	_, ok = convertQuantity(1, "head", "", nil)
	assert.False(t, ok)
}

func TestScoreCanonicalIDCountsAsAlias(t *testing.T) {
	svc := newTestService(t, newClock())
	score := svc.ScoreRecipe(context.Background(), common.Recipe{Ingredients: lines("1 cup flour")}, []common.InventoryItem{
		{ID: "i", Name: "the white stuff", Quantity: 5, Unit: "cup", CanonicalID: "flour"},
	})
	require.Len(t, score.MatchedIngredients, 1)
	assert.Equal(t, common.MatchAlias, score.MatchedIngredients[0].Reason)
	assert.InDelta(t, 0.95, score.MatchedIngredients[0].Confidence, 1e-9)
}

func TestScoreFirstSufficientItemWins(t *testing.T) {
	svc := newTestService(t, newClock())
	score := svc.ScoreRecipe(context.Background(), common.Recipe{Ingredients: lines("2 cups flour")}, []common.InventoryItem{
		{ID: "small", Name: "flour", Quantity: 1, Unit: "cup"},
		{ID: "big", Name: "plain flour", Quantity: 4, Unit: "cup"},
		{ID: "bigger", Name: "flour", Quantity: 10, Unit: "cup"},
	})
	require.Len(t, score.MatchedIngredients, 1)
	assert.Equal(t, "big", score.MatchedIngredients[0].InventoryItemID)
}

func TestScoreOptionalIngredients(t *testing.T) {
	svc := newTestService(t, newClock())
	recipe := common.Recipe{Ingredients: []common.RecipeIngredient{
		{RecipeText: "1 cup flour"},
		{RecipeText: "1 tsp cinnamon", Optional: true},
	}}
	score := svc.ScoreRecipe(context.Background(), recipe, []common.InventoryItem{
		{ID: "i", Name: "flour", Quantity: 2, Unit: "cup"},
	})
	assert.Equal(t, 100.0, score.MatchPercentage)
	assert.Equal(t, 1, score.ScoreBreakdown.TotalCount)
	assert.Empty(t, score.MissingIngredients)
}

func TestScoreUsesPreParsedAndRequiredQuantity(t *testing.T) {
	svc := newTestService(t, newClock())
	qty := 5.0
	parsed := 1.0
	recipe := common.Recipe{Ingredients: []common.RecipeIngredient{{
		RecipeText:       "some sugar",
		Parsed:           &common.ParsedIngredient{Quantity: &parsed, Unit: "cup", Ingredient: "sugar"},
		RequiredQuantity: &qty,
		RequiredUnit:     "cup",
	}}}
	score := svc.ScoreRecipe(context.Background(), recipe, []common.InventoryItem{
		{ID: "i", Name: "sugar", Quantity: 2, Unit: "cup"},
	})
	require.Len(t, score.MissingIngredients, 1)
	assert.Equal(t, "insufficient", score.MissingIngredients[0].Reason)
	assert.Equal(t, "sugar", score.MissingIngredients[0].Ingredient)
}

func TestScoreRecipesSortedAndCancellable(t *testing.T) {
	svc := newTestService(t, newClock())
	recipes := []common.Recipe{
		{ID: "none", Ingredients: lines("1 cup rice")},
		{ID: "half", Ingredients: lines("1 cup flour", "1 cup rice")},
		{ID: "all", Ingredients: lines("1 cup flour")},
	}
	inventory := []common.InventoryItem{{ID: "i", Name: "flour", Quantity: 2, Unit: "cup"}}

	scores, err := svc.ScoreRecipes(context.Background(), recipes, inventory)
	require.NoError(t, err)
	require.Len(t, scores, 3)
	assert.Equal(t, []string{"all", "half", "none"}, []string{scores[0].RecipeID, scores[1].RecipeID, scores[2].RecipeID})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.ScoreRecipes(ctx, recipes, inventory)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFingerprint(t *testing.T) {
	a := []common.InventoryItem{
		{ID: "1", Name: "milk", Quantity: 1, Unit: "l"},
		{ID: "2", Name: "egg", Quantity: 6, ExpirationDate: "2024-03-10"},
	}
	b := []common.InventoryItem{a[1], a[0]}
	assert.Equal(t, Fingerprint(a), Fingerprint(b))

	c := append([]common.InventoryItem(nil), a...)
	c[1].ExpirationDate = "2024-03-11"
	assert.NotEqual(t, Fingerprint(a), Fingerprint(c))

	d := append([]common.InventoryItem(nil), a...)
	d[0].CanonicalID = "milk"
	assert.NotEqual(t, Fingerprint(a), Fingerprint(d))

	assert.NotEmpty(t, Fingerprint(nil))
}
