package ingredient

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantry-matcher/internal/pkg/common"
)

func floatPtr(v float64) *float64 { return &v }

// testCatalog 刻意不含 chicken breast，用來驗證單複數走子字串層級
func testCatalog() []common.CanonicalIngredient {
	return []common.CanonicalIngredient{
		{ID: "tomato", DisplayName: "Tomato", Aliases: []string{"roma tomato", "cherry tomatoes"}, Category: "produce"},
		{ID: "onion", DisplayName: "Onion", Aliases: []string{"yellow onion"}, Category: "produce"},
		{ID: "garlic", DisplayName: "Garlic", Category: "produce"},
		{ID: "milk", DisplayName: "Milk", Aliases: []string{"2% milk"}, Category: "dairy", Density: floatPtr(1.03), SafeConversions: true},
		{ID: "cheddar", DisplayName: "Cheddar Cheese", Aliases: []string{"cheddar", "sharp cheddar"}, Category: "dairy"},
		{ID: "parmesan", DisplayName: "Parmesan", Aliases: []string{"parmigiano reggiano"}, Category: "dairy"},
		{ID: "olive_oil", DisplayName: "Olive Oil", Aliases: []string{"extra virgin olive oil"}, Category: "oils", Density: floatPtr(0.92), SafeConversions: true},
		{ID: "flour", DisplayName: "Flour", Aliases: []string{"all-purpose flour", "plain flour"}, Category: "baking", Density: floatPtr(0.53), SafeConversions: true},
		{ID: "chicken_thigh", DisplayName: "Chicken Thigh", Category: "meat"},
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := NewRegistry(testCatalog(), NewNormalizer(64))
	require.NoError(t, err)
	return reg
}

func TestRegistryLookups(t *testing.T) {
	reg := newTestRegistry(t)

	assert.Equal(t, 9, reg.Len())
	assert.Equal(t, []string{"produce", "dairy", "oils", "baking", "meat"}, reg.Categories())
	assert.Equal(t, []string{"tomato", "onion", "garlic"}, reg.IDsInCategory("Produce"))

	id, ok := reg.LookupByAlias("virgin olive oil")
	require.True(t, ok)
	assert.Equal(t, "olive_oil", id)

	id, ok = reg.LookupByAlias("chicken thigh")
	require.True(t, ok)
	assert.Equal(t, "chicken_thigh", id)

	_, ok = reg.LookupPrimary("sharp cheddar")
	assert.False(t, ok)

	ing, ok := reg.ByID("flour")
	require.True(t, ok)
	assert.Equal(t, "Flour", ing.DisplayName)
	assert.True(t, ing.HasDensity())

	_, ok = reg.ByID("unicorn")
	assert.False(t, ok)
}

func TestRegistryCategoryOf(t *testing.T) {
	reg := newTestRegistry(t)
	assert.Equal(t, "dairy", reg.CategoryOf("sharp cheddar"))
	assert.Equal(t, "dairy", reg.CategoryOf("cheddar chese"))
	assert.Equal(t, "produce", reg.CategoryOf("heirloom tomato"))
	assert.Equal(t, "oils", reg.CategoryOf("olive oil spray"))
	assert.Equal(t, "", reg.CategoryOf("parmesean"))
	assert.Equal(t, "", reg.CategoryOf(""))
}

func TestRegistryAliasCollisionLastWriteWins(t *testing.T) {
	items := []common.CanonicalIngredient{
		{ID: "scallion", DisplayName: "Scallion", Aliases: []string{"green onion"}, Category: "produce"},
		{ID: "spring_onion", DisplayName: "Spring Onion", Aliases: []string{"green onions"}, Category: "produce"},
	}
	reg, err := NewRegistry(items, nil)
	require.NoError(t, err)

	id, ok := reg.LookupByAlias("green onion")
	require.True(t, ok)
	assert.Equal(t, "spring_onion", id)
}

func TestRegistryRejectsInvalidCatalog(t *testing.T) {
	tests := []struct {
		name  string
		items []common.CanonicalIngredient
	}{
		{"empty", nil},
		{"missing id", []common.CanonicalIngredient{{DisplayName: "Salt"}}},
		{"missing display name", []common.CanonicalIngredient{{ID: "salt"}}},
		{"duplicate id", []common.CanonicalIngredient{{ID: "salt", DisplayName: "Salt"}, {ID: "salt", DisplayName: "Sea Salt"}}},
		{"negative density", []common.CanonicalIngredient{{ID: "salt", DisplayName: "Salt", Density: floatPtr(-1)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.items, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrCatalogInvalid))
		})
	}
}
