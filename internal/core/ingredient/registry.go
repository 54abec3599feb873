package ingredient

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"pantry-matcher/internal/pkg/common"
)

// Registry 標準食材索引，建立後唯讀，可安全並行讀取
type Registry struct {
	norm        *Normalizer
	ingredients []common.CanonicalIngredient
	index       map[string]int      // id -> ingredients 位置
	aliases     map[string]string   // 正規化別名 -> id
	primary     map[string]string   // 正規化 id 與顯示名稱 -> id
	byCategory  map[string][]string // 分類 -> id，依目錄順序
	categories  []string
	names       map[string][]string // id -> 去重後的正規化名稱，供模糊比對
}

// NewRegistry 由目錄建立索引；目錄不合法時回傳 ErrCatalogInvalid
func NewRegistry(items []common.CanonicalIngredient, norm *Normalizer) (*Registry, error) {
	if len(items) == 0 {
		return nil, common.Wrap(common.ErrCatalogInvalid, fmt.Errorf("catalog has no ingredients"))
	}
	if norm == nil {
		norm = NewNormalizer(0)
	}

	r := &Registry{
		norm:        norm,
		ingredients: make([]common.CanonicalIngredient, 0, len(items)),
		index:       make(map[string]int, len(items)),
		aliases:     make(map[string]string, len(items)*4),
		primary:     make(map[string]string, len(items)*2),
		byCategory:  make(map[string][]string),
		names:       make(map[string][]string, len(items)),
	}

	for i, item := range items {
		// 驗證欄位
		item.ID = strings.TrimSpace(item.ID)
		item.DisplayName = strings.TrimSpace(item.DisplayName)
		item.Category = strings.ToLower(strings.TrimSpace(item.Category))
		if item.ID == "" {
			return nil, common.Wrap(common.ErrCatalogInvalid, fmt.Errorf("ingredient #%d has no id", i))
		}
		if item.DisplayName == "" {
			return nil, common.Wrap(common.ErrCatalogInvalid, fmt.Errorf("ingredient %q has no display name", item.ID))
		}
		if _, dup := r.index[item.ID]; dup {
			return nil, common.Wrap(common.ErrCatalogInvalid, fmt.Errorf("duplicate ingredient id %q", item.ID))
		}
		if item.Density != nil && *item.Density <= 0 {
			return nil, common.Wrap(common.ErrCatalogInvalid, fmt.Errorf("ingredient %q has non-positive density", item.ID))
		}

		r.index[item.ID] = len(r.ingredients)
		r.ingredients = append(r.ingredients, item)

		if item.Category != "" {
			if _, seen := r.byCategory[item.Category]; !seen {
				r.categories = append(r.categories, item.Category)
			}
			r.byCategory[item.Category] = append(r.byCategory[item.Category], item.ID)
		}

		// 建立別名索引
		seen := make(map[string]bool)
		add := func(text string, primary bool) {
			key := norm.Normalize(text)
			if key == "" {
				return
			}
			if primary {
				r.primary[key] = item.ID
			}
			if prev, exists := r.aliases[key]; exists && prev != item.ID {
				common.LogWarn("食材別名衝突，以後者為準",
					zap.String("alias", key),
					zap.String("previous", prev),
					zap.String("id", item.ID),
				)
			}
			r.aliases[key] = item.ID
			if !seen[key] {
				seen[key] = true
				r.names[item.ID] = append(r.names[item.ID], key)
			}
		}
		add(item.ID, true)
		add(item.DisplayName, true)
		for _, alias := range item.Aliases {
			add(alias, false)
		}
	}

	return r, nil
}

// Normalizer 取得註冊表使用的正規化器
func (r *Registry) Normalizer() *Normalizer {
	return r.norm
}

// LookupByAlias 以正規化文字查詢 id
func (r *Registry) LookupByAlias(normalized string) (string, bool) {
	id, ok := r.aliases[normalized]
	return id, ok
}

// LookupPrimary 僅比對 id 與顯示名稱
func (r *Registry) LookupPrimary(normalized string) (string, bool) {
	id, ok := r.primary[normalized]
	return id, ok
}

// ByID 依 id 取得食材
func (r *Registry) ByID(id string) (*common.CanonicalIngredient, bool) {
	i, ok := r.index[id]
	if !ok {
		return nil, false
	}
	ing := r.ingredients[i]
	return &ing, true
}

// IDsInCategory 分類內的 id，依目錄順序
func (r *Registry) IDsInCategory(category string) []string {
	ids := r.byCategory[strings.ToLower(category)]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// IDs 所有 id，依目錄順序
func (r *Registry) IDs() []string {
	out := make([]string, len(r.ingredients))
	for i, ing := range r.ingredients {
		out[i] = ing.ID
	}
	return out
}

// Categories 所有分類，依首次出現順序
func (r *Registry) Categories() []string {
	out := make([]string, len(r.categories))
	copy(out, r.categories)
	return out
}

// Len 食材數量
func (r *Registry) Len() int {
	return len(r.ingredients)
}

// Names 食材的正規化名稱（id、顯示名稱、別名）
func (r *Registry) Names(id string) []string {
	return r.names[id]
}

// CategoryOf 推測正規化文字的分類：先整串比對，再依序試相鄰兩字與單字
func (r *Registry) CategoryOf(normalized string) string {
	if normalized == "" {
		return ""
	}
	if id, ok := r.aliases[normalized]; ok {
		return r.ingredients[r.index[id]].Category
	}

	words := strings.Fields(normalized)
	for i := 0; i+1 < len(words); i++ {
		if id, ok := r.aliases[words[i]+" "+words[i+1]]; ok {
			return r.ingredients[r.index[id]].Category
		}
	}
	// 名詞通常在最後，從尾端開始找
	for i := len(words) - 1; i >= 0; i-- {
		if id, ok := r.aliases[words[i]]; ok {
			return r.ingredients[r.index[id]].Category
		}
	}
	return ""
}
