package common

import (
	"fmt"
	"strings"
	"time"
)

// CanonicalIngredient 標準食材
type CanonicalIngredient struct {
	ID              string   `json:"id" yaml:"id"`
	DisplayName     string   `json:"display_name" yaml:"display_name"`
	Aliases         []string `json:"aliases,omitempty" yaml:"aliases"`
	Category        string   `json:"category" yaml:"category"`
	Density         *float64 `json:"density,omitempty" yaml:"density"` // g/ml
	SafeConversions bool     `json:"safe_conversions" yaml:"safe_conversions"`
}

// HasDensity 是否可做體積與重量互換
func (c *CanonicalIngredient) HasDensity() bool {
	return c != nil && c.Density != nil && *c.Density > 0
}

// MatchReason 比對依據
type MatchReason string

const (
	MatchExact     MatchReason = "exact"
	MatchAlias     MatchReason = "alias"
	MatchSubstring MatchReason = "substring"
	MatchCategory  MatchReason = "category"
	MatchFuzzy     MatchReason = "fuzzy"
	MatchNone      MatchReason = "none"
)

// MatchResult 比對結果
type MatchResult struct {
	CanonicalID string      `json:"canonical_id,omitempty"`
	Confidence  float64     `json:"confidence"`
	Reason      MatchReason `json:"match_reason"`
	Tier        int         `json:"tier"`
	DebugPath   []string    `json:"debug_path,omitempty"`
}

// Matched 是否有任何層級命中
func (r MatchResult) Matched() bool {
	return r.Confidence > 0
}

// ParsedIngredient 解析後的食材行
type ParsedIngredient struct {
	Quantity    *float64 `json:"quantity"`
	Unit        string   `json:"unit"`
	Ingredient  string   `json:"ingredient"`
	Preparation string   `json:"preparation,omitempty"`
	Confidence  float64  `json:"confidence"`
}

// RecipeIngredient 食譜中的一行食材
type RecipeIngredient struct {
	RecipeText       string            `json:"recipe_text"`
	Parsed           *ParsedIngredient `json:"parsed,omitempty"`
	RequiredQuantity *float64          `json:"required_quantity,omitempty"`
	RequiredUnit     string            `json:"required_unit,omitempty"`
	Optional         bool              `json:"optional,omitempty"`
}

// Requirement 取得需求數量，RequiredQuantity 優先，其次是解析結果
func (ri RecipeIngredient) Requirement() (*float64, string) {
	if ri.RequiredQuantity != nil {
		return ri.RequiredQuantity, ri.RequiredUnit
	}
	if ri.Parsed != nil && ri.Parsed.Quantity != nil {
		return ri.Parsed.Quantity, ri.Parsed.Unit
	}
	return nil, ""
}

// Recipe 食譜
type Recipe struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Category    string             `json:"category,omitempty"`
	Ingredients []RecipeIngredient `json:"ingredients"`
}

// InventoryItem 庫存品項
type InventoryItem struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Quantity       float64 `json:"quantity"`
	Unit           string  `json:"unit"`
	CanonicalID    string  `json:"canonical_id,omitempty"`
	ExpirationDate string  `json:"expiration_date,omitempty"` // ISO 日期
}

// Expiration 解析到期日，格式錯誤時回傳 false
func (i InventoryItem) Expiration() (time.Time, bool) {
	raw := strings.TrimSpace(i.ExpirationDate)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// MatchedIngredient 已在庫存找到的食材
type MatchedIngredient struct {
	RecipeText      string      `json:"recipe_text"`
	InventoryItemID string      `json:"inventory_item_id"`
	InventoryName   string      `json:"inventory_name"`
	CanonicalID     string      `json:"canonical_id,omitempty"`
	Confidence      float64     `json:"confidence"`
	Reason          MatchReason `json:"match_reason"`
	NeedsReview     bool        `json:"needs_review,omitempty"`
}

// MissingIngredient 缺少的食材
type MissingIngredient struct {
	RecipeText string   `json:"recipe_text"`
	Ingredient string   `json:"ingredient"`
	Quantity   *float64 `json:"quantity,omitempty"`
	Unit       string   `json:"unit,omitempty"`
	Reason     string   `json:"reason"` // not_found | insufficient
}

// ExpiringIngredient 即將到期且被食譜使用的庫存
type ExpiringIngredient struct {
	InventoryItemID string `json:"inventory_item_id"`
	Name            string `json:"name"`
	DaysUntilExpiry int    `json:"days_until_expiry"`
	Bonus           int    `json:"bonus"`
}

// ScoreBreakdown 分數明細
type ScoreBreakdown struct {
	BaseMatch      float64 `json:"base_match"`
	ExpiringBonus  int     `json:"expiring_bonus"`
	ExpiringWeight float64 `json:"expiring_weight"`
	CategoryWeight float64 `json:"category_weight"`
	MatchedCount   int     `json:"matched_count"`
	TotalCount     int     `json:"total_count"`
}

// RecipeScore 食譜與庫存的比對分數
type RecipeScore struct {
	RecipeID            string               `json:"recipe_id"`
	RecipeName          string               `json:"recipe_name,omitempty"`
	TotalScore          float64              `json:"total_score"`
	MatchPercentage     float64              `json:"match_percentage"`
	MatchedIngredients  []MatchedIngredient  `json:"matched_ingredients"`
	MissingIngredients  []MissingIngredient  `json:"missing_ingredients"`
	ExpiringIngredients []ExpiringIngredient `json:"expiring_ingredients"`
	ScoreBreakdown      ScoreBreakdown       `json:"score_breakdown"`
	ComputedAt          time.Time            `json:"computed_at"`
}

// NeededIngredient 需要採購的食材
type NeededIngredient struct {
	Name        string  `json:"name"`
	CanonicalID string  `json:"canonical_id,omitempty"`
	Category    string  `json:"category,omitempty"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	RecipeID    string  `json:"recipe_id,omitempty"`
	RecipeName  string  `json:"recipe_name,omitempty"`
	RecipeText  string  `json:"recipe_text,omitempty"`
}

// ShoppingListItem 購物清單項目
type ShoppingListItem struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	CanonicalID string   `json:"canonical_id,omitempty"`
	Category    string   `json:"category,omitempty"`
	Quantity    float64  `json:"quantity"`
	Unit        string   `json:"unit"`
	Notes       []string `json:"notes,omitempty"`
	Checked     bool     `json:"checked,omitempty"`
}

// MergeResult 合併購物清單的結果
type MergeResult struct {
	ToAdd    []ShoppingListItem `json:"items_to_add"`
	ToUpdate []ShoppingListItem `json:"items_to_update"`
}

// FormatQuantity 格式化數量與單位
func FormatQuantity(quantity float64, unit string) string {
	q := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", quantity), "0"), ".")
	if unit == "" {
		return q
	}
	return q + " " + unit
}

// TitleCase 將食材名稱轉為首字大寫
func TitleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
