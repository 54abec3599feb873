package recipe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pantry-matcher/internal/core/ingredient"
	"pantry-matcher/internal/core/unit"
	"pantry-matcher/internal/infrastructure/config"
	"pantry-matcher/internal/pkg/common"
)

// Service 食譜評分與購物清單服務
type Service struct {
	matcher *ingredient.Matcher
	reg     *ingredient.Registry
	cfg     config.EngineConfig
	cache   ScoreCache
	now     func() time.Time
}

// NewService 創建新的食譜服務，cache 為 nil 時不快取分數
func NewService(matcher *ingredient.Matcher, cfg config.EngineConfig, cache ScoreCache, opts ...Option) *Service {
	s := &Service{
		matcher: matcher,
		reg:     matcher.Registry(),
		cfg:     cfg,
		cache:   cache,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Matcher 取得服務使用的比對器
func (s *Service) Matcher() *ingredient.Matcher {
	return s.matcher
}

// getCacheKey 生成緩存鍵
func (s *Service) getCacheKey(recipeID, fingerprint string) string {
	return fmt.Sprintf("%s:%s", recipeID, fingerprint)
}

// getFromCache 從緩存獲取分數
func (s *Service) getFromCache(ctx context.Context, key string) (common.RecipeScore, bool) {
	if s.cache == nil {
		return common.RecipeScore{}, false
	}
	return s.cache.Get(ctx, key)
}

// setToCache 將分數存入緩存
func (s *Service) setToCache(ctx context.Context, key string, score common.RecipeScore) {
	if s.cache == nil {
		return
	}
	s.cache.Set(ctx, key, score)
}

// line 食譜行的解析結果
type line struct {
	text     string
	name     string
	quantity *float64
	unit     string
	optional bool
	resolved string
}

// readLine 取得食材名稱與需求數量，缺少預解析結果時現場解析
func (s *Service) readLine(ri common.RecipeIngredient) line {
	parsed := ri.Parsed
	if parsed == nil || parsed.Ingredient == "" {
		p := ingredient.ParseLine(ri.RecipeText)
		if parsed != nil && parsed.Quantity != nil {
			p.Quantity, p.Unit = parsed.Quantity, parsed.Unit
		}
		parsed = &p
	}

	ri.Parsed = parsed
	l := line{
		text:     ri.RecipeText,
		name:     parsed.Ingredient,
		optional: ri.Optional,
	}
	l.quantity, l.unit = ri.Requirement()

	if res := s.matcher.Resolve(l.name); res.Confidence >= s.cfg.Matching.MinConfidence {
		l.resolved = res.CanonicalID
	}
	return l
}

// itemConfidence 食譜行與庫存品項的比對信心，標準 id 相同視為別名層級
func (s *Service) itemConfidence(l line, item common.InventoryItem) (float64, common.MatchReason, string) {
	res := s.matcher.Match(l.name, item.Name)
	conf, reason, id := res.Confidence, res.Reason, res.CanonicalID

	if l.resolved != "" && item.CanonicalID == l.resolved {
		if alias := s.matcher.AliasConfidence(); alias > conf {
			conf, reason, id = alias, common.MatchAlias, l.resolved
		}
	}
	if id == "" {
		id = l.resolved
	}
	return conf, reason, id
}

// ingredientFor 取得轉換用的標準食材資料
func (s *Service) ingredientFor(ids ...string) *common.CanonicalIngredient {
	for _, id := range ids {
		if id == "" {
			continue
		}
		if ing, ok := s.reg.ByID(id); ok {
			return ing
		}
	}
	return nil
}

// convertQuantity 將數量換算到目標單位，無法換算時回傳 false
func convertQuantity(q float64, from, to string, ing *common.CanonicalIngredient) (float64, bool) {
	from, to = countDefault(from, to), countDefault(to, from)
	cf, ct := unit.Canonical(from), unit.Canonical(to)
	if (cf != "" && cf == ct) || strings.EqualFold(strings.TrimSpace(from), strings.TrimSpace(to)) {
		return q, true
	}
	res := unit.Convert(q, from, to, ing)
	if !res.Success {
		return 0, false
	}
	return res.Value, true
}

// countDefault 沒有單位的數量 ("2 eggs") 在對方是計數單位時視為 each
func countDefault(u, other string) string {
	if strings.TrimSpace(u) != "" {
		return u
	}
	if def, ok := unit.Lookup(other); ok && def.Type == unit.Count {
		return "each"
	}
	return u
}
