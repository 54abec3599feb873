// Package engine 將正規化、註冊表、比對、換算與評分組合成單一入口
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pantry-matcher/internal/core/cache"
	"pantry-matcher/internal/core/catalog"
	"pantry-matcher/internal/core/ingredient"
	"pantry-matcher/internal/core/recipe"
	"pantry-matcher/internal/core/unit"
	"pantry-matcher/internal/infrastructure/config"
	"pantry-matcher/internal/pkg/common"
)

// Engine 食材比對引擎
type Engine struct {
	cfg      config.EngineConfig
	version  string
	norm     *ingredient.Normalizer
	registry *ingredient.Registry
	matcher  *ingredient.Matcher
	recipes  *recipe.Service
	scores   *cache.Manager[common.RecipeScore]
}

// Option 引擎選項
type Option func(*options)

type options struct {
	now    func() time.Time
	remote cache.Store[common.RecipeScore]
}

// WithClock 指定時鐘
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithRemoteCache 加入共用的遠端分數快取
func WithRemoteCache(store cache.Store[common.RecipeScore]) Option {
	return func(o *options) { o.remote = store }
}

// New 依設定與目錄建立引擎
func New(cfg config.EngineConfig, cat *catalog.Catalog, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, common.Wrap(common.ErrInvalidConfig, err)
	}
	if cat == nil {
		return nil, common.Wrap(common.ErrCatalogInvalid, fmt.Errorf("catalog is nil"))
	}

	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	norm := ingredient.NewNormalizer(cfg.Matching.MemoSize)
	reg, err := ingredient.NewRegistry(cat.Ingredients, norm)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		version:  cat.Version,
		norm:     norm,
		registry: reg,
		matcher:  ingredient.NewMatcher(reg, cfg.Matching),
	}

	var scoreCache recipe.ScoreCache
	if cfg.Cache.Enabled {
		e.scores = cache.NewManager[common.RecipeScore]("recipe_score", cfg.Cache.MaxEntries, cfg.Cache.TTL, cache.WithClock(o.now))
		scoreCache = cache.NewTiered[common.RecipeScore](e.scores, o.remote)
	}
	e.recipes = recipe.NewService(e.matcher, cfg, scoreCache, recipe.WithClock(o.now))

	common.LogInfo("比對引擎已初始化",
		zap.String("catalog_version", cat.Version),
		zap.Int("ingredients", reg.Len()),
		zap.Bool("score_cache", cfg.Cache.Enabled),
		zap.Bool("remote_cache", o.remote != nil),
	)
	return e, nil
}

// Config 引擎設定
func (e *Engine) Config() config.EngineConfig {
	return e.cfg
}

// CatalogVersion 目錄版本
func (e *Engine) CatalogVersion() string {
	return e.version
}

// Registry 標準食材註冊表
func (e *Engine) Registry() *ingredient.Registry {
	return e.registry
}

// Normalize 正規化食材文字
func (e *Engine) Normalize(text string) string {
	return e.norm.Normalize(text)
}

// Parse 解析食材行
func (e *Engine) Parse(text string) common.ParsedIngredient {
	return ingredient.ParseLine(text)
}

// Match 比對兩段食材文字
func (e *Engine) Match(a, b string) common.MatchResult {
	return e.matcher.Match(a, b)
}

// Resolve 對應到標準食材
func (e *Engine) Resolve(text string) common.MatchResult {
	return e.matcher.Resolve(text)
}

// Ingredient 依 id 取得標準食材
func (e *Engine) Ingredient(id string) (*common.CanonicalIngredient, error) {
	ing, ok := e.registry.ByID(id)
	if !ok {
		return nil, common.Wrap(common.ErrUnknownIngredient, fmt.Errorf("ingredient %q", id))
	}
	return ing, nil
}

// Convert 單位換算，ingredientID 為空時不使用密度
func (e *Engine) Convert(quantity float64, from, to, ingredientID string) (unit.Result, error) {
	var ing *common.CanonicalIngredient
	if ingredientID != "" {
		var err error
		if ing, err = e.Ingredient(ingredientID); err != nil {
			return unit.Result{}, err
		}
	}
	return unit.Convert(quantity, from, to, ing), nil
}

// ScoreRecipe 計算食譜分數
func (e *Engine) ScoreRecipe(ctx context.Context, r common.Recipe, inventory []common.InventoryItem) common.RecipeScore {
	return e.recipes.ScoreRecipe(ctx, r, inventory)
}

// ScoreRecipeCached 計算食譜分數並回報是否命中快取
func (e *Engine) ScoreRecipeCached(ctx context.Context, r common.Recipe, inventory []common.InventoryItem) (common.RecipeScore, bool) {
	return e.recipes.ScoreRecipeCached(ctx, r, inventory)
}

// ScoreRecipes 批次計算並排序
func (e *Engine) ScoreRecipes(ctx context.Context, recipes []common.Recipe, inventory []common.InventoryItem) ([]common.RecipeScore, error) {
	return e.recipes.ScoreRecipes(ctx, recipes, inventory)
}

// CalculateNeeded 計算採購缺口
func (e *Engine) CalculateNeeded(r common.Recipe, inventory []common.InventoryItem) []common.NeededIngredient {
	return e.recipes.CalculateNeeded(r, inventory)
}

// MergeIntoList 合併進購物清單
func (e *Engine) MergeIntoList(needed []common.NeededIngredient, existing []common.ShoppingListItem) common.MergeResult {
	return e.recipes.MergeIntoList(needed, existing)
}

// CacheStats 分數快取統計，停用時回傳 false
func (e *Engine) CacheStats() (cache.Stats, bool) {
	if e.scores == nil {
		return cache.Stats{}, false
	}
	return e.scores.GetStats(), true
}

// StartCleanup 啟動分數快取的定期清理
func (e *Engine) StartCleanup(ctx context.Context) {
	if e.scores == nil {
		return
	}
	e.scores.StartCleanup(ctx, e.cfg.Cache.CleanupInterval)
}

// Close 釋放快取
func (e *Engine) Close() error {
	if e.scores == nil {
		return nil
	}
	return e.scores.Close()
}
