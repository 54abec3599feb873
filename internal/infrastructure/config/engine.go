package config

import (
	"fmt"
	"math"
	"time"
)

// MatchingConfig 食材比對參數
type MatchingConfig struct {
	MinConfidence       float64 `mapstructure:"min_confidence" json:"min_confidence"`
	AliasPenalty        float64 `mapstructure:"alias_penalty" json:"alias_penalty"`
	CategoryBonus       float64 `mapstructure:"category_bonus" json:"category_bonus"`
	FuzzyThreshold      float64 `mapstructure:"fuzzy_threshold" json:"fuzzy_threshold"`
	ShoppingConfidence  float64 `mapstructure:"shopping_confidence" json:"shopping_confidence"`
	ListMergeConfidence float64 `mapstructure:"list_merge_confidence" json:"list_merge_confidence"`
	MemoSize            int     `mapstructure:"memo_size" json:"memo_size"`
	StrictCanonical     bool    `mapstructure:"strict_canonical" json:"strict_canonical"` // 兩邊為不同標準食材時直接判定不符
}

// ScoringConfig 食譜評分參數
type ScoringConfig struct {
	ExpiringWeight     float64            `mapstructure:"expiring_weight" json:"expiring_weight"`
	CategoryWeights    map[string]float64 `mapstructure:"category_weights" json:"category_weights"`
	ExpiringWindowDays int                `mapstructure:"expiring_window_days" json:"expiring_window_days"`
	Workers            int                `mapstructure:"workers" json:"workers"`
}

// CacheConfig 分數緩存參數
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled" json:"enabled"`
	TTL             time.Duration `mapstructure:"ttl" json:"ttl"`
	MaxEntries      int           `mapstructure:"max_entries" json:"max_entries"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" json:"cleanup_interval"`
}

// EngineConfig 比對引擎的完整設定
type EngineConfig struct {
	Matching MatchingConfig `mapstructure:"matching" json:"matching"`
	Scoring  ScoringConfig  `mapstructure:"scoring" json:"scoring"`
	Cache    CacheConfig    `mapstructure:"cache" json:"cache"`
}

// DefaultEngineConfig 預設引擎設定
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Matching: MatchingConfig{
			MinConfidence:       0.60,
			AliasPenalty:        0.05,
			CategoryBonus:       0.05,
			FuzzyThreshold:      0.60,
			ShoppingConfidence:  0.85,
			ListMergeConfidence: 0.90,
			MemoSize:            1000,
		},
		Scoring: ScoringConfig{
			ExpiringWeight:     1.0,
			CategoryWeights:    map[string]float64{"quick": 1.2},
			ExpiringWindowDays: 7,
			Workers:            4,
		},
		Cache: CacheConfig{
			Enabled:         true,
			TTL:             5 * time.Minute,
			MaxEntries:      100,
			CleanupInterval: time.Minute,
		},
	}
}

// EngineOverride 部分覆寫；nil 欄位沿用原值
type EngineOverride struct {
	MinConfidence       *float64
	AliasPenalty        *float64
	CategoryBonus       *float64
	FuzzyThreshold      *float64
	ShoppingConfidence  *float64
	ListMergeConfidence *float64
	MemoSize            *int
	StrictCanonical     *bool

	ExpiringWeight     *float64
	CategoryWeights    map[string]float64 // 逐項覆寫
	ExpiringWindowDays *int
	Workers            *int

	CacheEnabled    *bool
	CacheTTL        *time.Duration
	CacheMaxEntries *int
	CleanupInterval *time.Duration
}

// Merge 套用覆寫並驗證結果
func (c EngineConfig) Merge(o EngineOverride) (EngineConfig, error) {
	out := c
	setFloat(&out.Matching.MinConfidence, o.MinConfidence)
	setFloat(&out.Matching.AliasPenalty, o.AliasPenalty)
	setFloat(&out.Matching.CategoryBonus, o.CategoryBonus)
	setFloat(&out.Matching.FuzzyThreshold, o.FuzzyThreshold)
	setFloat(&out.Matching.ShoppingConfidence, o.ShoppingConfidence)
	setFloat(&out.Matching.ListMergeConfidence, o.ListMergeConfidence)
	setInt(&out.Matching.MemoSize, o.MemoSize)
	if o.StrictCanonical != nil {
		out.Matching.StrictCanonical = *o.StrictCanonical
	}

	setFloat(&out.Scoring.ExpiringWeight, o.ExpiringWeight)
	setInt(&out.Scoring.ExpiringWindowDays, o.ExpiringWindowDays)
	setInt(&out.Scoring.Workers, o.Workers)

	// map 需複製，避免與原設定共用
	weights := make(map[string]float64, len(c.Scoring.CategoryWeights)+len(o.CategoryWeights))
	for k, v := range c.Scoring.CategoryWeights {
		weights[k] = v
	}
	for k, v := range o.CategoryWeights {
		weights[k] = v
	}
	out.Scoring.CategoryWeights = weights

	if o.CacheEnabled != nil {
		out.Cache.Enabled = *o.CacheEnabled
	}
	if o.CacheTTL != nil {
		out.Cache.TTL = *o.CacheTTL
	}
	setInt(&out.Cache.MaxEntries, o.CacheMaxEntries)
	if o.CleanupInterval != nil {
		out.Cache.CleanupInterval = *o.CleanupInterval
	}

	if err := out.Validate(); err != nil {
		return EngineConfig{}, err
	}
	return out, nil
}

// Validate 驗證引擎設定
func (c EngineConfig) Validate() error {
	m := c.Matching
	for name, v := range map[string]float64{
		"matching.min_confidence":        m.MinConfidence,
		"matching.fuzzy_threshold":       m.FuzzyThreshold,
		"matching.shopping_confidence":   m.ShoppingConfidence,
		"matching.list_merge_confidence": m.ListMergeConfidence,
	} {
		if !inUnit(v) || v == 0 {
			return fmt.Errorf("%s must be in (0, 1], got %v", name, v)
		}
	}
	if m.AliasPenalty <= 0 || m.AliasPenalty >= 0.25 {
		return fmt.Errorf("matching.alias_penalty must be in (0, 0.25), got %v", m.AliasPenalty)
	}
	if m.CategoryBonus < 0 || math.IsNaN(m.CategoryBonus) {
		return fmt.Errorf("matching.category_bonus must be >= 0, got %v", m.CategoryBonus)
	}
	// 模糊比對的信心區間必須落在子字串層級的下限 0.7 之下
	if m.FuzzyThreshold+2*m.CategoryBonus > 0.7+1e-9 {
		return fmt.Errorf("matching.fuzzy_threshold + 2*category_bonus must not exceed 0.7")
	}
	if m.MemoSize < 0 {
		return fmt.Errorf("matching.memo_size must be >= 0")
	}

	s := c.Scoring
	if s.ExpiringWeight < 0 || math.IsNaN(s.ExpiringWeight) {
		return fmt.Errorf("scoring.expiring_weight must be >= 0")
	}
	for cat, w := range s.CategoryWeights {
		if w <= 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("scoring.category_weights[%s] must be > 0", cat)
		}
	}
	if s.ExpiringWindowDays < 0 {
		return fmt.Errorf("scoring.expiring_window_days must be >= 0")
	}
	if s.Workers <= 0 {
		return fmt.Errorf("scoring.workers must be > 0")
	}

	if c.Cache.Enabled {
		if c.Cache.TTL <= 0 {
			return fmt.Errorf("cache.ttl must be > 0")
		}
		if c.Cache.MaxEntries <= 0 {
			return fmt.Errorf("cache.max_entries must be > 0")
		}
	}
	return nil
}

// CategoryWeight 取得食譜分類權重，未設定時為 1.0
func (s ScoringConfig) CategoryWeight(category string) float64 {
	if w, ok := s.CategoryWeights[category]; ok {
		return w
	}
	return 1.0
}

func inUnit(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
