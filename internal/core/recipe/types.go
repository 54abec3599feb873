package recipe

import (
	"context"
	"time"

	"pantry-matcher/internal/pkg/common"
)

// ScoreCache 食譜分數快取
type ScoreCache interface {
	Get(ctx context.Context, key string) (common.RecipeScore, bool)
	Set(ctx context.Context, key string, score common.RecipeScore)
}

// Option 服務選項
type Option func(*Service)

// WithClock 指定時鐘，用於到期日計算與測試
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// 到期加分
const (
	bonusWithinDay    = 10
	bonusWithinThree  = 5
	bonusWithinWindow = 2
)

// 缺少原因
const (
	missingNotFound     = "not_found"
	missingInsufficient = "insufficient"
)

// needsReviewBelow 低於此信心值的配對標記為需確認
const needsReviewBelow = 0.7
