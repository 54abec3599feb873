package recipe

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pantry-matcher/internal/pkg/common"
)

// ScoreRecipe 計算食譜與庫存的符合分數；相同食譜與庫存指紋在快取有效期內回傳相同結果
func (s *Service) ScoreRecipe(ctx context.Context, recipe common.Recipe, inventory []common.InventoryItem) common.RecipeScore {
	score, _ := s.ScoreRecipeCached(ctx, recipe, inventory)
	return score
}

// ScoreRecipeCached 同 ScoreRecipe，另外回傳結果是否來自快取
func (s *Service) ScoreRecipeCached(ctx context.Context, recipe common.Recipe, inventory []common.InventoryItem) (common.RecipeScore, bool) {
	var key string
	if recipe.ID != "" {
		key = s.getCacheKey(recipe.ID, Fingerprint(inventory))
		if score, ok := s.getFromCache(ctx, key); ok {
			return cloneScore(score), true
		}
	}

	score := s.score(recipe, inventory)

	if key != "" {
		s.setToCache(ctx, key, score)
	}
	return cloneScore(score), false
}

// ScoreRecipes 並行評分多個食譜，依總分由高至低排序
func (s *Service) ScoreRecipes(ctx context.Context, recipes []common.Recipe, inventory []common.InventoryItem) ([]common.RecipeScore, error) {
	scores := make([]common.RecipeScore, len(recipes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.cfg.Scoring.Workers))
	for i := range recipes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			scores[i] = s.ScoreRecipe(gctx, recipes[i], inventory)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(scores, func(a, b int) bool {
		return scores[a].TotalScore > scores[b].TotalScore
	})

	common.LogDebug("批次評分完成",
		zap.Int("recipes", len(recipes)),
		zap.Int("inventory", len(inventory)),
	)
	return scores, nil
}

func (s *Service) score(recipe common.Recipe, inventory []common.InventoryItem) common.RecipeScore {
	now := s.now()
	result := common.RecipeScore{
		RecipeID:            recipe.ID,
		RecipeName:          recipe.Name,
		MatchedIngredients:  []common.MatchedIngredient{},
		MissingIngredients:  []common.MissingIngredient{},
		ExpiringIngredients: []common.ExpiringIngredient{},
		ComputedAt:          now,
	}

	total, matched, bonus := 0, 0, 0
	seen := make(map[string]bool)

	for _, ri := range recipe.Ingredients {
		l := s.readLine(ri)
		item, conf, reason, id, status := s.findItem(l, inventory)

		if status != "" {
			if !l.optional {
				total++
				result.MissingIngredients = append(result.MissingIngredients, common.MissingIngredient{
					RecipeText: l.text,
					Ingredient: l.name,
					Quantity:   l.quantity,
					Unit:       l.unit,
					Reason:     status,
				})
			}
			continue
		}

		total++
		matched++
		result.MatchedIngredients = append(result.MatchedIngredients, common.MatchedIngredient{
			RecipeText:      l.text,
			InventoryItemID: item.ID,
			InventoryName:   item.Name,
			CanonicalID:     id,
			Confidence:      conf,
			Reason:          reason,
			NeedsReview:     conf < needsReviewBelow,
		})

		// 同一庫存品項只加分一次
		if seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		if exp, ok := s.expiringBonus(item, now); ok {
			bonus += exp.Bonus
			result.ExpiringIngredients = append(result.ExpiringIngredients, exp)
		}
	}

	pct := 0.0
	if total > 0 {
		pct = float64(matched) / float64(total) * 100
	}
	ew := s.cfg.Scoring.ExpiringWeight
	cw := s.cfg.Scoring.CategoryWeight(recipe.Category)

	result.MatchPercentage = common.Round(pct, 2)
	result.TotalScore = common.Round(min(100, (pct+float64(bonus)*ew)*cw), 2)
	result.ScoreBreakdown = common.ScoreBreakdown{
		BaseMatch:      common.Round(pct*cw, 2),
		ExpiringBonus:  bonus,
		ExpiringWeight: ew,
		CategoryWeight: cw,
		MatchedCount:   matched,
		TotalCount:     total,
	}
	return result
}

// findItem 找出第一個信心值足夠且數量足夠的庫存品項，失敗時回傳缺少原因
func (s *Service) findItem(l line, inventory []common.InventoryItem) (common.InventoryItem, float64, common.MatchReason, string, string) {
	status := missingNotFound
	for _, item := range inventory {
		conf, reason, id := s.itemConfidence(l, item)
		if conf < s.cfg.Matching.MinConfidence {
			continue
		}
		if !s.sufficient(l, item, id) {
			status = missingInsufficient
			continue
		}
		return item, conf, reason, id, ""
	}
	return common.InventoryItem{}, 0, common.MatchNone, "", status
}

// sufficient 庫存數量是否足夠；無需求數量時只要有即可，無法換算時直接比較數值
func (s *Service) sufficient(l line, item common.InventoryItem, id string) bool {
	if l.quantity == nil {
		return true
	}
	need := *l.quantity
	have := item.Quantity
	if converted, ok := convertQuantity(item.Quantity, item.Unit, l.unit, s.ingredientFor(id, item.CanonicalID)); ok {
		have = converted
	}
	return have+1e-9 >= need
}

// expiringBonus 即將到期的加分：1 天內 10、3 天內 5、期限內 2
func (s *Service) expiringBonus(item common.InventoryItem, now time.Time) (common.ExpiringIngredient, bool) {
	exp, ok := item.Expiration()
	if !ok {
		return common.ExpiringIngredient{}, false
	}
	days := daysBetween(now, exp)
	if days < 0 || days > s.cfg.Scoring.ExpiringWindowDays {
		return common.ExpiringIngredient{}, false
	}

	bonus := bonusWithinWindow
	switch {
	case days <= 1:
		bonus = bonusWithinDay
	case days <= 3:
		bonus = bonusWithinThree
	}
	return common.ExpiringIngredient{
		InventoryItemID: item.ID,
		Name:            item.Name,
		DaysUntilExpiry: days,
		Bonus:           bonus,
	}, true
}

// daysBetween 以 UTC 日曆日計算天數差
func daysBetween(from, to time.Time) int {
	f := from.UTC()
	t := to.UTC()
	fd := time.Date(f.Year(), f.Month(), f.Day(), 0, 0, 0, 0, time.UTC)
	td := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int(td.Sub(fd).Hours() / 24)
}

// Fingerprint 庫存指紋：依 id 排序後對 id、數量、單位、標準 id、到期日做 xxhash
func Fingerprint(inventory []common.InventoryItem) string {
	rows := make([]common.InventoryItem, len(inventory))
	copy(rows, inventory)
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].ID != rows[j].ID {
			return rows[i].ID < rows[j].ID
		}
		return rows[i].Name < rows[j].Name
	})

	h := xxhash.New()
	for _, r := range rows {
		_, _ = h.WriteString(r.ID)
		_, _ = h.WriteString("\x1f")
		_, _ = h.WriteString(r.Name)
		_, _ = h.WriteString("\x1f")
		_, _ = h.WriteString(strconv.FormatFloat(r.Quantity, 'g', -1, 64))
		_, _ = h.WriteString("\x1f")
		_, _ = h.WriteString(r.Unit)
		_, _ = h.WriteString("\x1f")
		_, _ = h.WriteString(r.CanonicalID)
		_, _ = h.WriteString("\x1f")
		_, _ = h.WriteString(r.ExpirationDate)
		_, _ = h.WriteString("\x1e")
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

func cloneScore(score common.RecipeScore) common.RecipeScore {
	score.MatchedIngredients = append([]common.MatchedIngredient{}, score.MatchedIngredients...)
	score.MissingIngredients = append([]common.MissingIngredient{}, score.MissingIngredients...)
	score.ExpiringIngredients = append([]common.ExpiringIngredient{}, score.ExpiringIngredients...)
	return score
}
