package recipe

import (
	"fmt"

	"go.uber.org/zap"

	"pantry-matcher/internal/core/unit"
	"pantry-matcher/internal/pkg/common"
)

// CalculateNeeded 計算食譜相對於庫存的缺口
func (s *Service) CalculateNeeded(recipe common.Recipe, inventory []common.InventoryItem) []common.NeededIngredient {
	needed := []common.NeededIngredient{}

	for _, ri := range recipe.Ingredients {
		if ri.Optional {
			continue
		}
		l := s.readLine(ri)

		available, matchedAny := 0.0, false
		for _, item := range inventory {
			conf, _, id := s.itemConfidence(l, item)
			if conf < s.cfg.Matching.ShoppingConfidence {
				continue
			}
			matchedAny = true
			if l.quantity == nil {
				break
			}
			if q, ok := convertQuantity(item.Quantity, item.Unit, l.unit, s.ingredientFor(id, item.CanonicalID)); ok {
				available += q
			}
		}

		var quantity float64
		switch {
		case l.quantity == nil && matchedAny:
			continue
		case l.quantity == nil:
			quantity = 1
		default:
			quantity = max(0, *l.quantity-available)
		}
		if quantity <= 1e-9 {
			continue
		}

		n := common.NeededIngredient{
			Name:        common.TitleCase(l.name),
			CanonicalID: l.resolved,
			Quantity:    unit.Round(quantity),
			Unit:        unitName(l.unit),
			RecipeID:    recipe.ID,
			RecipeName:  recipe.Name,
			RecipeText:  l.text,
		}
		if ing := s.ingredientFor(l.resolved); ing != nil {
			n.Name = ing.DisplayName
			n.Category = ing.Category
		}
		needed = append(needed, n)
	}

	common.LogDebug("購物缺口計算完成",
		zap.String("recipe_id", recipe.ID),
		zap.Int("needed", len(needed)),
	)
	return needed
}

// MergeIntoList 將缺口合併進既有購物清單
func (s *Service) MergeIntoList(needed []common.NeededIngredient, existing []common.ShoppingListItem) common.MergeResult {
	current := make([]common.ShoppingListItem, len(existing))
	for i, item := range existing {
		current[i] = item
		current[i].Notes = append([]string(nil), item.Notes...)
	}
	updated := make([]bool, len(existing))
	var added []common.ShoppingListItem

	for _, n := range needed {
		if i := s.findListEntry(n, current); i >= 0 {
			s.mergeQuantity(&current[i], n)
			updated[i] = true
			continue
		}
		if i := s.findListEntry(n, added); i >= 0 {
			s.mergeQuantity(&added[i], n)
			continue
		}
		added = append(added, common.ShoppingListItem{
			ID:          common.GenerateUUID(),
			Name:        n.Name,
			CanonicalID: n.CanonicalID,
			Category:    n.Category,
			Quantity:    n.Quantity,
			Unit:        n.Unit,
			Notes:       []string{provenance(n)},
		})
	}

	result := common.MergeResult{
		ToAdd:    []common.ShoppingListItem{},
		ToUpdate: []common.ShoppingListItem{},
	}
	for i, item := range current {
		if updated[i] {
			result.ToUpdate = append(result.ToUpdate, displayItem(item))
		}
	}
	for _, item := range added {
		result.ToAdd = append(result.ToAdd, displayItem(item))
	}
	return result
}

// findListEntry 先比標準 id，再以名稱模糊比對
func (s *Service) findListEntry(n common.NeededIngredient, list []common.ShoppingListItem) int {
	if n.CanonicalID != "" {
		for i, item := range list {
			if item.CanonicalID == n.CanonicalID {
				return i
			}
		}
	}
	for i, item := range list {
		if n.CanonicalID != "" && item.CanonicalID != "" {
			continue
		}
		if s.matcher.Match(n.Name, item.Name).Confidence >= s.cfg.Matching.ListMergeConfidence {
			return i
		}
	}
	return -1
}

// mergeQuantity 優先換算到清單既有單位，其次換算到缺口單位，都不行時直接相加
func (s *Service) mergeQuantity(item *common.ShoppingListItem, n common.NeededIngredient) {
	ing := s.ingredientFor(item.CanonicalID, n.CanonicalID)

	if q, ok := convertQuantity(n.Quantity, n.Unit, item.Unit, ing); ok {
		item.Quantity += q
	} else if existing, ok := convertQuantity(item.Quantity, item.Unit, n.Unit, ing); ok {
		item.Quantity = existing + n.Quantity
		item.Unit = n.Unit
	} else {
		common.LogDebug("購物清單單位無法換算，直接相加",
			zap.String("item", item.Name),
			zap.String("from", n.Unit),
			zap.String("to", item.Unit),
		)
		item.Quantity += n.Quantity
	}

	if item.CanonicalID == "" {
		item.CanonicalID = n.CanonicalID
	}
	item.Checked = false
	item.Notes = append(item.Notes, provenance(n))
}

// displayItem 套用顯示用的單位換算
func displayItem(item common.ShoppingListItem) common.ShoppingListItem {
	item.Quantity, item.Unit = unit.NormalizeForDisplay(item.Quantity, item.Unit)
	return item
}

func provenance(n common.NeededIngredient) string {
	from := n.RecipeName
	if from == "" {
		from = n.RecipeID
	}
	if from == "" {
		return fmt.Sprintf("+%s", common.FormatQuantity(n.Quantity, n.Unit))
	}
	return fmt.Sprintf("+%s for %s", common.FormatQuantity(n.Quantity, n.Unit), from)
}

// unitName 已知單位回傳標準名稱，未知單位原樣保留
func unitName(u string) string {
	if _, ok := unit.Lookup(u); ok {
		return unit.Canonical(u)
	}
	return u
}
