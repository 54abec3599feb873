package unit

import (
	"fmt"
	"math"

	"pantry-matcher/internal/pkg/common"
)

// Reason 換算失敗原因
type Reason string

const (
	ReasonUnknownUnit       Reason = "unknown_unit"
	ReasonIncompatibleUnits Reason = "incompatible_units"
	ReasonMissingIngredient Reason = "missing_ingredient"
	ReasonUnsafeConversion  Reason = "unsafe_conversion"
	ReasonNoConversion      Reason = "no_conversion"
	ReasonInvalidConversion Reason = "invalid_conversion"
)

// Result 換算結果；Success 為 false 時呼叫端應沿用原始數量
type Result struct {
	Success bool    `json:"success"`
	Value   float64 `json:"value"`
	Unit    string  `json:"unit,omitempty"`
	Reason  Reason  `json:"reason,omitempty"`
	Message string  `json:"message,omitempty"`
}

func fail(reason Reason, format string, args ...interface{}) Result {
	return Result{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

func success(value float64, unit string) Result {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return fail(ReasonInvalidConversion, "conversion produced invalid value %v", value)
	}
	return Result{Success: true, Value: Round(value), Unit: unit}
}

// Convert 換算數量；體積與重量互換需提供有密度且允許安全換算的食材
func Convert(quantity float64, from, to string, ing *common.CanonicalIngredient) Result {
	if math.IsNaN(quantity) || math.IsInf(quantity, 0) || quantity < 0 {
		return fail(ReasonInvalidConversion, "invalid quantity %v", quantity)
	}

	fromDef, found := Lookup(from)
	if !found {
		return fail(ReasonUnknownUnit, "unknown unit %q", from)
	}
	toDef, found := Lookup(to)
	if !found {
		return fail(ReasonUnknownUnit, "unknown unit %q", to)
	}

	if fromDef.Name == toDef.Name {
		return success(quantity, toDef.Name)
	}

	if factor, found := directFactors[[2]string{fromDef.Name, toDef.Name}]; found {
		return success(quantity*factor, toDef.Name)
	}

	if fromDef.Type == toDef.Type {
		if fromDef.BaseUnit != toDef.BaseUnit {
			return fail(ReasonNoConversion, "no conversion from %s to %s", fromDef.Name, toDef.Name)
		}
		return success(quantity*fromDef.Factor/toDef.Factor, toDef.Name)
	}

	return convertDensity(quantity, fromDef, toDef, ing)
}

// convertDensity 體積與重量之間透過密度 (g/ml) 換算
func convertDensity(quantity float64, from, to Definition, ing *common.CanonicalIngredient) Result {
	if from.Type == Count || to.Type == Count {
		return fail(ReasonIncompatibleUnits, "cannot convert %s (%s) to %s (%s)", from.Name, from.Type, to.Name, to.Type)
	}
	if ing == nil {
		return fail(ReasonMissingIngredient, "converting %s to %s requires an ingredient", from.Name, to.Name)
	}
	if !ing.HasDensity() {
		return fail(ReasonIncompatibleUnits, "%s has no density for %s to %s", ing.ID, from.Name, to.Name)
	}
	if !ing.SafeConversions {
		return fail(ReasonUnsafeConversion, "%s is not marked safe for volume/weight conversion", ing.ID)
	}

	density := *ing.Density
	var grams float64
	if from.Type == Volume {
		grams = quantity * from.Factor * density
	} else {
		grams = quantity * from.Factor
	}

	if to.Type == Weight {
		return success(grams/to.Factor, to.Name)
	}
	return success(grams/density/to.Factor, to.Name)
}

// Round 依數值大小決定小數位：>=1 取 2 位，[0.1, 1) 取 3 位，其餘取 4 位
func Round(v float64) float64 {
	abs := math.Abs(v)
	switch {
	case abs >= 1:
		return common.Round(v, 2)
	case abs >= 0.1:
		return common.Round(v, 3)
	default:
		return common.Round(v, 4)
	}
}

// NormalizeForDisplay 將數量轉為較易讀的單位
func NormalizeForDisplay(quantity float64, u string) (float64, string) {
	def, found := Lookup(u)
	if !found {
		return Round(quantity), u
	}

	switch {
	case def.Name == "mg" && quantity >= 1000:
		return Round(quantity / 1000), "g"
	case def.Name == "g" && quantity >= 1000:
		return Round(quantity / 1000), "kg"
	case def.Name == "ml" && quantity >= 1000:
		return Round(quantity / 1000), "l"
	case def.Name == "oz" && quantity >= 16:
		return Round(quantity / 16), "lb"
	case def.Type == Count:
		return math.Ceil(quantity - 1e-9), def.Name
	}
	return Round(quantity), def.Name
}
