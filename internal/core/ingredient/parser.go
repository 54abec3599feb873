package ingredient

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"pantry-matcher/internal/core/unit"
	"pantry-matcher/internal/pkg/common"
)

var (
	parenRe  = regexp.MustCompile(`\([^)]*\)`)
	numberRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)(?:\s*-\s*\d+(?:\.\d+)?)?`)
	mixedRe  = regexp.MustCompile(`^(\d+)\s+(\d+)\s*/\s*(\d+)`)
	fracRe   = regexp.MustCompile(`^(\d+)\s*/\s*(\d+)`)
)

var vulgarFractions = map[rune]float64{
	'¼': 0.25, '½': 0.5, '¾': 0.75,
	'⅓': 1.0 / 3, '⅔': 2.0 / 3,
	'⅛': 0.125, '⅜': 0.375, '⅝': 0.625, '⅞': 0.875,
}

// preparationWords 描述處理方式的字，歸入 Preparation
var preparationWords = map[string]bool{
	"chopped": true, "diced": true, "minced": true, "sliced": true, "grated": true,
	"shredded": true, "crushed": true, "peeled": true, "cubed": true, "halved": true,
	"quartered": true, "trimmed": true, "melted": true, "softened": true, "beaten": true,
	"rinsed": true, "drained": true, "julienned": true, "zested": true, "juiced": true,
}

// ParseLine 將一行食材文字拆成數量、單位、名稱與處理方式
//
// 無法辨識的部分不會回傳錯誤，而是降低 Confidence。
func ParseLine(text string) common.ParsedIngredient {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return common.ParsedIngredient{}
	}

	s := strings.TrimSpace(parenRe.ReplaceAllString(raw, " "))
	confidence := 1.0

	qty, rest, found := parseQuantity(s)
	if !found {
		confidence -= 0.2
	}
	rest = strings.TrimSpace(rest)

	unitName, rest := parseUnit(rest)
	if found && unitName == "" {
		confidence -= 0.1
	}

	// 逗號之後視為處理方式
	var prep []string
	if idx := strings.Index(rest, ","); idx >= 0 {
		prep = append(prep, strings.TrimSpace(rest[idx+1:]))
		rest = rest[:idx]
	}

	var name []string
	for _, w := range strings.Fields(strings.ToLower(rest)) {
		w = strings.Trim(w, ".;:")
		switch {
		case w == "":
		case preparationWords[w]:
			prep = append([]string{w}, prep...)
		case w == "of" && len(name) == 0:
		default:
			name = append(name, w)
		}
	}

	result := common.ParsedIngredient{
		Unit:        unitName,
		Ingredient:  strings.Join(name, " "),
		Preparation: strings.TrimSpace(strings.Join(prep, ", ")),
	}
	if found {
		q := qty
		result.Quantity = &q
	}
	if result.Ingredient == "" {
		// 無法取出名稱時退回整理後的原文
		result.Ingredient = Normalize(raw)
		result.Quantity = nil
		result.Unit = ""
		confidence = 0.3
	}
	result.Confidence = common.Round(confidence, 2)
	return result
}

// parseQuantity 解析開頭的數量：整數、小數、分數、帶分數、範圍（取下限）與 Unicode 分數
func parseQuantity(s string) (float64, string, bool) {
	if m := mixedRe.FindStringSubmatch(s); m != nil {
		whole, _ := strconv.ParseFloat(m[1], 64)
		num, _ := strconv.ParseFloat(m[2], 64)
		den, _ := strconv.ParseFloat(m[3], 64)
		if den != 0 {
			return whole + num/den, s[len(m[0]):], true
		}
	}
	if m := fracRe.FindStringSubmatch(s); m != nil {
		num, _ := strconv.ParseFloat(m[1], 64)
		den, _ := strconv.ParseFloat(m[2], 64)
		if den != 0 {
			return num / den, s[len(m[0]):], true
		}
	}

	var total float64
	found := false
	if m := numberRe.FindStringSubmatch(s); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			total, found = v, true
			s = s[len(m[0]):]
		}
	}

	// 1½ 或 ½
	trimmed := strings.TrimLeft(s, " ")
	if r, size := utf8.DecodeRuneInString(trimmed); size > 0 {
		if f, ok := vulgarFractions[r]; ok {
			total += f
			found = true
			s = trimmed[size:]
		}
	}

	if !found {
		lower := strings.ToLower(s)
		for _, article := range []string{"a ", "an ", "one "} {
			if strings.HasPrefix(lower, article) {
				return 1, s[len(article):], true
			}
		}
	}
	return total, s, found
}

// parseUnit 解析數量後的單位，支援 "fl oz" 這類雙字單位與 200g 這類黏在一起的寫法
func parseUnit(s string) (string, string) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return "", s
	}
	if len(fields) >= 2 {
		if name := unit.Canonical(fields[0] + " " + fields[1]); name != "" {
			return name, strings.Join(fields[2:], " ")
		}
	}
	if name := unit.Canonical(strings.TrimRight(fields[0], ",")); name != "" {
		return name, strings.Join(fields[1:], " ")
	}
	return "", s
}
