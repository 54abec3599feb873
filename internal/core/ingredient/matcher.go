package ingredient

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	lru "github.com/hashicorp/golang-lru/v2"

	"pantry-matcher/internal/infrastructure/config"
	"pantry-matcher/internal/pkg/common"
)

// minSubstringRunes 子字串比對時較短一方的最少字元數
const minSubstringRunes = 3

type memoKey struct {
	a, b    string
	resolve bool
}

// Matcher 依五層規則比對食材文字
type Matcher struct {
	reg  *Registry
	norm *Normalizer
	cfg  config.MatchingConfig
	memo *lru.Cache[memoKey, common.MatchResult]
}

// NewMatcher 創建比對器
func NewMatcher(reg *Registry, cfg config.MatchingConfig) *Matcher {
	m := &Matcher{
		reg:  reg,
		norm: reg.Normalizer(),
		cfg:  cfg,
	}
	if cfg.MemoSize > 0 {
		m.memo, _ = lru.New[memoKey, common.MatchResult](cfg.MemoSize)
	}
	return m
}

// Registry 取得比對器使用的註冊表
func (m *Matcher) Registry() *Registry {
	return m.reg
}

// Match 比對兩段自由文字
func (m *Matcher) Match(a, b string) common.MatchResult {
	return m.cached(memoKey{a: a, b: b}, func() common.MatchResult {
		return m.match(a, b)
	})
}

// Resolve 將自由文字對應到註冊表中的標準食材
func (m *Matcher) Resolve(text string) common.MatchResult {
	return m.cached(memoKey{a: text, resolve: true}, func() common.MatchResult {
		return m.resolve(text)
	})
}

func (m *Matcher) cached(key memoKey, compute func() common.MatchResult) common.MatchResult {
	if m.memo == nil {
		return compute()
	}
	if res, ok := m.memo.Get(key); ok {
		return cloneResult(res)
	}
	res := compute()
	m.memo.Add(key, res)
	return cloneResult(res)
}

func cloneResult(res common.MatchResult) common.MatchResult {
	res.DebugPath = append([]string(nil), res.DebugPath...)
	return res
}

func (m *Matcher) match(a, b string) common.MatchResult {
	na, nb := m.norm.Normalize(a), m.norm.Normalize(b)
	path := make([]string, 0, 5)

	if na == "" || nb == "" {
		path = append(path, "empty input after normalization")
		return noMatch(path)
	}

	// Tier 1: 正規化後相同，且為 id 或顯示名稱
	if na == nb {
		if id, ok := m.reg.LookupPrimary(na); ok {
			path = append(path, fmt.Sprintf("tier1 exact: %q is canonical %s", na, id))
			return result(id, 1.0, common.MatchExact, 1, path)
		}
	}
	path = append(path, fmt.Sprintf("tier1 exact: %q vs %q not canonical", na, nb))

	// Tier 2: 兩邊經別名對應到同一 id
	ida, oka := m.reg.LookupByAlias(na)
	idb, okb := m.reg.LookupByAlias(nb)
	if oka && okb && ida == idb {
		path = append(path, fmt.Sprintf("tier2 alias: both resolve to %s", ida))
		return result(ida, m.AliasConfidence(), common.MatchAlias, 2, path)
	}
	path = append(path, fmt.Sprintf("tier2 alias: %q->%s %q->%s", na, orDash(ida), nb, orDash(idb)))

	// 兩邊都是已知但不同的標準食材，嚴格模式下不再往下比對
	if oka && okb && m.cfg.StrictCanonical {
		path = append(path, fmt.Sprintf("distinct canonical ingredients %s and %s", ida, idb))
		return noMatch(path)
	}
	known := ida
	if known == "" {
		known = idb
	}

	// Tier 3: 子字串，先比對保留複數的表層形式，再比對正規化形式
	sa, sb := m.norm.Surface(a), m.norm.Surface(b)
	if ratio, ok := containment(sa, sb, false); ok {
		path = append(path, fmt.Sprintf("tier3 substring: %q vs %q ratio %.3f", sa, sb, ratio))
		return result(known, m.substringConfidence(ratio), common.MatchSubstring, 3, path)
	}
	if ratio, ok := containment(na, nb, false); ok {
		path = append(path, fmt.Sprintf("tier3 substring: %q vs %q ratio %.3f", na, nb, ratio))
		return result(known, m.substringConfidence(ratio), common.MatchSubstring, 3, path)
	}
	path = append(path, "tier3 substring: no containment")

	// Tier 4: 同分類內模糊比對
	cata, catb := m.reg.CategoryOf(na), m.reg.CategoryOf(nb)
	if cata != "" && cata == catb {
		if id, sim, ok := m.fuzzyPair(na, nb, known, m.reg.IDsInCategory(cata)); ok {
			path = append(path, fmt.Sprintf("tier4 category %s: %s similarity %.3f", cata, orDash(id), sim))
			return result(id, m.fuzzyConfidence(sim, 4), common.MatchCategory, 4, path)
		}
		path = append(path, fmt.Sprintf("tier4 category %s: below threshold", cata))
	} else {
		path = append(path, fmt.Sprintf("tier4 category: %q vs %q", orDash(cata), orDash(catb)))
	}

	// Tier 5: 全域模糊比對
	if id, sim, ok := m.fuzzyPair(na, nb, known, m.reg.IDs()); ok {
		path = append(path, fmt.Sprintf("tier5 fuzzy: %s similarity %.3f", orDash(id), sim))
		return result(id, m.fuzzyConfidence(sim, 5), common.MatchFuzzy, 5, path)
	}
	path = append(path, "tier5 fuzzy: below threshold")

	return noMatch(path)
}

func (m *Matcher) resolve(text string) common.MatchResult {
	n := m.norm.Normalize(text)
	path := make([]string, 0, 5)
	if n == "" {
		path = append(path, "empty input after normalization")
		return noMatch(path)
	}

	if id, ok := m.reg.LookupPrimary(n); ok {
		path = append(path, fmt.Sprintf("tier1 exact: %q is canonical %s", n, id))
		return result(id, 1.0, common.MatchExact, 1, path)
	}
	path = append(path, fmt.Sprintf("tier1 exact: %q not canonical", n))

	if id, ok := m.reg.LookupByAlias(n); ok {
		path = append(path, fmt.Sprintf("tier2 alias: %q -> %s", n, id))
		return result(id, m.AliasConfidence(), common.MatchAlias, 2, path)
	}
	path = append(path, fmt.Sprintf("tier2 alias: %q unknown", n))

	// Tier 3: 以完整單字比對，避免 pea 命中 peanut
	bestID, bestRatio := "", 0.0
	for _, id := range m.reg.IDs() {
		for _, name := range m.reg.Names(id) {
			if ratio, ok := containment(n, name, true); ok && ratio > bestRatio {
				bestID, bestRatio = id, ratio
			}
		}
	}
	if bestID != "" {
		path = append(path, fmt.Sprintf("tier3 substring: %s ratio %.3f", bestID, bestRatio))
		return result(bestID, m.substringConfidence(bestRatio), common.MatchSubstring, 3, path)
	}
	path = append(path, "tier3 substring: no containment")

	if cat := m.reg.CategoryOf(n); cat != "" {
		if id, sim := m.bestCandidate(n, m.reg.IDsInCategory(cat)); id != "" && sim >= m.cfg.FuzzyThreshold {
			path = append(path, fmt.Sprintf("tier4 category %s: %s similarity %.3f", cat, id, sim))
			return result(id, m.fuzzyConfidence(sim, 4), common.MatchCategory, 4, path)
		}
		path = append(path, fmt.Sprintf("tier4 category %s: below threshold", cat))
	} else {
		path = append(path, "tier4 category: unknown")
	}

	if id, sim := m.bestCandidate(n, m.reg.IDs()); id != "" && sim >= m.cfg.FuzzyThreshold {
		path = append(path, fmt.Sprintf("tier5 fuzzy: %s similarity %.3f", id, sim))
		return result(id, m.fuzzyConfidence(sim, 5), common.MatchFuzzy, 5, path)
	}
	path = append(path, "tier5 fuzzy: below threshold")

	return noMatch(path)
}

// fuzzyPair 在候選範圍內模糊比對兩段文字：
// 兩邊最佳候選為同一 id，或兩段文字本身足夠相似
func (m *Matcher) fuzzyPair(na, nb, known string, ids []string) (string, float64, bool) {
	thr := m.cfg.FuzzyThreshold
	ida, sima := m.bestCandidate(na, ids)
	idb, simb := m.bestCandidate(nb, ids)

	id, sim := "", 0.0
	if ida != "" && ida == idb && sima >= thr && simb >= thr {
		id, sim = ida, min(sima, simb)
	}

	if pair := Similarity(na, nb); pair >= thr && pair > sim {
		sim = pair
		if id == "" {
			switch {
			case known != "":
				id = known
			case sima >= thr && sima >= simb:
				id = ida
			case simb >= thr:
				id = idb
			}
		}
	}
	return id, sim, sim >= thr
}

// bestCandidate 回傳相似度最高的 id；同分時取目錄順序較前者
func (m *Matcher) bestCandidate(n string, ids []string) (string, float64) {
	bestID, best := "", -1.0
	for _, id := range ids {
		for _, name := range m.reg.Names(id) {
			if s := Similarity(n, name); s > best {
				bestID, best = id, s
			}
		}
	}
	if bestID == "" {
		return "", 0
	}
	return bestID, best
}

// AliasConfidence 別名層級的信心值
func (m *Matcher) AliasConfidence() float64 {
	return 1 - m.cfg.AliasPenalty
}

// substringConfidence 介於 0.7 與別名層級之下
func (m *Matcher) substringConfidence(ratio float64) float64 {
	conf := max(0.7, ratio)
	if ceiling := m.AliasConfidence() - 0.01; conf > ceiling {
		conf = ceiling
	}
	return conf
}

// fuzzyConfidence 將相似度映射到層級區間：
// tier 4 為 [thr+bonus, thr+2*bonus)，tier 5 為 [thr, thr+bonus)
func (m *Matcher) fuzzyConfidence(sim float64, tier int) float64 {
	thr, band := m.cfg.FuzzyThreshold, m.cfg.CategoryBonus
	frac := 0.0
	if thr < 1 {
		frac = (sim - thr) / (1 - thr)
	}
	frac = min(max(frac, 0), 1)

	base := thr
	if tier == 4 {
		base += band
	}
	return base + frac*band*0.999
}

// Similarity Levenshtein 正規化相似度 1 - distance/maxLen
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(maxLen)
}

// containment 判斷一方是否包含另一方，回傳短/長長度比
func containment(a, b string, wholeWords bool) (float64, bool) {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	short, long := a, b
	ls, ll := la, lb
	if la > lb {
		short, long, ls, ll = b, a, lb, la
	}
	if ls < minSubstringRunes || ll == 0 {
		return 0, false
	}
	if wholeWords {
		if !strings.Contains(" "+long+" ", " "+short+" ") {
			return 0, false
		}
	} else if !strings.Contains(long, short) {
		return 0, false
	}
	return float64(ls) / float64(ll), true
}

// ConfidenceLevel 將信心值轉為顯示用的等級
func ConfidenceLevel(confidence float64) string {
	switch {
	case confidence >= 0.9:
		return "high"
	case confidence >= 0.7:
		return "medium"
	case confidence > 0:
		return "low"
	default:
		return "none"
	}
}

func result(id string, confidence float64, reason common.MatchReason, tier int, path []string) common.MatchResult {
	return common.MatchResult{
		CanonicalID: id,
		Confidence:  confidence,
		Reason:      reason,
		Tier:        tier,
		DebugPath:   path,
	}
}

func noMatch(path []string) common.MatchResult {
	return common.MatchResult{Reason: common.MatchNone, DebugPath: path}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
