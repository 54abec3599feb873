package ingredient

import (
	"strings"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"

	"pantry-matcher/internal/core/unit"
)

// stopwords 描述性修飾詞，不影響食材身分
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "s": true, "of": true, "and": true, "or": true, "to": true,
	"for": true, "with": true, "into": true, "in": true, "about": true, "plus": true, "taste": true,
	"fresh": true, "freshly": true, "organic": true, "natural": true, "raw": true, "ripe": true,
	"chopped": true, "diced": true, "minced": true, "sliced": true, "grated": true, "shredded": true,
	"crushed": true, "peeled": true, "cubed": true, "halved": true, "quartered": true, "trimmed": true,
	"melted": true, "softened": true, "beaten": true, "rinsed": true, "drained": true, "divided": true,
	"finely": true, "roughly": true, "coarsely": true, "thinly": true, "lightly": true,
	"large": true, "medium": true, "small": true, "whole": true, "extra": true, "optional": true,
	"boneless": true, "skinless": true, "frozen": true, "premium": true, "brand": true,
}

// abbreviations 收據常見縮寫；只收不會是一般英文單字或人名的寫法
var abbreviations = map[string]string{
	"chkn":  "chicken",
	"brst":  "breast",
	"bnls":  "boneless",
	"sknls": "skinless",
	"org":   "organic",
	"whl":   "whole",
	"frsh":  "fresh",
	"frzn":  "frozen",
	"flr":   "flour",
	"mlk":   "milk",
	"chse":  "cheese",
	"brd":   "bread",
	"jce":   "juice",
	"grnd":  "ground",
	"tmto":  "tomato",
	"veg":   "vegetable",
	"wht":   "white",
	"brn":   "brown",
	"grn":   "green",
	"yel":   "yellow",
	"blk":   "black",
	"lrg":   "large",
	"sml":   "small",
	"evoo":  "extra virgin olive oil",
}

// Normalizer 將食材文字轉為可比對的標準字串
type Normalizer struct {
	memo *lru.Cache[string, string]
}

// NewNormalizer 創建正規化器；memoSize <= 0 時不使用緩存
func NewNormalizer(memoSize int) *Normalizer {
	n := &Normalizer{}
	if memoSize > 0 {
		n.memo, _ = lru.New[string, string](memoSize)
	}
	return n
}

// Normalize 轉小寫、去除標點、數量、單位與修飾詞，並做簡易單數化
func (n *Normalizer) Normalize(text string) string {
	if n == nil || n.memo == nil {
		return Normalize(text)
	}
	if v, ok := n.memo.Get(text); ok {
		return v
	}
	v := Normalize(text)
	n.memo.Add(text, v)
	return v
}

// Surface 與 Normalize 相同但保留複數形
func (n *Normalizer) Surface(text string) string {
	return normalize(text, false)
}

// Normalize 無緩存版本
func Normalize(text string) string {
	return normalize(text, true)
}

func normalize(text string, singular bool) string {
	if text == "" {
		return ""
	}

	out := make([]string, 0, 4)
	for _, tok := range tokenize(text) {
		for _, word := range expand(tok) {
			s := word
			if singular {
				s = Singularize(word)
			}
			if dropToken(s) || dropToken(word) {
				continue
			}
			out = append(out, s)
		}
	}
	return strings.Join(out, " ")
}

// tokenize 小寫化，非字母數字視為分隔，並在字母與數字交界切開 (200g -> 200 g)
func tokenize(text string) []string {
	var b strings.Builder
	b.Grow(len(text) + 8)

	prev := ' '
	for _, r := range strings.ToLower(text) {
		var class rune
		switch {
		case unicode.IsLetter(r):
			class = 'a'
		case unicode.IsNumber(r):
			class = '0'
		default:
			class = ' '
			r = ' '
		}
		if class != ' ' && prev != ' ' && class != prev {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
		prev = class
	}
	return strings.Fields(b.String())
}

func expand(tok string) []string {
	if full, ok := abbreviations[tok]; ok {
		return strings.Fields(full)
	}
	if full, ok := abbreviations[Singularize(tok)]; ok {
		return strings.Fields(full)
	}
	return []string{tok}
}

func dropToken(tok string) bool {
	if tok == "" || stopwords[tok] || unit.IsUnitWord(tok) {
		return true
	}
	for _, r := range tok {
		if !unicode.IsNumber(r) {
			return false
		}
	}
	return true
}

// Singularize 簡易英文單數化，規則：
// ies -> y，oes -> o，其餘長度大於 3 且不以 ss/us/is 結尾者去掉結尾 s
func Singularize(word string) string {
	n := len(word)
	switch {
	case n > 4 && strings.HasSuffix(word, "ies"):
		return word[:n-3] + "y"
	case n > 4 && strings.HasSuffix(word, "oes"):
		return word[:n-2]
	case n > 3 && strings.HasSuffix(word, "s") &&
		!strings.HasSuffix(word, "ss") &&
		!strings.HasSuffix(word, "us") &&
		!strings.HasSuffix(word, "is"):
		return word[:n-1]
	}
	return word
}
