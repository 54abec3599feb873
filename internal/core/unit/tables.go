package unit

import "strings"

// Type 單位類型
type Type string

const (
	Volume Type = "volume"
	Weight Type = "weight"
	Count  Type = "count"
)

// Definition 單位換算資料：Factor 為換算到 BaseUnit 的倍率
type Definition struct {
	Name     string  `json:"name"`
	Type     Type    `json:"type"`
	BaseUnit string  `json:"base_unit"`
	Factor   float64 `json:"factor"`
}

var definitions = map[string]Definition{
	// volume (base = ml)
	"ml":     {Name: "ml", Type: Volume, BaseUnit: "ml", Factor: 1},
	"l":      {Name: "l", Type: Volume, BaseUnit: "ml", Factor: 1000},
	"tsp":    {Name: "tsp", Type: Volume, BaseUnit: "ml", Factor: 4.92892},
	"tbsp":   {Name: "tbsp", Type: Volume, BaseUnit: "ml", Factor: 14.7868},
	"cup":    {Name: "cup", Type: Volume, BaseUnit: "ml", Factor: 236.588},
	"fl oz":  {Name: "fl oz", Type: Volume, BaseUnit: "ml", Factor: 29.5735},
	"pint":   {Name: "pint", Type: Volume, BaseUnit: "ml", Factor: 473.176},
	"quart":  {Name: "quart", Type: Volume, BaseUnit: "ml", Factor: 946.353},
	"gallon": {Name: "gallon", Type: Volume, BaseUnit: "ml", Factor: 3785.41},
	"pinch":  {Name: "pinch", Type: Volume, BaseUnit: "ml", Factor: 0.308},
	"dash":   {Name: "dash", Type: Volume, BaseUnit: "ml", Factor: 0.616},

	// weight (base = g)
	"mg": {Name: "mg", Type: Weight, BaseUnit: "g", Factor: 0.001},
	"g":  {Name: "g", Type: Weight, BaseUnit: "g", Factor: 1},
	"kg": {Name: "kg", Type: Weight, BaseUnit: "g", Factor: 1000},
	"oz": {Name: "oz", Type: Weight, BaseUnit: "g", Factor: 28.3495},
	"lb": {Name: "lb", Type: Weight, BaseUnit: "g", Factor: 453.592},

	// count：容器類各自為基準單位，彼此不可換算
	"each":    {Name: "each", Type: Count, BaseUnit: "each", Factor: 1},
	"dozen":   {Name: "dozen", Type: Count, BaseUnit: "each", Factor: 12},
	"can":     {Name: "can", Type: Count, BaseUnit: "can", Factor: 1},
	"package": {Name: "package", Type: Count, BaseUnit: "package", Factor: 1},
	"clove":   {Name: "clove", Type: Count, BaseUnit: "clove", Factor: 1},
	"slice":   {Name: "slice", Type: Count, BaseUnit: "slice", Factor: 1},
	"bunch":   {Name: "bunch", Type: Count, BaseUnit: "bunch", Factor: 1},
	"head":    {Name: "head", Type: Count, BaseUnit: "head", Factor: 1},
	"stick":   {Name: "stick", Type: Count, BaseUnit: "stick", Factor: 1},
	"jar":     {Name: "jar", Type: Count, BaseUnit: "jar", Factor: 1},
	"bottle":  {Name: "bottle", Type: Count, BaseUnit: "bottle", Factor: 1},
	"bag":     {Name: "bag", Type: Count, BaseUnit: "bag", Factor: 1},
	"box":     {Name: "box", Type: Count, BaseUnit: "box", Factor: 1},
	"sprig":   {Name: "sprig", Type: Count, BaseUnit: "sprig", Factor: 1},
}

// aliases 將常見寫法對應到標準單位名稱
var aliases = map[string]string{
	"milliliter": "ml", "milliliters": "ml", "millilitre": "ml", "millilitres": "ml", "mls": "ml",
	"liter": "l", "liters": "l", "litre": "l", "litres": "l", "ltr": "l",
	"teaspoon": "tsp", "teaspoons": "tsp", "tsps": "tsp",
	"tablespoon": "tbsp", "tablespoons": "tbsp", "tbsps": "tbsp", "tbs": "tbsp", "tbl": "tbsp",
	"cups": "cup",
	"fluid ounce": "fl oz", "fluid ounces": "fl oz", "floz": "fl oz", "fl-oz": "fl oz",
	"pints": "pint", "pt": "pint",
	"quarts": "quart", "qt": "quart",
	"gallons": "gallon", "gal": "gallon",
	"pinches": "pinch",
	"dashes": "dash",

	"milligram": "mg", "milligrams": "mg",
	"gram": "g", "grams": "g", "gr": "g",
	"kilogram": "kg", "kilograms": "kg", "kgs": "kg",
	"ounce": "oz", "ounces": "oz",
	"pound": "lb", "pounds": "lb", "lbs": "lb",

	"ea": "each", "piece": "each", "pieces": "each", "pc": "each", "pcs": "each",
	"doz": "dozen",
	"cans": "can", "cn": "can",
	"packages": "package", "pkg": "package", "pkgs": "package", "packet": "package", "packets": "package",
	"cloves": "clove",
	"slices": "slice",
	"bunches": "bunch",
	"heads": "head",
	"sticks": "stick",
	"jars": "jar",
	"bottles": "bottle", "btl": "bottle",
	"bags": "bag",
	"boxes": "box",
	"sprigs": "sprig",
}

// directFactors 預先計算的換算比例，優先於基準單位計算
var directFactors = map[[2]string]float64{
	{"tsp", "tbsp"}:     1.0 / 3,
	{"tbsp", "tsp"}:     3,
	{"cup", "tbsp"}:     16,
	{"tbsp", "cup"}:     1.0 / 16,
	{"cup", "tsp"}:      48,
	{"tsp", "cup"}:      1.0 / 48,
	{"cup", "fl oz"}:    8,
	{"fl oz", "cup"}:    1.0 / 8,
	{"tbsp", "fl oz"}:   0.5,
	{"fl oz", "tbsp"}:   2,
	{"pinch", "tsp"}:    1.0 / 16,
	{"tsp", "pinch"}:    16,
	{"dash", "tsp"}:     1.0 / 8,
	{"tsp", "dash"}:     8,
	{"pinch", "dash"}:   0.5,
	{"dash", "pinch"}:   2,
	{"pint", "cup"}:     2,
	{"cup", "pint"}:     0.5,
	{"quart", "cup"}:    4,
	{"cup", "quart"}:    0.25,
	{"gallon", "quart"}: 4,
	{"quart", "gallon"}: 0.25,
	{"lb", "oz"}:        16,
	{"oz", "lb"}:        1.0 / 16,
}

// qualifierWords 只出現在多字單位中的字，正規化時一併移除
var qualifierWords = map[string]bool{
	"fl":    true,
	"fluid": true,
}

func key(u string) string {
	u = strings.ToLower(strings.TrimSpace(u))
	u = strings.ReplaceAll(u, ".", "")
	return strings.Join(strings.Fields(u), " ")
}

// Canonical 取得標準單位名稱，未知單位回傳空字串
func Canonical(u string) string {
	k := key(u)
	if _, ok := definitions[k]; ok {
		return k
	}
	if name, ok := aliases[k]; ok {
		return name
	}
	return ""
}

// Lookup 取得單位定義
func Lookup(u string) (Definition, bool) {
	name := Canonical(u)
	if name == "" {
		return Definition{}, false
	}
	return definitions[name], true
}

// IsUnitWord 判斷單字是否為單位用語
func IsUnitWord(word string) bool {
	k := key(word)
	if k == "" || strings.Contains(k, " ") {
		return false
	}
	return Canonical(k) != "" || qualifierWords[k]
}

// Names 所有標準單位名稱
func Names() []string {
	out := make([]string, 0, len(definitions))
	for name := range definitions {
		out = append(out, name)
	}
	return out
}
