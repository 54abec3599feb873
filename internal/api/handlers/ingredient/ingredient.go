package ingredient

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pantry-matcher/internal/api/handlers"
	"pantry-matcher/internal/core/engine"
	coreIngredient "pantry-matcher/internal/core/ingredient"
	"pantry-matcher/internal/core/unit"
	"pantry-matcher/internal/pkg/common"
)

// NormalizeRequest 正規化請求
type NormalizeRequest struct {
	Text string `json:"text" binding:"required"`
}

// NormalizeResponse 正規化結果與解析結果
type NormalizeResponse struct {
	Text       string                  `json:"text"`
	Normalized string                  `json:"normalized"`
	Parsed     common.ParsedIngredient `json:"parsed"`
}

// MatchRequest 兩段文字比對請求
type MatchRequest struct {
	A     string `json:"a" binding:"required"`
	B     string `json:"b" binding:"required"`
	Debug bool   `json:"debug,omitempty"`
}

// MatchResponse 比對結果
type MatchResponse struct {
	common.MatchResult
	Level string `json:"level"`
}

// ResolveRequest 對應標準食材請求
type ResolveRequest struct {
	Text  string `json:"text" binding:"required"`
	Debug bool   `json:"debug,omitempty"`
}

// ResolveResponse 對應結果
type ResolveResponse struct {
	common.MatchResult
	Level      string                      `json:"level"`
	Ingredient *common.CanonicalIngredient `json:"ingredient,omitempty"`
}

// ConvertRequest 單位換算請求
type ConvertRequest struct {
	Quantity     *float64 `json:"quantity" binding:"required"`
	From         string   `json:"from" binding:"required"`
	To           string   `json:"to" binding:"required"`
	IngredientID string   `json:"ingredient_id,omitempty"`
}

// ConvertResponse 換算結果，成功時附上顯示用數量
type ConvertResponse struct {
	unit.Result
	Display string `json:"display,omitempty"`
}

// Handler 食材與單位處理程序
type Handler struct {
	engine *engine.Engine
}

// NewHandler 創建新的食材處理程序
func NewHandler(e *engine.Engine) *Handler {
	return &Handler{engine: e}
}

// Normalize 正規化並解析食材文字
func (h *Handler) Normalize(c *gin.Context) {
	var req NormalizeRequest
	if !handlers.BindJSON(c, &req) {
		return
	}

	c.JSON(http.StatusOK, NormalizeResponse{
		Text:       req.Text,
		Normalized: h.engine.Normalize(req.Text),
		Parsed:     h.engine.Parse(req.Text),
	})
}

// Match 比對兩段食材文字
func (h *Handler) Match(c *gin.Context) {
	var req MatchRequest
	if !handlers.BindJSON(c, &req) {
		return
	}

	res := h.engine.Match(req.A, req.B)
	if !req.Debug {
		res.DebugPath = nil
	}
	c.JSON(http.StatusOK, MatchResponse{
		MatchResult: res,
		Level:       coreIngredient.ConfidenceLevel(res.Confidence),
	})
}

// Resolve 將文字對應到標準食材
func (h *Handler) Resolve(c *gin.Context) {
	var req ResolveRequest
	if !handlers.BindJSON(c, &req) {
		return
	}

	res := h.engine.Resolve(req.Text)
	if !req.Debug {
		res.DebugPath = nil
	}
	resp := ResolveResponse{
		MatchResult: res,
		Level:       coreIngredient.ConfidenceLevel(res.Confidence),
	}
	if res.Matched() {
		resp.Ingredient, _ = h.engine.Registry().ByID(res.CanonicalID)
	}
	c.JSON(http.StatusOK, resp)
}

// Get 依 id 取得標準食材
func (h *Handler) Get(c *gin.Context) {
	ing, err := h.engine.Ingredient(c.Param("id"))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ing)
}

// Convert 單位換算；換算失敗仍回傳 200 與失敗原因
func (h *Handler) Convert(c *gin.Context) {
	var req ConvertRequest
	if !handlers.BindJSON(c, &req) {
		return
	}

	res, err := h.engine.Convert(*req.Quantity, req.From, req.To, req.IngredientID)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	resp := ConvertResponse{Result: res}
	if res.Success {
		q, u := unit.NormalizeForDisplay(res.Value, res.Unit)
		resp.Display = common.FormatQuantity(q, u)
	}
	c.JSON(http.StatusOK, resp)
}
