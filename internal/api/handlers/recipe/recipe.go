package recipe

import (
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pantry-matcher/internal/api/handlers"
	"pantry-matcher/internal/core/engine"
	"pantry-matcher/internal/pkg/common"
)

// ScoreRequest 單一食譜評分請求
type ScoreRequest struct {
	Recipe    common.Recipe          `json:"recipe"`
	Inventory []common.InventoryItem `json:"inventory"`
}

// BatchScoreRequest 批次評分請求
type BatchScoreRequest struct {
	Recipes   []common.Recipe        `json:"recipes" binding:"required"`
	Inventory []common.InventoryItem `json:"inventory"`
}

// BatchScoreResponse 批次評分結果，依總分排序
type BatchScoreResponse struct {
	Scores []common.RecipeScore `json:"scores"`
	Count  int                  `json:"count"`
}

// NeededRequest 購物缺口請求
type NeededRequest struct {
	Recipe    common.Recipe          `json:"recipe"`
	Inventory []common.InventoryItem `json:"inventory"`
}

// NeededResponse 購物缺口
type NeededResponse struct {
	Needed []common.NeededIngredient `json:"needed"`
}

// MergeRequest 合併購物清單請求
type MergeRequest struct {
	Needed   []common.NeededIngredient `json:"needed" binding:"required"`
	Existing []common.ShoppingListItem `json:"existing"`
}

// Handler 食譜評分與購物清單處理程序
type Handler struct {
	engine *engine.Engine
}

// NewHandler 創建新的食譜處理程序
func NewHandler(e *engine.Engine) *Handler {
	return &Handler{engine: e}
}

// Score 計算單一食譜分數
func (h *Handler) Score(c *gin.Context) {
	var req ScoreRequest
	if !handlers.BindJSON(c, &req) {
		return
	}

	score, hit := h.engine.ScoreRecipeCached(c.Request.Context(), req.Recipe, req.Inventory)

	common.LogDebug("食譜評分完成",
		zap.String("request_id", requestid.Get(c)),
		zap.String("recipe_id", score.RecipeID),
		zap.Float64("total_score", score.TotalScore),
		zap.Bool("cache_hit", hit),
	)
	// 快取狀態只放在標頭，回應本體與第一次計算完全相同
	if hit {
		c.Header(common.CacheStatusHeader, "HIT")
	} else {
		c.Header(common.CacheStatusHeader, "MISS")
	}
	c.JSON(http.StatusOK, score)
}

// ScoreBatch 批次評分並排序
func (h *Handler) ScoreBatch(c *gin.Context) {
	var req BatchScoreRequest
	if !handlers.BindJSON(c, &req) {
		return
	}

	scores, err := h.engine.ScoreRecipes(c.Request.Context(), req.Recipes, req.Inventory)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	common.LogInfo("批次評分請求完成",
		zap.String("request_id", requestid.Get(c)),
		zap.Int("recipes", len(req.Recipes)),
		zap.Int("inventory", len(req.Inventory)),
	)
	c.JSON(http.StatusOK, BatchScoreResponse{Scores: scores, Count: len(scores)})
}

// Needed 計算購物缺口
func (h *Handler) Needed(c *gin.Context) {
	var req NeededRequest
	if !handlers.BindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, NeededResponse{
		Needed: h.engine.CalculateNeeded(req.Recipe, req.Inventory),
	})
}

// Merge 合併缺口到既有購物清單
func (h *Handler) Merge(c *gin.Context) {
	var req MergeRequest
	if !handlers.BindJSON(c, &req) {
		return
	}

	result := h.engine.MergeIntoList(req.Needed, req.Existing)

	common.LogInfo("購物清單合併完成",
		zap.String("request_id", requestid.Get(c)),
		zap.Int("to_add", len(result.ToAdd)),
		zap.Int("to_update", len(result.ToUpdate)),
	)
	c.JSON(http.StatusOK, result)
}
