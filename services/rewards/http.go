package rewards

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"voyage-rewards/pkg/errutil"
)

// Handler exposes the engine over REST.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(engine *gin.Engine) {
	v1 := engine.Group("/v1")

	v1.POST("/actions", h.submitAction)
	v1.GET("/actions/catalog", h.catalog)

	members := v1.Group("/members/:member_id")
	members.GET("/eligibility/:action", h.eligibility)
	members.GET("/tier", h.tierInfo)
	members.GET("/balance", h.balance)
	members.GET("/actions", h.listActions)
}

func (h *Handler) submitAction(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	result, err := h.svc.SubmitAction(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	status := http.StatusCreated
	if !result.Accepted {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

func (h *Handler) eligibility(c *gin.Context) {
	report, err := h.svc.GetEligibility(c.Request.Context(),
		c.Param("member_id"), c.Param("action"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) tierInfo(c *gin.Context) {
	info, err := h.svc.GetTierInfo(c.Request.Context(), c.Param("member_id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *Handler) balance(c *gin.Context) {
	info, err := h.svc.GetBalance(c.Request.Context(), c.Param("member_id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *Handler) listActions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	records, err := h.svc.ListActions(c.Request.Context(), c.Param("member_id"), limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"actions": records})
}

func (h *Handler) catalog(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Catalog())
}
