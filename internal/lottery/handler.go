package lottery

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/giveaway/pkg/common"
)

// Handler handles HTTP requests for the lottery service
type Handler struct {
	service *Service
}

// NewHandler creates a new lottery handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts draw operations on the admin group
func (h *Handler) RegisterRoutes(admin *gin.RouterGroup) {
	admin.POST("/lottery/draw", h.Draw)
	admin.GET("/lottery/winners", h.Winners)
	admin.POST("/lottery/verify", h.Verify)
}

// Draw runs the campaign draw and returns the winners with the seed
func (h *Handler) Draw(c *gin.Context) {
	result, err := h.service.Draw(c.Request.Context())
	if err != nil {
		if strings.Contains(err.Error(), "no eligible entries") {
			common.ErrorResponse(c, http.StatusConflict, err.Error())
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to run draw")
		return
	}
	common.SuccessResponse(c, result)
}

// Winners returns the current winners
func (h *Handler) Winners(c *gin.Context) {
	winners, err := h.service.Winners(c.Request.Context())
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to list winners")
		return
	}
	common.SuccessResponse(c, winners)
}

// Verify replays a published draw so anyone can audit the result
func (h *Handler) Verify(c *gin.Context) {
	var req struct {
		Seed         string `json:"seed" binding:"required"`
		Campaign     string `json:"campaign" binding:"required"`
		Total        int    `json:"total" binding:"required,gt=0"`
		WinnerNumber int    `json:"winner_number" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BindErrorResponse(c, err)
		return
	}

	common.SuccessResponse(c, gin.H{
		"valid":           Verify(req.Seed, req.Campaign, req.Total, req.WinnerNumber),
		"expected_number": WinnerNumber(req.Seed, req.Campaign, req.Total),
	})
}
