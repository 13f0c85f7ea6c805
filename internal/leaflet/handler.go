package leaflet

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/giveaway/pkg/common"
)

// Handler handles HTTP requests for leaflet template management
type Handler struct {
	repo *Repository
}

// NewHandler creates a new leaflet template handler
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// RegisterRoutes mounts template CRUD on the admin group
func (h *Handler) RegisterRoutes(admin *gin.RouterGroup) {
	admin.POST("/templates", h.Create)
	admin.GET("/templates", h.List)
	admin.GET("/templates/active", h.Active)
	admin.GET("/templates/:id", h.Get)
	admin.DELETE("/templates/:id", h.Delete)
}

// Create stores a new validation template
func (h *Handler) Create(c *gin.Context) {
	var tpl Template
	if err := c.ShouldBindJSON(&tpl); err != nil {
		common.BindErrorResponse(c, err)
		return
	}
	if tpl.Name == "" {
		common.ErrorResponse(c, http.StatusBadRequest, "name is required")
		return
	}
	for _, z := range tpl.Zones {
		if z.X < 0 || z.Y < 0 || z.X+z.W > 1 || z.Y+z.H > 1 || z.W <= 0 || z.H <= 0 {
			common.ErrorResponse(c, http.StatusBadRequest, "validation zones must be relative rectangles within [0,1]")
			return
		}
	}

	id, err := h.repo.CreateTemplate(c.Request.Context(), &tpl)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to create template")
		return
	}
	tpl.ID = id

	common.CreatedResponse(c, tpl)
}

// List returns all templates
func (h *Handler) List(c *gin.Context) {
	templates, err := h.repo.ListTemplates(c.Request.Context())
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to list templates")
		return
	}
	common.SuccessResponse(c, templates)
}

// Active returns the template currently used for sticker validation
func (h *Handler) Active(c *gin.Context) {
	tpl, err := h.repo.GetActiveTemplate(c.Request.Context(), time.Now())
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to get active template")
		return
	}
	if tpl == nil {
		common.ErrorResponse(c, http.StatusNotFound, "no template configured")
		return
	}
	common.SuccessResponse(c, tpl)
}

// Get returns one template by ID
func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid template id")
		return
	}

	tpl, err := h.repo.GetTemplate(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			common.ErrorResponse(c, http.StatusNotFound, "template not found")
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to get template")
		return
	}
	common.SuccessResponse(c, tpl)
}

// Delete removes a template
func (h *Handler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid template id")
		return
	}

	if err := h.repo.DeleteTemplate(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			common.ErrorResponse(c, http.StatusNotFound, "template not found")
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to delete template")
		return
	}
	common.SuccessResponse(c, gin.H{"deleted": true})
}
