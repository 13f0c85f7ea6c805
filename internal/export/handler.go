package export

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/giveaway/pkg/common"
)

// Handler handles HTTP requests for application exports
type Handler struct {
	service *Service
}

// NewHandler creates a new export handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts export downloads on the admin group
func (h *Handler) RegisterRoutes(admin *gin.RouterGroup) {
	admin.GET("/export", h.Export)
}

// Export generates a fresh export and serves it as a download.
// ?format=excel produces XLSX, anything else CSV.
func (h *Handler) Export(c *gin.Context) {
	var path string
	var err error

	switch c.Query("format") {
	case "excel", "xlsx":
		path, err = h.service.ExportExcel(c.Request.Context())
	default:
		path, err = h.service.ExportCSV(c.Request.Context())
	}
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to generate export")
		return
	}

	c.FileAttachment(path, filepath.Base(path))
}
