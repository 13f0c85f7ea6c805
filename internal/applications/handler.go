package applications

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/giveaway/pkg/common"
	"github.com/richxcame/giveaway/pkg/pagination"
)

// maxPhotoBytes caps an uploaded leaflet photo at 10 MB
const maxPhotoBytes = 10 << 20

// Handler handles HTTP requests for the applications service
type Handler struct {
	service *Service
}

// NewHandler creates a new applications handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the handler. public carries the submission endpoint;
// admin is expected to already require authentication.
func (h *Handler) RegisterRoutes(public, admin *gin.RouterGroup) {
	public.POST("/applications", h.Register)

	admin.GET("/applications", h.List)
	admin.POST("/applications", h.AdminCreate)
	admin.GET("/applications/stats", h.Stats)
	admin.GET("/applications/clusters", h.Clusters)
	admin.GET("/applications/:id", h.Get)
	admin.PATCH("/applications/:id", h.Update)
	admin.GET("/applications/:id/photo", h.Photo)
	admin.POST("/applications/:id/approve", h.Approve)
	admin.POST("/applications/:id/block", h.Block)
	admin.POST("/applications/:id/recompute-risk", h.RecomputeRisk)
	admin.POST("/applications/:id/reanalyze-leaflet", h.ReanalyzeLeaflet)
	admin.DELETE("/applications/:id", h.Delete)
}

// Register accepts one multipart submission: participant fields plus the
// leaflet photo under the "photo" form key.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		common.BindErrorResponse(c, err)
		return
	}

	file, err := c.FormFile("photo")
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "photo is required")
		return
	}
	if file.Size > maxPhotoBytes {
		common.ErrorResponse(c, http.StatusRequestEntityTooLarge, "photo exceeds 10MB limit")
		return
	}

	f, err := file.Open()
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "failed to read photo")
		return
	}
	defer f.Close()

	req.Photo, err = io.ReadAll(io.LimitReader(f, maxPhotoBytes+1))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "failed to read photo")
		return
	}

	result, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyRegistered):
			common.ErrorResponse(c, http.StatusConflict, "participant already registered")
		case errors.Is(err, ErrPhotoRequired):
			common.ErrorResponse(c, http.StatusBadRequest, "leaflet photo is required")
		default:
			common.ErrorResponse(c, http.StatusInternalServerError, "failed to register application")
		}
		return
	}

	common.CreatedResponse(c, result)
}

// List returns one filtered page of applications
func (h *Handler) List(c *gin.Context) {
	params := pagination.ParseParams(c)

	filter := ListFilter{
		Risk:   c.Query("risk"),
		Status: c.Query("status"),
		Limit:  params.Limit,
		Offset: params.Offset,
	}

	apps, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to list applications")
		return
	}

	common.SuccessResponseWithMeta(c, apps, pagination.BuildMeta(params.Limit, params.Offset, total))
}

// Get returns one application by ID
func (h *Handler) Get(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	app, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.notFoundOrInternal(c, err, "failed to get application")
		return
	}

	common.SuccessResponse(c, app)
}

// Approve marks an application approved and assigns its participant number
func (h *Handler) Approve(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	app, err := h.service.Approve(c.Request.Context(), id)
	if err != nil {
		h.notFoundOrInternal(c, err, "failed to approve application")
		return
	}

	common.SuccessResponse(c, app)
}

// Block marks an application blocked
func (h *Handler) Block(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	app, err := h.service.Block(c.Request.Context(), id)
	if err != nil {
		h.notFoundOrInternal(c, err, "failed to block application")
		return
	}

	common.SuccessResponse(c, app)
}

// AdminCreate registers a participant from the console, without a photo
func (h *Handler) AdminCreate(c *gin.Context) {
	var req AdminCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BindErrorResponse(c, err)
		return
	}

	app, err := h.service.AdminCreate(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrAlreadyRegistered) {
			common.ErrorResponse(c, http.StatusConflict, "participant already registered")
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to create application")
		return
	}

	common.CreatedResponse(c, app)
}

// Update fixes participant details
func (h *Handler) Update(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BindErrorResponse(c, err)
		return
	}

	app, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.notFoundOrInternal(c, err, "failed to update application")
		return
	}

	common.SuccessResponse(c, app)
}

// Photo serves the stored leaflet photo for manual review
func (h *Handler) Photo(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	photo, err := h.service.Photo(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNoStoredPhoto) {
			common.ErrorResponse(c, http.StatusNotFound, "application has no stored photo")
			return
		}
		h.notFoundOrInternal(c, err, "failed to read photo")
		return
	}

	c.Data(http.StatusOK, http.DetectContentType(photo), photo)
}

// ReanalyzeLeaflet re-runs photo validation against the stored photo
func (h *Handler) ReanalyzeLeaflet(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	app, err := h.service.ReanalyzeLeaflet(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNoStoredPhoto) {
			common.ErrorResponse(c, http.StatusConflict, "application has no stored photo")
			return
		}
		h.notFoundOrInternal(c, err, "failed to reanalyze leaflet")
		return
	}

	common.SuccessResponse(c, app)
}

// RecomputeRisk re-runs fraud scoring for an application
func (h *Handler) RecomputeRisk(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	risk, err := h.service.RecomputeRisk(c.Request.Context(), id)
	if err != nil {
		h.notFoundOrInternal(c, err, "failed to recompute risk")
		return
	}

	common.SuccessResponse(c, risk)
}

// Delete removes an application and its stored photo
func (h *Handler) Delete(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.notFoundOrInternal(c, err, "failed to delete application")
		return
	}

	common.SuccessResponse(c, gin.H{"deleted": true})
}

// Stats returns dashboard counters
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to get stats")
		return
	}

	common.SuccessResponse(c, stats)
}

// Clusters returns groups of likely-duplicate submissions
func (h *Handler) Clusters(c *gin.Context) {
	clusters, err := h.service.Clusters(c.Request.Context())
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to group applications")
		return
	}

	common.SuccessResponse(c, gin.H{
		"clusters": clusters,
		"count":    len(clusters),
	})
}

func (h *Handler) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid application id")
		return 0, false
	}
	return id, true
}

func (h *Handler) notFoundOrInternal(c *gin.Context, err error, msg string) {
	if errors.Is(err, ErrNotFound) {
		common.ErrorResponse(c, http.StatusNotFound, "application not found")
		return
	}
	common.ErrorResponse(c, http.StatusInternalServerError, msg)
}
