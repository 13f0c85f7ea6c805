package support

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/richxcame/giveaway/pkg/common"
)

// Handler handles HTTP requests for the support service
type Handler struct {
	service *Service
}

// NewHandler creates a new support handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts ticket creation on the public group and the queue
// operations on the admin group.
func (h *Handler) RegisterRoutes(public, admin *gin.RouterGroup) {
	public.POST("/tickets", h.Create)

	admin.GET("/tickets", h.ListOpen)
	admin.GET("/tickets/:id", h.Get)
	admin.POST("/tickets/:id/reply", h.Reply)
	admin.POST("/tickets/:id/close", h.Close)
}

// Create stores a new participant question
func (h *Handler) Create(c *gin.Context) {
	var req CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BindErrorResponse(c, err)
		return
	}

	ticket, err := h.service.CreateTicket(c.Request.Context(), &req)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to create ticket")
		return
	}
	common.CreatedResponse(c, ticket)
}

// ListOpen returns the open ticket queue
func (h *Handler) ListOpen(c *gin.Context) {
	tickets, err := h.service.ListOpen(c.Request.Context())
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to list tickets")
		return
	}
	common.SuccessResponse(c, tickets)
}

// Get returns one ticket
func (h *Handler) Get(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	ticket, err := h.service.GetTicket(c.Request.Context(), id)
	if err != nil {
		h.notFoundOrInternal(c, err, "failed to get ticket")
		return
	}
	common.SuccessResponse(c, ticket)
}

// Reply stores the admin answer and closes the ticket
func (h *Handler) Reply(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BindErrorResponse(c, err)
		return
	}

	ticket, err := h.service.Reply(c.Request.Context(), id, req.Reply)
	if err != nil {
		h.notFoundOrInternal(c, err, "failed to reply to ticket")
		return
	}
	common.SuccessResponse(c, ticket)
}

// Close closes a ticket without answering it
func (h *Handler) Close(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.service.Close(c.Request.Context(), id); err != nil {
		h.notFoundOrInternal(c, err, "failed to close ticket")
		return
	}
	common.SuccessResponse(c, gin.H{"closed": true})
}

func (h *Handler) pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid ticket id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) notFoundOrInternal(c *gin.Context, err error, msg string) {
	if errors.Is(err, ErrTicketNotFound) {
		common.ErrorResponse(c, http.StatusNotFound, "ticket not found")
		return
	}
	common.ErrorResponse(c, http.StatusInternalServerError, msg)
}
