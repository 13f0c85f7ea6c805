package support

import (
	"time"

	"github.com/google/uuid"
)

// TicketStatus is the lifecycle state of a support ticket
type TicketStatus string

const (
	StatusOpen   TicketStatus = "open"
	StatusClosed TicketStatus = "closed"
)

// Ticket is one participant question waiting for an admin reply.
type Ticket struct {
	ID        uuid.UUID    `json:"id" db:"id"`
	AccountID int64        `json:"account_id" db:"account_id"`
	Name      string       `json:"name" db:"name"`
	Username  string       `json:"username" db:"username"`
	Message   string       `json:"message" db:"message"`
	Status    TicketStatus `json:"status" db:"status"`
	Reply     string       `json:"reply,omitempty" db:"reply"`
	RepliedAt *time.Time   `json:"replied_at,omitempty" db:"replied_at"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}

// CreateTicketRequest carries a new ticket from the chat layer.
type CreateTicketRequest struct {
	AccountID int64  `json:"account_id" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Username  string `json:"username"`
	Message   string `json:"message" binding:"required"`
}

// ReplyRequest carries an admin reply.
type ReplyRequest struct {
	Reply string `json:"reply" binding:"required"`
}
