package support

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/giveaway/pkg/logger"
	"github.com/richxcame/giveaway/pkg/security"
	"go.uber.org/zap"
)

const (
	maxNameLength    = 128
	maxMessageLength = 4000
)

// TicketRepository defines the storage operations the service needs.
type TicketRepository interface {
	CreateTicket(ctx context.Context, ticket *Ticket) error
	GetTicketByID(ctx context.Context, id uuid.UUID) (*Ticket, error)
	ListOpenTickets(ctx context.Context) ([]*Ticket, error)
	SaveReply(ctx context.Context, id uuid.UUID, reply string, repliedAt time.Time) error
	CloseTicket(ctx context.Context, id uuid.UUID) error
}

// Service coordinates support ticket operations
type Service struct {
	repo TicketRepository
	now  func() time.Time
}

// NewService creates a new support service
func NewService(repo TicketRepository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// CreateTicket stores a new participant question and returns it
func (s *Service) CreateTicket(ctx context.Context, req *CreateTicketRequest) (*Ticket, error) {
	ticket := &Ticket{
		ID:        uuid.New(),
		AccountID: req.AccountID,
		Name:      security.SanitizeInput(req.Name, maxNameLength),
		Username:  security.SanitizeInput(req.Username, maxNameLength),
		Message:   security.SanitizeInput(req.Message, maxMessageLength),
		Status:    StatusOpen,
		CreatedAt: s.now(),
	}

	if err := s.repo.CreateTicket(ctx, ticket); err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info("support ticket created",
		zap.String("ticket_id", ticket.ID.String()),
		zap.Int64("account_id", req.AccountID),
	)
	return ticket, nil
}

// GetTicket returns one ticket by ID
func (s *Service) GetTicket(ctx context.Context, id uuid.UUID) (*Ticket, error) {
	return s.repo.GetTicketByID(ctx, id)
}

// ListOpen returns the open ticket queue
func (s *Service) ListOpen(ctx context.Context) ([]*Ticket, error) {
	return s.repo.ListOpenTickets(ctx)
}

// Reply stores the admin answer and closes the ticket
func (s *Service) Reply(ctx context.Context, id uuid.UUID, reply string) (*Ticket, error) {
	if err := s.repo.SaveReply(ctx, id, reply, s.now()); err != nil {
		return nil, err
	}
	return s.repo.GetTicketByID(ctx, id)
}

// Close closes a ticket without answering it
func (s *Service) Close(ctx context.Context, id uuid.UUID) error {
	return s.repo.CloseTicket(ctx, id)
}
