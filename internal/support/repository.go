package support

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrTicketNotFound is returned when a ticket does not exist
var ErrTicketNotFound = errors.New("ticket not found")

// Repository handles support ticket storage
type Repository struct {
	db *pgxpool.Pool
}

// Ensure the concrete repository satisfies the service's requirements.
var _ TicketRepository = (*Repository)(nil)

// NewRepository creates a new support repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateTicket stores a new ticket
func (r *Repository) CreateTicket(ctx context.Context, ticket *Ticket) error {
	query := `
		INSERT INTO support_tickets (id, account_id, name, username, message, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		ticket.ID,
		ticket.AccountID,
		ticket.Name,
		ticket.Username,
		ticket.Message,
		ticket.Status,
		ticket.CreatedAt,
	)
	return err
}

const ticketColumns = `
	id, account_id, name, COALESCE(username, ''), message, status,
	COALESCE(reply, ''), replied_at, created_at
`

func scanTicket(row pgx.Row) (*Ticket, error) {
	var t Ticket
	err := row.Scan(
		&t.ID,
		&t.AccountID,
		&t.Name,
		&t.Username,
		&t.Message,
		&t.Status,
		&t.Reply,
		&t.RepliedAt,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return &t, nil
}

// GetTicketByID retrieves one ticket
func (r *Repository) GetTicketByID(ctx context.Context, id uuid.UUID) (*Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM support_tickets WHERE id = $1`
	return scanTicket(r.db.QueryRow(ctx, query, id))
}

// ListOpenTickets returns open tickets, oldest first so nothing starves
func (r *Repository) ListOpenTickets(ctx context.Context) ([]*Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM support_tickets WHERE status = 'open' ORDER BY created_at`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]*Ticket, 0)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			continue
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

// SaveReply stores the admin reply and closes the ticket
func (r *Repository) SaveReply(ctx context.Context, id uuid.UUID, reply string, repliedAt time.Time) error {
	query := `
		UPDATE support_tickets
		SET reply = $2, replied_at = $3, status = 'closed'
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id, reply, repliedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTicketNotFound
	}
	return nil
}

// CloseTicket closes a ticket without a reply
func (r *Repository) CloseTicket(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE support_tickets SET status = 'closed' WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTicketNotFound
	}
	return nil
}
