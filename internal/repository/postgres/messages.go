package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victor-wayward/ironode/internal/core/domain"
)

// MessageRepository stores contact-form submissions as an append-only log.
type MessageRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewMessageRepository wires a PostgreSQL-backed contact message repository.
func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Append persists a contact message. Messages are never updated or deleted.
func (r *MessageRepository) Append(ctx context.Context, message domain.ContactMessage) error {
	stmt, args, err := r.builder.Insert("contact_messages").
		Columns("id", "name", "email", "body", "created_at").
		Values(message.ID, message.Name, message.Email, message.Body, message.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert contact message sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert contact message: %w", err)
	}

	return nil
}
