package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hayzen-ai/hayzen-api/internal/database"
	"github.com/hayzen-ai/hayzen-api/internal/models"
	"github.com/jackc/pgx/v5"
)

type ChatRepository struct {
	db *database.DB
}

func NewChatRepository(db *database.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func scanChatRow(scanner rowScanner) (*models.ChatRecord, error) {
	var record models.ChatRecord

	err := scanner.Scan(
		&record.ID, &record.UserID, &record.Prompt, &record.Reply,
		&record.Engine, &record.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &record, nil
}

func scanChatRows(rows pgx.Rows) ([]*models.ChatRecord, error) {
	defer rows.Close()

	records := make([]*models.ChatRecord, 0)

	for rows.Next() {
		record, err := scanChatRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

func (r *ChatRepository) Create(ctx context.Context, record *models.ChatRecord) (*models.ChatRecord, error) {
	record.ID = uuid.New().String()
	record.CreatedAt = time.Now()

	query := `
		INSERT INTO chat_history (id, user_id, prompt, reply, engine, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, user_id, prompt, reply, engine, created_at
	`

	return scanChatRow(r.db.Pool.QueryRow(ctx, query,
		record.ID, record.UserID, record.Prompt, record.Reply,
		record.Engine, record.CreatedAt,
	))
}

// ListByUserID returns the user's chat history, newest first.
func (r *ChatRepository) ListByUserID(ctx context.Context, userID string) ([]*models.ChatRecord, error) {
	query := `
		SELECT id, user_id, prompt, reply, engine, created_at
		FROM chat_history
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat history: %w", err)
	}

	return scanChatRows(rows)
}
