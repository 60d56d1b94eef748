// internal/repository/command_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"terminal-bridge/internal/database"
	"terminal-bridge/internal/model"
)

// commandRepository implements CommandRepository on PostgreSQL
type commandRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewCommandRepository creates a new PostgreSQL command journal
func NewCommandRepository(db *database.DB, logger *zap.Logger) CommandRepository {
	return &commandRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a journal entry
func (r *commandRepository) Create(ctx context.Context, record *model.CommandRecord) error {
	query := `
		INSERT INTO command_journal (
			id, method, source, status, error_code, error_message,
			started_at, completed_at, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		record.ID, record.Method, record.Source, record.Status,
		record.ErrorCode, record.ErrorMessage, record.StartedAt,
		record.CompletedAt, record.DurationMs,
	)

	if err != nil {
		r.logger.Error("Failed to create command record", zap.Error(err))
		return fmt.Errorf("failed to create command record: %w", err)
	}

	return nil
}

// GetByID retrieves a journal entry by ID
func (r *commandRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.CommandRecord, error) {
	query := `
		SELECT id, method, source, status, error_code, error_message,
			   started_at, completed_at, duration_ms
		FROM command_journal WHERE id = $1
	`

	record, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrCommandNotFound, id)
		}
		return nil, fmt.Errorf("failed to get command record: %w", err)
	}

	return record, nil
}

// Update stores the outcome of a journal entry
func (r *commandRepository) Update(ctx context.Context, record *model.CommandRecord) error {
	query := `
		UPDATE command_journal SET
			status = $2, error_code = $3, error_message = $4,
			completed_at = $5, duration_ms = $6
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		record.ID, record.Status, record.ErrorCode, record.ErrorMessage,
		record.CompletedAt, record.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("failed to update command record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrCommandNotFound, record.ID)
	}

	return nil
}

// List retrieves the most recent journal entries matching filter
func (r *commandRepository) List(ctx context.Context, filter *CommandFilter) ([]*model.CommandRecord, error) {
	whereConditions := []string{}
	args := []interface{}{}
	argIndex := 1

	if filter != nil && filter.Method != nil {
		whereConditions = append(whereConditions, fmt.Sprintf("method = $%d", argIndex))
		args = append(args, *filter.Method)
		argIndex++
	}

	if filter != nil && filter.Status != nil {
		whereConditions = append(whereConditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	if filter != nil && filter.Source != nil {
		whereConditions = append(whereConditions, fmt.Sprintf("source = $%d", argIndex))
		args = append(args, *filter.Source)
		argIndex++
	}

	whereClause := ""
	if len(whereConditions) > 0 {
		whereClause = "WHERE " + strings.Join(whereConditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT id, method, source, status, error_code, error_message,
			   started_at, completed_at, duration_ms
		FROM command_journal %s
		ORDER BY started_at DESC
		LIMIT $%d
	`, whereClause, argIndex)
	args = append(args, filter.EffectiveLimit())

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list command records: %w", err)
	}
	defer rows.Close()

	records := []*model.CommandRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan command record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate command records: %w", err)
	}

	r.logger.Debug("Command records listed",
		zap.Int("count", len(records)),
		zap.Duration("duration", time.Since(start)),
	)
	return records, nil
}

// DeleteOlderThan removes journal entries started before olderThan
func (r *commandRepository) DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `DELETE FROM command_journal WHERE started_at < $1`

	result, err := r.db.ExecContext(ctx, query, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old command records: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*model.CommandRecord, error) {
	record := &model.CommandRecord{}
	var (
		errorCode    sql.NullString
		errorMessage sql.NullString
		completedAt  sql.NullTime
		durationMs   sql.NullInt64
	)

	err := row.Scan(
		&record.ID, &record.Method, &record.Source, &record.Status,
		&errorCode, &errorMessage, &record.StartedAt, &completedAt, &durationMs,
	)
	if err != nil {
		return nil, err
	}

	if errorCode.Valid {
		record.ErrorCode = &errorCode.String
	}
	if errorMessage.Valid {
		record.ErrorMessage = &errorMessage.String
	}
	if completedAt.Valid {
		record.CompletedAt = &completedAt.Time
	}
	if durationMs.Valid {
		duration := int(durationMs.Int64)
		record.DurationMs = &duration
	}

	return record, nil
}
