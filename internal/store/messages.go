package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dvloznov/spendwise/internal/domain"
)

const messageCols = `id, remote_id, text, is_ai, ts, synced`

// PutMessage appends a chat message and returns its local id. Messages are
// append-only for consumers; UpdateMessage exists solely so the sync engine
// can record remote ids and sync state.
func (s *Store) PutMessage(ctx context.Context, m domain.AiMessage) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO ai_messages (remote_id, text, is_ai, ts, synced)
		VALUES (?, ?, ?, ?, ?)`,
		m.RemoteID, m.Text, boolInt(m.IsAi), m.Timestamp, boolInt(m.Synced))
	if err != nil {
		return 0, fmt.Errorf("store.PutMessage: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store.PutMessage: last insert id: %w", err)
	}
	s.notify(KindMessages)
	return id, nil
}

// UpdateMessage overwrites the record with m's id. Missing id is ErrNotFound.
func (s *Store) UpdateMessage(ctx context.Context, m domain.AiMessage) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE ai_messages SET remote_id = ?, text = ?, is_ai = ?, ts = ?, synced = ?
		WHERE id = ?`,
		m.RemoteID, m.Text, boolInt(m.IsAi), m.Timestamp, boolInt(m.Synced), m.ID)
	if err != nil {
		return fmt.Errorf("store.UpdateMessage: %w", err)
	}
	if err := affected(res, "UpdateMessage"); err != nil {
		return err
	}
	s.notify(KindMessages)
	return nil
}

// DeleteMessage removes the record by local id. Only the initial-sync
// reconciliation uses this (remote-deleted history); consumers never delete.
func (s *Store) DeleteMessage(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM ai_messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store.DeleteMessage: %w", err)
	}
	if err := affected(res, "DeleteMessage"); err != nil {
		return err
	}
	s.notify(KindMessages)
	return nil
}

// GetMessage fetches one record by local id.
func (s *Store) GetMessage(ctx context.Context, id int64) (domain.AiMessage, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+messageCols+` FROM ai_messages WHERE id = ?`, id)
	m, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return domain.AiMessage{}, fmt.Errorf("store.GetMessage: %w", ErrNotFound)
	}
	if err != nil {
		return domain.AiMessage{}, fmt.Errorf("store.GetMessage: %w", err)
	}
	return m, nil
}

// GetMessageByRemoteID fetches one record by remote document id.
func (s *Store) GetMessageByRemoteID(ctx context.Context, remoteID string) (domain.AiMessage, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+messageCols+` FROM ai_messages WHERE remote_id = ?`, remoteID)
	m, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return domain.AiMessage{}, fmt.Errorf("store.GetMessageByRemoteID: %w", ErrNotFound)
	}
	if err != nil {
		return domain.AiMessage{}, fmt.Errorf("store.GetMessageByRemoteID: %w", err)
	}
	return m, nil
}

// ListMessages returns the chat history in conversation order.
func (s *Store) ListMessages(ctx context.Context) ([]domain.AiMessage, error) {
	return s.queryMessages(ctx, `SELECT `+messageCols+` FROM ai_messages ORDER BY ts ASC, id ASC`)
}

// UnsyncedMessages returns records awaiting upload, oldest first.
func (s *Store) UnsyncedMessages(ctx context.Context) ([]domain.AiMessage, error) {
	return s.queryMessages(ctx, `SELECT `+messageCols+` FROM ai_messages WHERE synced = 0 ORDER BY id ASC`)
}

func (s *Store) queryMessages(ctx context.Context, query string, args ...any) ([]domain.AiMessage, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query messages: %w", err)
	}
	defer rows.Close()

	var out []domain.AiMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMessage(row rowScanner) (domain.AiMessage, error) {
	var (
		m            domain.AiMessage
		isAi, synced int
	)
	if err := row.Scan(&m.ID, &m.RemoteID, &m.Text, &isAi, &m.Timestamp, &synced); err != nil {
		return domain.AiMessage{}, err
	}
	m.IsAi = isAi != 0
	m.Synced = synced != 0
	return m, nil
}
