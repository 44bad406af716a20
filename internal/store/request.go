package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Request statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusDenied   = "denied"
)

const (
	// maxToolDetailLen caps the stored tool detail.
	maxToolDetailLen = 500

	// requestTTL is how long a request stays visible to readers.
	requestTTL = time.Hour
)

// ErrConflict is returned by Decide when the current request is not pending:
// it was already decided, expired, or never existed.
var ErrConflict = errors.New("request already handled")

// Request is the singleton approval request awaiting a decision.
type Request struct {
	ID         string
	ToolName   string
	ToolDetail string
	Status     string
	CreatedAt  int64
	DecidedAt  int64
	ExpiresAt  int64
}

// CreateRequest writes a fresh pending request, unconditionally replacing any
// existing record regardless of its status (latest request wins). The tool
// detail is truncated before storage. Returns the generated request id.
func (s *Store) CreateRequest(toolName, toolDetail string) (string, error) {
	if toolName == "" {
		toolName = "unknown"
	}
	if len(toolDetail) > maxToolDetailLen {
		toolDetail = toolDetail[:maxToolDetailLen]
	}

	id := uuid.New().String()
	now := time.Now().Unix()

	_, err := s.db.Exec(`
		INSERT INTO requests (pk, request_id, tool_name, tool_detail, status, created_at, decided_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?)
		ON CONFLICT(pk) DO UPDATE SET
			request_id = excluded.request_id,
			tool_name = excluded.tool_name,
			tool_detail = excluded.tool_detail,
			status = excluded.status,
			created_at = excluded.created_at,
			decided_at = 0,
			expires_at = excluded.expires_at`,
		keyCurrent, id, toolName, toolDetail, StatusPending, now, now+int64(requestTTL.Seconds()))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	return id, nil
}

// ReadCurrent returns the current request, or nil if there is none. Expired
// records are treated as absent. If matchID is non-empty and does not match
// the stored id, nil is returned; this protects pollers against reading a
// request that overwrote the one they created.
func (s *Store) ReadCurrent(matchID string) (*Request, error) {
	var r Request
	err := s.db.QueryRow(`
		SELECT request_id, tool_name, tool_detail, status, created_at, decided_at, expires_at
		FROM requests WHERE pk = ?`, keyCurrent).
		Scan(&r.ID, &r.ToolName, &r.ToolDetail, &r.Status, &r.CreatedAt, &r.DecidedAt, &r.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read current request: %w", err)
	}

	if r.ExpiresAt <= time.Now().Unix() {
		return nil, nil
	}
	if matchID != "" && r.ID != matchID {
		return nil, nil
	}

	return &r, nil
}

// Pending returns the current request only if it is still pending, nil otherwise.
func (s *Store) Pending() (*Request, error) {
	r, err := s.ReadCurrent("")
	if err != nil {
		return nil, err
	}
	if r == nil || r.Status != StatusPending {
		return nil, nil
	}
	return r, nil
}

// Decide transitions the current request from pending to the given terminal
// status. It is a compare-and-set: the single conditional UPDATE succeeds only
// while the stored status is exactly pending and the record has not expired.
// Concurrent approve/deny attempts yield exactly one success; every other
// caller gets ErrConflict.
func (s *Store) Decide(decision string) error {
	if decision != StatusApproved && decision != StatusDenied {
		return fmt.Errorf("invalid decision %q", decision)
	}

	now := time.Now().Unix()
	res, err := s.db.Exec(`
		UPDATE requests SET status = ?, decided_at = ?
		WHERE pk = ? AND status = ? AND expires_at > ?`,
		decision, now, keyCurrent, StatusPending, now)
	if err != nil {
		return fmt.Errorf("decide request: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decide request: %w", err)
	}
	if n == 0 {
		return ErrConflict
	}

	return nil
}
