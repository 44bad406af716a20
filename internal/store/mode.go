package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Mode selects which channel receives approval prompts.
type Mode string

const (
	// ModeRelay routes approvals through the chat relay (terminal hook handles prompts).
	ModeRelay Mode = "relay-channel"
	// ModeVoice routes approvals through the voice assistant with proactive notifications.
	ModeVoice Mode = "voice-channel"
	// ModeDisabled suppresses all approval notifications.
	ModeDisabled Mode = "disabled"
)

// ParseMode validates a raw mode value against the known modes.
func ParseMode(raw string) (Mode, error) {
	switch Mode(raw) {
	case ModeRelay, ModeVoice, ModeDisabled:
		return Mode(raw), nil
	default:
		return "", fmt.Errorf("mode must be %q, %q, or %q", ModeRelay, ModeVoice, ModeDisabled)
	}
}

// GetMode returns the persisted mode, defaulting to ModeRelay when unset.
func (s *Store) GetMode() (Mode, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM modes WHERE pk = ?", keyMode).Scan(&value)
	if err == sql.ErrNoRows {
		return ModeRelay, nil
	}
	if err != nil {
		return "", fmt.Errorf("get mode: %w", err)
	}

	mode, err := ParseMode(value)
	if err != nil {
		// A corrupt stored value falls back to the default rather than failing reads.
		return ModeRelay, nil
	}
	return mode, nil
}

// SetMode persists a new mode. Invalid values are rejected with no write.
func (s *Store) SetMode(mode Mode) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}

	_, err := s.db.Exec(`
		INSERT INTO modes (pk, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(pk) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		keyMode, string(mode), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("set mode: %w", err)
	}

	return nil
}
