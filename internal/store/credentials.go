package store

import (
	"database/sql"
	"fmt"
	"time"
)

// sessionCredentialTTL matches the lifetime of a voice session API token.
const sessionCredentialTTL = time.Hour

// SessionCredential is the device-notification credential captured from the
// most recent voice session. It addresses the tier-1 notification endpoint.
type SessionCredential struct {
	AccessToken string
	Endpoint    string
	UpdatedAt   int64
	ExpiresAt   int64
}

// ActiveNotification records a posted device notification so a later decision
// can retract it.
type ActiveNotification struct {
	NotificationID string
	AccessToken    string
	Endpoint       string
	ExpiresAt      int64
}

// SaveSessionCredential stores the session API token and endpoint, replacing
// any previous credential. Empty values are ignored.
func (s *Store) SaveSessionCredential(accessToken, endpoint string) error {
	if accessToken == "" || endpoint == "" {
		return nil
	}

	now := time.Now().Unix()
	_, err := s.db.Exec(`
		INSERT INTO credentials (pk, access_token, endpoint, updated_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(pk) DO UPDATE SET
			access_token = excluded.access_token,
			endpoint = excluded.endpoint,
			updated_at = excluded.updated_at,
			expires_at = excluded.expires_at`,
		keyAPIToken, accessToken, endpoint, now, now+int64(sessionCredentialTTL.Seconds()))
	if err != nil {
		return fmt.Errorf("save session credential: %w", err)
	}

	return nil
}

// SessionCredential returns the stored credential, or nil when absent or expired.
func (s *Store) SessionCredential() (*SessionCredential, error) {
	var c SessionCredential
	err := s.db.QueryRow(`
		SELECT access_token, endpoint, updated_at, expires_at
		FROM credentials WHERE pk = ?`, keyAPIToken).
		Scan(&c.AccessToken, &c.Endpoint, &c.UpdatedAt, &c.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session credential: %w", err)
	}

	if c.ExpiresAt <= time.Now().Unix() {
		return nil, nil
	}

	return &c, nil
}

// SaveUnicastTarget stores the voice user id used to address feed events to a
// single individual. An empty id is ignored.
func (s *Store) SaveUnicastTarget(userID string) error {
	if userID == "" {
		return nil
	}

	_, err := s.db.Exec(`
		INSERT INTO targets (pk, user_id, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(pk) DO UPDATE SET user_id = excluded.user_id, updated_at = excluded.updated_at`,
		keyUser, userID, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save unicast target: %w", err)
	}

	return nil
}

// UnicastTarget returns the stored voice user id, or "" if none is on record.
func (s *Store) UnicastTarget() (string, error) {
	var userID string
	err := s.db.QueryRow("SELECT user_id FROM targets WHERE pk = ?", keyUser).Scan(&userID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get unicast target: %w", err)
	}
	return userID, nil
}

// SaveActiveNotification records a successfully posted device notification
// together with the credential needed to delete it later.
func (s *Store) SaveActiveNotification(n *ActiveNotification) error {
	_, err := s.db.Exec(`
		INSERT INTO notifications (pk, notification_id, access_token, endpoint, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(pk) DO UPDATE SET
			notification_id = excluded.notification_id,
			access_token = excluded.access_token,
			endpoint = excluded.endpoint,
			expires_at = excluded.expires_at`,
		keyNotification, n.NotificationID, n.AccessToken, n.Endpoint, n.ExpiresAt)
	if err != nil {
		return fmt.Errorf("save active notification: %w", err)
	}

	return nil
}

// ActiveNotification returns the outstanding device notification, or nil when
// there is none or it has expired.
func (s *Store) ActiveNotification() (*ActiveNotification, error) {
	var n ActiveNotification
	err := s.db.QueryRow(`
		SELECT notification_id, access_token, endpoint, expires_at
		FROM notifications WHERE pk = ?`, keyNotification).
		Scan(&n.NotificationID, &n.AccessToken, &n.Endpoint, &n.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active notification: %w", err)
	}

	if n.ExpiresAt <= time.Now().Unix() {
		return nil, nil
	}

	return &n, nil
}

// DeleteActiveNotification removes the notification record.
func (s *Store) DeleteActiveNotification() error {
	if _, err := s.db.Exec("DELETE FROM notifications WHERE pk = ?", keyNotification); err != nil {
		return fmt.Errorf("delete active notification: %w", err)
	}
	return nil
}
