package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"cpl-edge-go/internal/models"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schemaSQL string

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// RunMigrations creates tables if they don't exist and applies schema updates
func (s *PostgresStore) RunMigrations(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return err
	}

	// Apply migrations for tables created by earlier versions
	migrations := []string{
		`ALTER TABLE push_subscriptions ADD COLUMN IF NOT EXISTS user_agent TEXT;`,
		`ALTER TABLE push_subscriptions ADD COLUMN IF NOT EXISTS active BOOLEAN NOT NULL DEFAULT TRUE;`,
	}

	for _, migration := range migrations {
		if _, err := s.db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// Subscription methods

// SaveSubscription upserts by endpoint. A re-subscription from the same
// browser refreshes keys, owner and user agent, and always forces the
// subscription back to active.
func (s *PostgresStore) SaveSubscription(ctx context.Context, sub models.PushSubscription) (models.PushSubscription, error) {
	var saved models.PushSubscription
	var userID sql.NullInt64
	if sub.UserID != nil {
		userID = sql.NullInt64{Int64: int64(*sub.UserID), Valid: true}
	}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO push_subscriptions (user_id, endpoint, p256dh, auth, user_agent, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, TRUE, NOW(), NOW())
		 ON CONFLICT (endpoint) DO UPDATE SET
		     user_id = EXCLUDED.user_id,
		     p256dh = EXCLUDED.p256dh,
		     auth = EXCLUDED.auth,
		     user_agent = EXCLUDED.user_agent,
		     active = TRUE,
		     updated_at = NOW()
		 RETURNING id, user_id, endpoint, p256dh, auth, user_agent, active, created_at, updated_at`,
		userID, sub.Endpoint, sub.P256dh, sub.Auth, sub.UserAgent,
	).Scan(&saved.ID, &userID, &saved.Endpoint, &saved.P256dh, &saved.Auth, &saved.UserAgent, &saved.Active, &saved.CreatedAt, &saved.UpdatedAt)

	if err != nil {
		return models.PushSubscription{}, err
	}

	if userID.Valid {
		id := int(userID.Int64)
		saved.UserID = &id
	}

	return saved, nil
}

func (s *PostgresStore) GetActiveSubscriptions(ctx context.Context, limit int) ([]models.PushSubscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, endpoint, p256dh, auth, COALESCE(user_agent, ''), active, created_at, updated_at
		 FROM push_subscriptions
		 WHERE active = TRUE
		 ORDER BY created_at ASC
		 LIMIT NULLIF($1, 0)`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []models.PushSubscription
	for rows.Next() {
		var sub models.PushSubscription
		var userID sql.NullInt64

		if err := rows.Scan(&sub.ID, &userID, &sub.Endpoint, &sub.P256dh, &sub.Auth, &sub.UserAgent, &sub.Active, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
			continue
		}
		if userID.Valid {
			id := int(userID.Int64)
			sub.UserID = &id
		}

		subs = append(subs, sub)
	}

	return subs, nil
}

func (s *PostgresStore) DeactivateSubscription(ctx context.Context, endpoint string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE push_subscriptions SET active = FALSE, updated_at = NOW() WHERE endpoint = $1`,
		endpoint,
	)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *PostgresStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE endpoint = $1`, endpoint)
	return err
}

// Notification methods

func (s *PostgresStore) CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Status == "" {
		n.Status = models.NotificationStatusSent
	}

	var saved models.Notification
	var image, icon, link sql.NullString

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO notifications (id, title, body, image, icon, link, sent_at, status)
		 VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NOW(), $7)
		 RETURNING id, title, body, image, icon, link, sent_at, status`,
		n.ID, n.Title, n.Body, n.Image, n.Icon, n.Link, n.Status,
	).Scan(&saved.ID, &saved.Title, &saved.Body, &image, &icon, &link, &saved.SentAt, &saved.Status)

	if err != nil {
		return models.Notification{}, err
	}

	saved.Image = image.String
	saved.Icon = icon.String
	saved.Link = link.String

	return saved, nil
}

func (s *PostgresStore) UpdateNotificationStatus(ctx context.Context, id, status string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET status = $1 WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *PostgresStore) GetNotifications(ctx context.Context) ([]models.Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, body, COALESCE(image, ''), COALESCE(icon, ''), COALESCE(link, ''), sent_at, status
		 FROM notifications ORDER BY sent_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.Title, &n.Body, &n.Image, &n.Icon, &n.Link, &n.SentAt, &n.Status); err != nil {
			continue
		}
		notifications = append(notifications, n)
	}

	return notifications, nil
}

func (s *PostgresStore) DeleteNotification(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *PostgresStore) DeleteAllNotifications(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM notifications`)
	return err
}

// User methods

func (s *PostgresStore) CreateUser(ctx context.Context, username, password, role string) (models.User, error) {
	passwordHash, err := models.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}

	var user models.User
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO users (username, password_hash, role, created_at)
		 VALUES ($1, $2, $3, NOW())
		 RETURNING id, username, password_hash, role, created_at`,
		username, passwordHash, role,
	).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.CreatedAt)

	if err != nil {
		return models.User{}, err
	}

	return user, nil
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User
	var totpSecret sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, role, totp_secret, totp_enabled, created_at FROM users WHERE username = $1`,
		username,
	).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &totpSecret, &user.TOTPEnabled, &user.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, err
	}

	if totpSecret.Valid {
		user.TOTPSecret = totpSecret.String
	}

	return user, nil
}

func (s *PostgresStore) GetUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, password_hash, role, totp_secret, totp_enabled, created_at FROM users ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		var totpSecret sql.NullString

		if err := rows.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &totpSecret, &user.TOTPEnabled, &user.CreatedAt); err != nil {
			continue
		}
		if totpSecret.Valid {
			user.TOTPSecret = totpSecret.String
		}

		users = append(users, user)
	}

	return users, nil
}

func (s *PostgresStore) UpdateUser2FA(ctx context.Context, userID int, totpSecret string, enabled bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET totp_secret = $1, totp_enabled = $2 WHERE id = $3`,
		totpSecret, enabled, userID,
	)
	return err
}

func (s *PostgresStore) Disable2FA(ctx context.Context, userID int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET totp_secret = NULL, totp_enabled = FALSE WHERE id = $1`,
		userID,
	)
	return err
}
