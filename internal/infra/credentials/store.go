package credentials

import (
	"context"
	"errors"
	"strings"

	"filmgen/internal/infra"
	"filmgen/internal/sqlinline"
)

// SystemSettingKey is the system_settings key that holds the operator-wide
// key for a service.
func SystemSettingKey(service string) string {
	return strings.ToLower(strings.TrimSpace(service)) + "_api_key"
}

// Store reads and writes API keys in Postgres.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// SystemSetting returns the trimmed value for key, or "" when unset.
func (s *Store) SystemSetting(ctx context.Context, key string) (string, error) {
	return s.scanOne(ctx, sqlinline.QSelectSystemSetting, key)
}

// UserAPIKey returns the trimmed key a user stored for service, or "" when unset.
func (s *Store) UserAPIKey(ctx context.Context, userID, service string) (string, error) {
	return s.scanOne(ctx, sqlinline.QSelectUserAPIKey, userID, strings.ToLower(service))
}

func (s *Store) SetSystemSetting(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == "" {
		return errors.New("setting key is required")
	}
	if value == "" {
		return errors.New("setting value is required")
	}
	_, err := s.sql.Exec(ctx, sqlinline.QUpsertSystemSetting, key, value)
	return err
}

func (s *Store) SetUserAPIKey(ctx context.Context, userID, service, key string) error {
	userID = strings.TrimSpace(userID)
	service = strings.ToLower(strings.TrimSpace(service))
	key = strings.TrimSpace(key)
	switch {
	case userID == "":
		return errors.New("user id is required")
	case service == "":
		return errors.New("service is required")
	case key == "":
		return errors.New(service + " api key is required")
	}
	_, err := s.sql.Exec(ctx, sqlinline.QUpsertUserAPIKey, userID, service, key)
	return err
}

func (s *Store) scanOne(ctx context.Context, query string, args ...any) (string, error) {
	var value string
	if err := s.sql.QueryRow(ctx, query, args...).Scan(&value); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(value), nil
}
