package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/datarocks/lwgs-searchindex-client/internal/domain"
)

// settingRepository implements domain.SettingRepository using SQLite.
type settingRepository struct {
	q dbtx
}

var _ domain.SettingRepository = (*settingRepository)(nil)

// FindByKey retrieves a setting by its key.
func (r *settingRepository) FindByKey(key string) (*domain.Setting, error) {
	var s domain.Setting
	err := r.q.QueryRow(`SELECT key, value FROM settings WHERE key = ?`, key).
		Scan(&s.Key, &s.Value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("setting %q: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find setting by key: %w", err)
	}
	return &s, nil
}

// Save upserts a setting. Settings are created on first write and are
// never deleted.
func (r *settingRepository) Save(setting *domain.Setting) error {
	_, err := r.q.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		setting.Key, setting.Value,
	)
	if err != nil {
		return fmt.Errorf("failed to save setting: %w", err)
	}
	return nil
}
