package catalog_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"almacen/internal/domain/settings"
	"almacen/internal/infrastructure/storage/postgres"
)

const settingsTable = "sys_settings"

// SettingsRepo reads business settings from sys_settings. It is the
// uncached settings.Provider; wrap it in settings.CachedProvider.
type SettingsRepo struct {
	txm *postgres.TxManager
}

var _ settings.Provider = (*SettingsRepo)(nil)

// NewSettingsRepo creates a new settings repository.
func NewSettingsRepo(txm *postgres.TxManager) *SettingsRepo {
	return &SettingsRepo{txm: txm}
}

// Get implements settings.Provider.
func (r *SettingsRepo) Get(ctx context.Context, group, key string) (string, bool, error) {
	sql, args, err := postgres.Builder().
		Select("value").
		From(settingsTable).
		Where(squirrel.Eq{"group_name": group, "key": key}).
		ToSql()
	if err != nil {
		return "", false, fmt.Errorf("build settings query: %w", err)
	}

	var value string
	err = r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s.%s: %w", group, key, err)
	}
	return value, true, nil
}

// Set upserts a setting.
func (r *SettingsRepo) Set(ctx context.Context, group, key, value string) error {
	sql, args, err := postgres.Builder().
		Insert(settingsTable).
		Columns("group_name", "key", "value", "updated_at").
		Values(group, key, value, time.Now().UTC()).
		Suffix("ON CONFLICT (group_name, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build settings upsert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError("set setting", err)
	}
	return nil
}
