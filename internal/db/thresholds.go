package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/IndrawanLalu/gardu-alerting-service/internal/models"
)

// ErrNoThresholds is returned by LoadThresholds when the config row has never
// been written; the caller is expected to seed it from bootstrap config.
var ErrNoThresholds = errors.New("threshold config not found")

// LoadThresholds reads the single threshold config row.
func (d *DB) LoadThresholds(ctx context.Context) (models.ThresholdConfig, error) {
	var cfg models.ThresholdConfig
	err := d.Pool.QueryRow(ctx,
		`SELECT load_percentage, unbalance_percentage FROM threshold_config WHERE id = 1`,
	).Scan(&cfg.LoadPercentage, &cfg.UnbalancePercentage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ThresholdConfig{}, ErrNoThresholds
		}
		return models.ThresholdConfig{}, fmt.Errorf("failed to load thresholds: %w", err)
	}
	return cfg, nil
}

// SaveThresholds replaces both threshold fields atomically.
func (d *DB) SaveThresholds(ctx context.Context, cfg models.ThresholdConfig) error {
	_, err := d.Pool.Exec(ctx, `
    INSERT INTO threshold_config (id, load_percentage, unbalance_percentage, updated_at)
    VALUES (1, $1, $2, NOW())
    ON CONFLICT (id) DO UPDATE
    SET load_percentage = EXCLUDED.load_percentage,
        unbalance_percentage = EXCLUDED.unbalance_percentage,
        updated_at = NOW()`,
		cfg.LoadPercentage, cfg.UnbalancePercentage)
	if err != nil {
		return fmt.Errorf("failed to save thresholds: %w", err)
	}
	return nil
}
