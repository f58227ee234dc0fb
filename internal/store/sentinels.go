package store

import (
	"context"
	"fmt"

	"github.com/park285/epic-reminder-bot/internal/domain"
)

// Sentinels returns a player's pending sentinels for trigger, oldest first.
func (s *Store) Sentinels(ctx context.Context, playerID string, trigger domain.SentinelTrigger) ([]domain.Sentinel, error) {
	var out []domain.Sentinel
	err := s.db.WithContext(ctx).
		Where("player_id = ? AND trigger_kind = ?", playerID, trigger).
		Order("id").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list sentinels: %w", err)
	}
	return out, nil
}

// SaveSentinel inserts or updates a sentinel.
func (s *Store) SaveSentinel(ctx context.Context, sn *domain.Sentinel) error {
	if err := s.db.WithContext(ctx).Save(sn).Error; err != nil {
		return fmt.Errorf("save sentinel: %w", err)
	}
	return nil
}

// DeleteSentinel removes a resolved sentinel. It reports whether this call
// removed it, so a sentinel resolves at most once.
func (s *Store) DeleteSentinel(ctx context.Context, id uint) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&domain.Sentinel{}, id)
	if res.Error != nil {
		return false, fmt.Errorf("delete sentinel: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
