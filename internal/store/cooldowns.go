package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/park285/epic-reminder-bot/internal/domain"
)

// CooldownKey identifies a cooldown row.
type CooldownKey struct {
	PlayerID string
	Type     domain.ActionType
}

// DueReminder is a fired cooldown joined with where to deliver it.
type DueReminder struct {
	ID        uint
	PlayerID  string
	Type      domain.ActionType
	ChannelID string
}

// Upsert writes ready-at for every (player, type) in batch. Existing rows are
// found with one read and updated in place; the rest are inserted. The last
// entry wins when a key repeats. Read then write, so concurrent upserts of the
// same key may race; last writer wins.
func (s *Store) Upsert(ctx context.Context, batch []domain.CooldownRecord) error {
	if len(batch) == 0 {
		return nil
	}
	pending := make(map[CooldownKey]time.Time, len(batch))
	var order []CooldownKey
	for _, r := range batch {
		k := CooldownKey{PlayerID: r.PlayerID, Type: r.Type}
		if _, seen := pending[k]; !seen {
			order = append(order, k)
		}
		pending[k] = r.ReadyAt.UTC()
	}

	var existing []domain.CooldownRecord
	if err := keyFilter(s.db.WithContext(ctx), order).Find(&existing).Error; err != nil {
		return fmt.Errorf("read cooldowns: %w", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, e := range existing {
			k := CooldownKey{PlayerID: e.PlayerID, Type: e.Type}
			at, ok := pending[k]
			if !ok {
				continue
			}
			if err := tx.Model(&domain.CooldownRecord{}).Where("id = ?", e.ID).Update("ready_at", at).Error; err != nil {
				return fmt.Errorf("update cooldown: %w", err)
			}
			delete(pending, k)
		}
		var fresh []domain.CooldownRecord
		for _, k := range order {
			if at, ok := pending[k]; ok {
				fresh = append(fresh, domain.CooldownRecord{PlayerID: k.PlayerID, Type: k.Type, ReadyAt: at})
			}
		}
		if len(fresh) == 0 {
			return nil
		}
		if err := tx.Create(&fresh).Error; err != nil {
			return fmt.Errorf("insert cooldowns: %w", err)
		}
		return nil
	})
}

// InsertIgnoreConflicts inserts batch, silently skipping keys that already
// exist. It returns the number of rows written.
func (s *Store) InsertIgnoreConflicts(ctx context.Context, batch []domain.CooldownRecord) (int64, error) {
	seen := make(map[CooldownKey]bool, len(batch))
	rows := make([]domain.CooldownRecord, 0, len(batch))
	for _, r := range batch {
		k := CooldownKey{PlayerID: r.PlayerID, Type: r.Type}
		if seen[k] {
			continue
		}
		seen[k] = true
		rows = append(rows, domain.CooldownRecord{PlayerID: r.PlayerID, Type: r.Type, ReadyAt: r.ReadyAt.UTC()})
	}
	if len(rows) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	if res.Error != nil {
		return 0, fmt.Errorf("insert cooldowns: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Evict deletes the rows for keys in one statement.
func (s *Store) Evict(ctx context.Context, keys []CooldownKey) error {
	if len(keys) == 0 {
		return nil
	}
	if err := keyFilter(s.db.WithContext(ctx), keys).Delete(&domain.CooldownRecord{}).Error; err != nil {
		return fmt.Errorf("evict cooldowns: %w", err)
	}
	return nil
}

// EvictIDs deletes rows by id.
func (s *Store) EvictIDs(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Delete(&domain.CooldownRecord{}, ids).Error; err != nil {
		return fmt.Errorf("evict cooldowns: %w", err)
	}
	return nil
}

// PurgeBefore deletes rows that became ready at or before asOf. Called after
// due reminders were collected, it drops rows nobody wanted reminding about.
func (s *Store) PurgeBefore(ctx context.Context, asOf time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("ready_at <= ?", asOf.UTC()).Delete(&domain.CooldownRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge cooldowns: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Due returns rows of type t ready at asOf whose player wants the reminder:
// notifications on, type not muted, not banned, server active.
func (s *Store) Due(ctx context.Context, t domain.ActionType, asOf time.Time) ([]DueReminder, error) {
	var out []DueReminder
	err := s.db.WithContext(ctx).
		Table("cooldowns").
		Select("cooldowns.id, cooldowns.player_id, cooldowns.type, players.channel_id").
		Joins("JOIN players ON players.id = cooldowns.player_id").
		Joins("JOIN servers ON servers.id = players.server_id").
		Where("cooldowns.type = ? AND cooldowns.ready_at <= ?", t, asOf.UTC()).
		Where("players.notify = ? AND players.banned = ? AND servers.active = ?", true, false, true).
		Where("(players.muted_types & ?) = 0", t.Bit()).
		Order("cooldowns.ready_at").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("due cooldowns: %w", err)
	}
	return out, nil
}

// ForPlayer returns every row of a player, soonest first.
func (s *Store) ForPlayer(ctx context.Context, playerID string) ([]domain.CooldownRecord, error) {
	var out []domain.CooldownRecord
	if err := s.db.WithContext(ctx).Where("player_id = ?", playerID).Order("ready_at").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("player cooldowns: %w", err)
	}
	return out, nil
}

// HasCooldown lists which of players already hold a row of type t.
func (s *Store) HasCooldown(ctx context.Context, t domain.ActionType, players []string) (map[string]bool, error) {
	out := make(map[string]bool, len(players))
	if len(players) == 0 {
		return out, nil
	}
	var ids []string
	err := s.db.WithContext(ctx).Model(&domain.CooldownRecord{}).
		Where("type = ? AND player_id IN ?", t, players).
		Pluck("player_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("existing cooldowns: %w", err)
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func keyFilter(db *gorm.DB, keys []CooldownKey) *gorm.DB {
	q := db.Where("1 = 0")
	for _, k := range keys {
		q = q.Or("player_id = ? AND type = ?", k.PlayerID, k.Type)
	}
	return q
}
