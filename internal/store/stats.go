package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/park285/epic-reminder-bot/internal/domain"
)

// huntClaimWindow bounds how old an initiated hunt may be when a result
// arrives for it.
const huntClaimWindow = 10 * time.Minute

// StatsScope narrows a statistics query. Zero fields are not applied.
type StatsScope struct {
	PlayerID string
	ServerID string
	Since    time.Time
}

type GambleSummary struct {
	Game   string
	Played int64
	Won    int64
	Lost   int64
	Tied   int64
	Net    int64
}

type HuntSummary struct {
	Hunts int64
	Money int64
	XP    int64
}

// CountRow is a name with an occurrence count.
type CountRow struct {
	Name  string
	Count int64
}

func (sc StatsScope) apply(db *gorm.DB, table string) *gorm.DB {
	if sc.PlayerID != "" {
		db = db.Where(table+".player_id = ?", sc.PlayerID)
	}
	if sc.ServerID != "" {
		db = db.Joins("JOIN players ON players.id = "+table+".player_id").Where("players.server_id = ?", sc.ServerID)
	}
	if !sc.Since.IsZero() {
		db = db.Where(table+".created_at >= ?", sc.Since.UTC())
	}
	return db
}

func (s *Store) RecordGamble(ctx context.Context, g *domain.GambleRecord) error {
	if err := s.db.WithContext(ctx).Create(g).Error; err != nil {
		return fmt.Errorf("record gamble: %w", err)
	}
	return nil
}

// GambleStats aggregates outcomes per game.
func (s *Store) GambleStats(ctx context.Context, sc StatsScope) ([]GambleSummary, error) {
	var out []GambleSummary
	q := s.db.WithContext(ctx).Table("gamble_records").Select(
		"gamble_records.game AS game, COUNT(*) AS played, " +
			"SUM(CASE WHEN gamble_records.outcome = 'won' THEN 1 ELSE 0 END) AS won, " +
			"SUM(CASE WHEN gamble_records.outcome = 'lost' THEN 1 ELSE 0 END) AS lost, " +
			"SUM(CASE WHEN gamble_records.outcome = 'tied' THEN 1 ELSE 0 END) AS tied, " +
			"COALESCE(SUM(gamble_records.net), 0) AS net")
	if err := sc.apply(q, "gamble_records").Group("gamble_records.game").Order("gamble_records.game").Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("gamble stats: %w", err)
	}
	return out, nil
}

// StartHunt records a hunt the player has just initiated.
func (s *Store) StartHunt(ctx context.Context, playerID string) error {
	id := playerID
	if err := s.db.WithContext(ctx).Create(&domain.HuntRecord{PlayerID: &id}).Error; err != nil {
		return fmt.Errorf("start hunt: %w", err)
	}
	return nil
}

// RecordHuntResult fills the player's most recent open hunt, or records a
// new one when none is open.
func (s *Store) RecordHuntResult(ctx context.Context, playerID, target string, money, xp int64, loot string) error {
	var h domain.HuntRecord
	err := s.db.WithContext(ctx).
		Where("player_id = ? AND target IS NULL AND created_at >= ?", playerID, time.Now().Add(-huntClaimWindow).UTC()).
		Order("id DESC").
		First(&h).Error
	if err != nil && mapErr(err) != ErrNotFound {
		return fmt.Errorf("find open hunt: %w", err)
	}
	if err != nil {
		id := playerID
		h = domain.HuntRecord{PlayerID: &id}
	}
	h.Target, h.Money, h.XP = &target, &money, &xp
	h.Loot = nil
	if loot != "" {
		h.Loot = &loot
	}
	if err := s.db.WithContext(ctx).Save(&h).Error; err != nil {
		return fmt.Errorf("save hunt: %w", err)
	}
	return nil
}

// HuntStats totals completed hunts and lists the most hunted targets.
func (s *Store) HuntStats(ctx context.Context, sc StatsScope, top int) (HuntSummary, []CountRow, error) {
	var sum HuntSummary
	q := s.db.WithContext(ctx).Table("hunt_records").
		Select("COUNT(*) AS hunts, COALESCE(SUM(hunt_records.money), 0) AS money, COALESCE(SUM(hunt_records.xp), 0) AS xp").
		Where("hunt_records.target IS NOT NULL")
	if err := sc.apply(q, "hunt_records").Scan(&sum).Error; err != nil {
		return sum, nil, fmt.Errorf("hunt stats: %w", err)
	}
	var rows []CountRow
	q = s.db.WithContext(ctx).Table("hunt_records").
		Select("hunt_records.target AS name, COUNT(*) AS count").
		Where("hunt_records.target IS NOT NULL")
	err := sc.apply(q, "hunt_records").Group("hunt_records.target").Order("count DESC, name").Limit(top).Scan(&rows).Error
	if err != nil {
		return sum, nil, fmt.Errorf("hunt targets: %w", err)
	}
	return sum, rows, nil
}

// DropStats counts recorded loot per drop name.
func (s *Store) DropStats(ctx context.Context, sc StatsScope) ([]CountRow, error) {
	var rows []CountRow
	q := s.db.WithContext(ctx).Table("hunt_records").
		Select("hunt_records.loot AS name, COUNT(*) AS count").
		Where("hunt_records.loot IS NOT NULL AND hunt_records.loot <> ''")
	if err := sc.apply(q, "hunt_records").Group("hunt_records.loot").Order("count DESC, name").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("drop stats: %w", err)
	}
	return rows, nil
}
