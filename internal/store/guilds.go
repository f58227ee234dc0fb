package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/park285/epic-reminder-bot/internal/domain"
)

// GuildReminder is one member to notify about a ready guild raid.
type GuildReminder struct {
	GuildName     string
	PlayerID      string
	ChannelID     string
	DibbsPlayerID *string
}

// Guild returns the raid state of a guild.
func (s *Store) Guild(ctx context.Context, name string) (*domain.GuildRaid, error) {
	var g domain.GuildRaid
	if err := s.db.WithContext(ctx).First(&g, "name = ?", name).Error; err != nil {
		return nil, mapErr(err)
	}
	return &g, nil
}

// JoinGuild makes the player a member of name, creating the guild row.
func (s *Store) JoinGuild(ctx context.Context, playerID, name, channelID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		g := domain.GuildRaid{}
		err := tx.Where(domain.GuildRaid{Name: name}).
			Attrs(domain.GuildRaid{ChannelID: channelID}).
			FirstOrCreate(&g).Error
		if err != nil {
			return err
		}
		res := tx.Model(&domain.Player{}).Where("id = ?", playerID).Update("guild_name", name)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// SetGuildRoster makes every known player in playerIDs a member of name,
// creating the guild row. Unknown ids are ignored. It returns how many
// players were updated.
func (s *Store) SetGuildRoster(ctx context.Context, name, channelID string, playerIDs []string) (int64, error) {
	if len(playerIDs) == 0 {
		return 0, nil
	}
	var n int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		g := domain.GuildRaid{}
		err := tx.Where(domain.GuildRaid{Name: name}).
			Attrs(domain.GuildRaid{ChannelID: channelID}).
			FirstOrCreate(&g).Error
		if err != nil {
			return err
		}
		res := tx.Model(&domain.Player{}).Where("id IN ?", playerIDs).Update("guild_name", name)
		n = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, fmt.Errorf("set guild roster: %w", err)
	}
	return n, nil
}

// LeaveGuild clears the player's guild and any dibbs they held.
func (s *Store) LeaveGuild(ctx context.Context, playerID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.GuildRaid{}).Where("dibbs_player_id = ?", playerID).
			Update("dibbs_player_id", nil).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Player{}).Where("id = ?", playerID).Update("guild_name", nil).Error
	})
}

// SetGuildReady records when the guild may raid again. A dibbs held by the
// player who triggered the cooldown is released.
func (s *Store) SetGuildReady(ctx context.Context, name string, readyAt time.Time, actorID string) error {
	res := s.db.WithContext(ctx).Model(&domain.GuildRaid{}).Where("name = ?", name).Updates(map[string]any{
		"ready_at":        readyAt.UTC(),
		"dibbs_player_id": gorm.Expr("CASE WHEN dibbs_player_id = ? THEN NULL ELSE dibbs_player_id END", actorID),
	})
	if res.Error != nil {
		return fmt.Errorf("set guild ready: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetDibbs sets or clears (nil) the dibbs holder.
func (s *Store) SetDibbs(ctx context.Context, name string, playerID *string) error {
	res := s.db.WithContext(ctx).Model(&domain.GuildRaid{}).Where("name = ?", name).Update("dibbs_player_id", playerID)
	if res.Error != nil {
		return fmt.Errorf("set dibbs: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DueGuilds returns members of guilds whose raid is ready at asOf and who
// want guild reminders.
func (s *Store) DueGuilds(ctx context.Context, asOf time.Time) ([]GuildReminder, error) {
	var out []GuildReminder
	err := s.db.WithContext(ctx).
		Table("guild_raids").
		Select("guild_raids.name AS guild_name, players.id AS player_id, players.channel_id, guild_raids.dibbs_player_id").
		Joins("JOIN players ON players.guild_name = guild_raids.name").
		Joins("JOIN servers ON servers.id = players.server_id").
		Where("guild_raids.ready_at IS NOT NULL AND guild_raids.ready_at <= ?", asOf.UTC()).
		Where("players.notify = ? AND players.banned = ? AND servers.active = ?", true, false, true).
		Where("(players.muted_types & ?) = 0", domain.Guild.Bit()).
		Order("guild_raids.name").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("due guilds: %w", err)
	}
	return out, nil
}

// ClearGuildReady marks guild reminders as sent.
func (s *Store) ClearGuildReady(ctx context.Context, asOf time.Time) error {
	return s.db.WithContext(ctx).Model(&domain.GuildRaid{}).
		Where("ready_at IS NOT NULL AND ready_at <= ?", asOf.UTC()).
		Update("ready_at", nil).Error
}
