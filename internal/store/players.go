package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/park285/epic-reminder-bot/internal/domain"
)

// PlayerDefaults seeds a player created on first sight.
type PlayerDefaults struct {
	ServerID  string
	ChannelID string
	Nickname  string
}

// Player gets or creates the player with id. The bool reports creation.
func (s *Store) Player(ctx context.Context, id string, def PlayerDefaults) (*domain.Player, bool, error) {
	var p domain.Player
	res := s.db.WithContext(ctx).
		Where(domain.Player{ID: id}).
		Attrs(domain.Player{
			ServerID:   def.ServerID,
			ChannelID:  def.ChannelID,
			Nickname:   def.Nickname,
			Timezone:   domain.DefaultTimezone,
			TimeFormat: domain.DefaultTimeFormat,
		}).
		FirstOrCreate(&p)
	if res.Error != nil {
		return nil, false, fmt.Errorf("get or create player: %w", res.Error)
	}
	return &p, res.RowsAffected > 0, nil
}

// FindPlayer loads an existing player.
func (s *Store) FindPlayer(ctx context.Context, id string) (*domain.Player, error) {
	var p domain.Player
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

// UpdatePlayer writes the named columns.
func (s *Store) UpdatePlayer(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := s.db.WithContext(ctx).Model(&domain.Player{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update player: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SavePlayer writes every column of p.
func (s *Store) SavePlayer(ctx context.Context, p *domain.Player) error {
	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		return fmt.Errorf("save player: %w", err)
	}
	return nil
}

// Marry links two players as partners.
func (s *Store) Marry(ctx context.Context, a, b string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Player{}).Where("id = ?", a).Update("partner_id", b).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Player{}).Where("id = ?", b).Update("partner_id", a).Error
	})
}

// Server returns the server with id or ErrNotFound.
func (s *Store) Server(ctx context.Context, id string) (*domain.Server, error) {
	var srv domain.Server
	if err := s.db.WithContext(ctx).First(&srv, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &srv, nil
}

// RegisterServer claims an unused join code for a server.
func (s *Store) RegisterServer(ctx context.Context, id, name, code string) (*domain.Server, error) {
	var srv domain.Server
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.Server{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrAlreadyJoined
		}
		res := tx.Model(&domain.JoinCode{}).
			Where("code = ? AND claimed = ?", code, false).
			Updates(map[string]any{"claimed": true, "server_id": id})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidJoinCode
		}
		c := code
		srv = domain.Server{ID: id, Name: name, JoinCode: &c, Active: true}
		return tx.Create(&srv).Error
	})
	if err != nil {
		return nil, err
	}
	return &srv, nil
}

// SetServerActive toggles whether a server receives reminders.
func (s *Store) SetServerActive(ctx context.Context, id string, active bool) error {
	res := s.db.WithContext(ctx).Model(&domain.Server{}).Where("id = ?", id).Update("active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// NewJoinCodes creates n unclaimed join codes.
func (s *Store) NewJoinCodes(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	rows := make([]domain.JoinCode, n)
	codes := make([]string, n)
	for i := range rows {
		codes[i] = strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
		rows[i] = domain.JoinCode{Code: codes[i]}
	}
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, fmt.Errorf("create join codes: %w", err)
	}
	return codes, nil
}

// TouchChannel records a channel the bot has been used in.
func (s *Store) TouchChannel(ctx context.Context, id, serverID, name string) error {
	ch := domain.Channel{}
	return s.db.WithContext(ctx).
		Where(domain.Channel{ID: id}).
		Attrs(domain.Channel{ServerID: serverID, Name: name}).
		FirstOrCreate(&ch).Error
}

// PlayerByNickname finds a player on a server by display name. Hunt results
// only carry names.
func (s *Store) PlayerByNickname(ctx context.Context, serverID, nickname string) (*domain.Player, error) {
	var p domain.Player
	err := s.db.WithContext(ctx).
		Where("server_id = ? AND nickname = ?", serverID, nickname).
		Order("updated_at DESC").
		First(&p).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}
