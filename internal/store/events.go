package store

import (
	"context"
	"fmt"

	"github.com/park285/epic-reminder-bot/internal/domain"
)

// Events lists every persisted overlay in insertion order.
func (s *Store) Events(ctx context.Context) ([]domain.Event, error) {
	var out []domain.Event
	if err := s.db.WithContext(ctx).Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return out, nil
}

// Event loads one overlay by name.
func (s *Store) Event(ctx context.Context, name string) (*domain.Event, error) {
	var e domain.Event
	if err := s.db.WithContext(ctx).First(&e, "name = ?", name).Error; err != nil {
		return nil, mapErr(err)
	}
	return &e, nil
}

// SaveEvent inserts or updates e, keyed by name.
func (s *Store) SaveEvent(ctx context.Context, e *domain.Event) error {
	if e.ID == 0 {
		var existing domain.Event
		err := s.db.WithContext(ctx).Select("id").First(&existing, "name = ?", e.Name).Error
		if err == nil {
			e.ID = existing.ID
		} else if mapErr(err) != ErrNotFound {
			return fmt.Errorf("find event: %w", err)
		}
	}
	e.Start, e.End = e.Start.UTC(), e.End.UTC()
	if err := s.db.WithContext(ctx).Save(e).Error; err != nil {
		return fmt.Errorf("save event: %w", err)
	}
	return nil
}

// DeleteEvent removes the named overlay.
func (s *Store) DeleteEvent(ctx context.Context, name string) error {
	res := s.db.WithContext(ctx).Where("name = ?", name).Delete(&domain.Event{})
	if res.Error != nil {
		return fmt.Errorf("delete event: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
