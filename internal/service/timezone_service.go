package service

import (
	"context"

	"deadline-buddy/internal/domain"
	"deadline-buddy/internal/model"
	"deadline-buddy/internal/repository"
)

// TimezoneService resolves and updates the timezone of a group.
type TimezoneService struct {
	repo *repository.GroupSettingsRepository
}

func NewTimezoneService(repo *repository.GroupSettingsRepository) *TimezoneService {
	return &TimezoneService{repo: repo}
}

// Resolve returns the group's timezone, WIB when the group never set one.
// Nothing is written for groups without a row.
func (s *TimezoneService) Resolve(ctx context.Context, chatID string) (model.Timezone, error) {
	settings, err := s.repo.Find(ctx, chatID)
	if err != nil {
		return model.DefaultTimezone, err
	}
	if settings == nil || !settings.Timezone.Valid() {
		return model.DefaultTimezone, nil
	}
	return settings.Timezone, nil
}

// Set validates raw as WIB, WITA or WIT and stores it for the group.
func (s *TimezoneService) Set(ctx context.Context, chatID, raw string) (model.Timezone, error) {
	tz, ok := model.ParseTimezone(raw)
	if !ok {
		return "", domain.NewError(domain.KindBadTimezone, "timezone must be WIB, WITA or WIT")
	}
	if err := s.repo.Upsert(ctx, chatID, tz); err != nil {
		return "", err
	}
	return tz, nil
}
