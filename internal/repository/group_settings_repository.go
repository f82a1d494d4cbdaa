package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"deadline-buddy/internal/domain"
	"deadline-buddy/internal/model"
)

// GroupSettingsRepository persists per-chat settings.
type GroupSettingsRepository struct {
	db *gorm.DB
}

func NewGroupSettingsRepository(db *gorm.DB) *GroupSettingsRepository {
	return &GroupSettingsRepository{db: db}
}

// Find returns nil without error when the chat has no settings row.
func (r *GroupSettingsRepository) Find(ctx context.Context, chatID string) (*model.GroupSettings, error) {
	var settings model.GroupSettings
	err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).First(&settings).Error
	switch {
	case err == nil:
		return &settings, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	default:
		return nil, domain.IO("find group settings", err)
	}
}

// Upsert creates or updates the timezone of a chat.
func (r *GroupSettingsRepository) Upsert(ctx context.Context, chatID string, tz model.Timezone) error {
	settings := model.GroupSettings{
		ChatID:    chatID,
		Timezone:  tz,
		UpdatedAt: time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chat_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"timezone", "updated_at"}),
	}).Create(&settings).Error; err != nil {
		return domain.IO("save group settings", err)
	}
	return nil
}
