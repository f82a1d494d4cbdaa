package model

import "time"

// RoomPlaceholder fills the room column when the user supplies none.
const RoomPlaceholder = "-"

// Task is a deadline item owned by a chat group.
type Task struct {
	ID          uint      `gorm:"primaryKey"`
	ChatID      string    `gorm:"index;not null"`
	Creator     string    `gorm:"not null"`
	Name        string    `gorm:"index;not null"`
	Subject     string    `gorm:"not null"`
	Room        string    `gorm:"not null;default:'-'"`
	DueAt       time.Time `gorm:"index;not null"`
	DayOfWeek   string
	LeadMinutes int
	Recurring   bool `gorm:"default:false"`
	Active      bool `gorm:"index;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Reminder is a one-shot notification for exactly one Task.
type Reminder struct {
	ID        uint      `gorm:"primaryKey"`
	TaskID    uint      `gorm:"index;not null"`
	Task      Task      `gorm:"foreignKey:TaskID"`
	FireAt    time.Time `gorm:"index;not null"`
	Sent      bool      `gorm:"index;default:false"`
	SentAt    *time.Time
	CreatedAt time.Time
}
