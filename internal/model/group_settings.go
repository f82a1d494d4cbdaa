package model

import (
	"strings"
	"time"
)

// Timezone is one of the fixed Indonesian zones a group can pick.
type Timezone string

const (
	WIB  Timezone = "WIB"
	WITA Timezone = "WITA"
	WIT  Timezone = "WIT"
)

// DefaultTimezone applies to groups without a settings row.
const DefaultTimezone = WIB

var offsets = map[Timezone]int{
	WIB:  420,
	WITA: 480,
	WIT:  540,
}

// ParseTimezone accepts WIB, WITA or WIT in any letter case.
func ParseTimezone(raw string) (Timezone, bool) {
	tz := Timezone(strings.ToUpper(strings.TrimSpace(raw)))
	_, ok := offsets[tz]
	return tz, ok
}

// Valid reports whether tz is in the zone table.
func (tz Timezone) Valid() bool {
	_, ok := offsets[tz]
	return ok
}

// OffsetMinutes returns the fixed UTC offset, falling back to WIB.
func (tz Timezone) OffsetMinutes() int {
	if minutes, ok := offsets[tz]; ok {
		return minutes
	}
	return offsets[DefaultTimezone]
}

// Location returns a fixed zone; there is no daylight saving.
func (tz Timezone) Location() *time.Location {
	if !tz.Valid() {
		tz = DefaultTimezone
	}
	return time.FixedZone(string(tz), tz.OffsetMinutes()*60)
}

// GroupSettings stores the per-chat timezone.
type GroupSettings struct {
	ID        uint     `gorm:"primaryKey"`
	ChatID    string   `gorm:"uniqueIndex;not null"`
	Timezone  Timezone `gorm:"not null;default:'WIB'"`
	UpdatedAt time.Time
}
