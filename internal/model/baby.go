package model

import "time"

type Gender string

const (
	GenderUnknown Gender = ""
	GenderBoy     Gender = "boy"
	GenderGirl    Gender = "girl"
)

type Baby struct {
	ID        string    `json:"id"`
	FamilyID  string    `json:"family_id"`
	Name      string    `json:"name"`
	BirthDate time.Time `json:"birth_date"`
	Gender    Gender    `json:"gender"`
	CreatedAt time.Time `json:"created_at"`
}

// Age returns completed months and the remaining days at now.
func (b *Baby) Age(now time.Time) (months, days int) {
	if now.Before(b.BirthDate) {
		return 0, 0
	}
	y1, m1, d1 := b.BirthDate.Date()
	y2, m2, d2 := now.Date()

	months = (y2-y1)*12 + int(m2-m1)
	if d2 < d1 {
		months--
	}
	anchor := b.BirthDate.AddDate(0, months, 0)
	days = int(now.Sub(anchor).Hours() / 24)
	return months, days
}

type BabyPatch struct {
	Name      *string    `json:"name" validate:"omitempty,min=1,max=50"`
	BirthDate *time.Time `json:"birth_date"`
	Gender    *Gender    `json:"gender" validate:"omitempty,oneof=boy girl"`
}
