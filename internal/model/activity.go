package model

import "time"

type ActivityType string

const (
	ActivityFeeding     ActivityType = "feeding"
	ActivitySleep       ActivityType = "sleep"
	ActivityDiaper      ActivityType = "diaper"
	ActivityMedicine    ActivityType = "medicine"
	ActivityTemperature ActivityType = "temperature"
)

func (t ActivityType) Valid() bool {
	switch t {
	case ActivityFeeding, ActivitySleep, ActivityDiaper, ActivityMedicine, ActivityTemperature:
		return true
	}
	return false
}

type Activity struct {
	ID           string       `json:"id"`
	BabyID       string       `json:"baby_id"`
	Type         ActivityType `json:"type" validate:"required,oneof=feeding sleep diaper medicine temperature"`
	StartedAt    time.Time    `json:"started_at" validate:"required"`
	EndedAt      *time.Time   `json:"ended_at,omitempty"`
	FeedingKind  *string      `json:"feeding_kind,omitempty" validate:"omitempty,oneof=breast formula pumped solid"`
	AmountML     *int         `json:"amount_ml,omitempty" validate:"omitempty,min=0,max=1000"`
	DiaperKind   *string      `json:"diaper_kind,omitempty" validate:"omitempty,oneof=wet dirty mixed"`
	MedicineName *string      `json:"medicine_name,omitempty" validate:"omitempty,max=100"`
	Dose         *string      `json:"dose,omitempty" validate:"omitempty,max=50"`
	TemperatureC *float64     `json:"temperature_c,omitempty"`
	Memo         string       `json:"memo" validate:"max=500"`
	CreatedBy    string       `json:"created_by"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Duration is zero for point-in-time activities.
func (a *Activity) Duration() time.Duration {
	if a.EndedAt == nil {
		return 0
	}
	return a.EndedAt.Sub(a.StartedAt)
}

type ActivityFilter struct {
	From  time.Time
	To    time.Time
	Type  ActivityType
	Limit int
}

type ActivityPatch struct {
	StartedAt    *time.Time `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at"`
	FeedingKind  *string    `json:"feeding_kind" validate:"omitempty,oneof=breast formula pumped solid"`
	AmountML     *int       `json:"amount_ml" validate:"omitempty,min=0,max=1000"`
	DiaperKind   *string    `json:"diaper_kind" validate:"omitempty,oneof=wet dirty mixed"`
	MedicineName *string    `json:"medicine_name" validate:"omitempty,max=100"`
	Dose         *string    `json:"dose" validate:"omitempty,max=50"`
	TemperatureC *float64   `json:"temperature_c"`
	Memo         *string    `json:"memo" validate:"omitempty,max=500"`
}

// Apply copies the set fields of p onto a.
func (p *ActivityPatch) Apply(a *Activity) {
	if p.StartedAt != nil {
		a.StartedAt = *p.StartedAt
	}
	if p.EndedAt != nil {
		a.EndedAt = p.EndedAt
	}
	if p.FeedingKind != nil {
		a.FeedingKind = p.FeedingKind
	}
	if p.AmountML != nil {
		a.AmountML = p.AmountML
	}
	if p.DiaperKind != nil {
		a.DiaperKind = p.DiaperKind
	}
	if p.MedicineName != nil {
		a.MedicineName = p.MedicineName
	}
	if p.Dose != nil {
		a.Dose = p.Dose
	}
	if p.TemperatureC != nil {
		a.TemperatureC = p.TemperatureC
	}
	if p.Memo != nil {
		a.Memo = *p.Memo
	}
}
