package model

import "time"

type Measurement struct {
	ID         string    `json:"id"`
	BabyID     string    `json:"baby_id"`
	MeasuredAt time.Time `json:"measured_at" validate:"required"`
	WeightKg   *float64  `json:"weight_kg,omitempty" validate:"omitempty,gt=0,lt=40"`
	HeightCm   *float64  `json:"height_cm,omitempty" validate:"omitempty,gt=0,lt=150"`
	HeadCm     *float64  `json:"head_cm,omitempty" validate:"omitempty,gt=0,lt=70"`
}

type Milestone struct {
	Key        string    `json:"key"`
	AchievedAt time.Time `json:"achieved_at"`
}
