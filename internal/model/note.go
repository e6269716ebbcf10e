package model

import "time"

type NoteType string

const (
	NoteMemo     NoteType = "memo"
	NoteDiary    NoteType = "diary"
	NoteSchedule NoteType = "schedule"
	NoteTodo     NoteType = "todo"
)

type Note struct {
	ID        string     `json:"id"`
	BabyID    string     `json:"baby_id"`
	AuthorID  string     `json:"author_id"`
	Type      NoteType   `json:"type" validate:"required,oneof=memo diary schedule todo"`
	Title     string     `json:"title" validate:"required,max=100"`
	Body      string     `json:"body" validate:"max=5000"`
	DueAt     *time.Time `json:"due_at,omitempty"`
	Completed bool       `json:"completed"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type NotePatch struct {
	Title     *string    `json:"title" validate:"omitempty,min=1,max=100"`
	Body      *string    `json:"body" validate:"omitempty,max=5000"`
	DueAt     *time.Time `json:"due_at"`
	Completed *bool      `json:"completed"`
}

type NoteTemplate struct {
	Type  NoteType `json:"type"`
	Title string   `json:"title"`
	Body  string   `json:"body"`
}
