package model

import "time"

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type UserSettings struct {
	UserID        string `json:"user_id"`
	Timezone      string `json:"timezone" validate:"required,timezone"`
	Language      string `json:"language" validate:"required,oneof=ko en"`
	Notifications bool   `json:"notifications"`
}

// Me is the profile returned to the signed-in user.
type Me struct {
	User     *User         `json:"user"`
	Settings *UserSettings `json:"settings"`
	FamilyID string        `json:"family_id,omitempty"`
}
