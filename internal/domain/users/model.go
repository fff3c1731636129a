package users

import "time"

// User es el perfil mínimo que referencian las actividades (actor / target).
type User struct {
	ID        string
	Name      string
	Email     string
	AvatarURL string

	CreatedAt time.Time
	UpdatedAt time.Time
}
