package auth

// Claims es lo que el middleware deja en el contexto tras verificar el token.
// UserID es el mismo ID que usan users/activities.
type Claims struct {
	UserID string
	Email  string
}
