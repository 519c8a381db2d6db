package dto

// RegisterRequest body do POST /api/auth/register.
type RegisterRequest struct {
	Name     string `json:"nome"`
	Email    string `json:"email"`
	Password string `json:"senha"`
}

// LoginRequest body do POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"senha"`
}

// AuthResponse token + dados básicos do usuário autenticado.
type AuthResponse struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"id"`
		Name  string `json:"nome"`
		Email string `json:"email"`
	} `json:"user"`
}
