package entity

import "time"

// User usuário da aplicação. Todos os dados fiscais são escopados por usuário.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
