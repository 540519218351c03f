package models

import (
	"time"

	"github.com/google/uuid"
)

// Roles assignable to accounts of the validation service. Experts review
// flagged conclusions, doctors only submit their own.
const (
	RoleDoctor = "doctor"
	RoleExpert = "expert"
	RoleAdmin  = "admin"
)

type User struct {
	ID        uuid.UUID `db:"id"`
	Username  string    `db:"username"`
	Email     string    `db:"email"`
	Password  string    `db:"password"`
	FullName  string    `db:"full_name"`
	Role      string    `db:"role"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
