package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an administrator allowed to edit the knowledge base. Password holds
// the bcrypt hash.
type User struct {
	ID          uuid.UUID  `db:"id"`
	Username    string     `db:"username"`
	Email       string     `db:"email"`
	Password    string     `db:"password"`
	LastLoginAt *time.Time `db:"last_login_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}
