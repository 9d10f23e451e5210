package users

import (
	"database/sql"
	"errors"
	"time"

	"buildbid/internal/domain/accesscontrol"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrBadCredentials    = errors.New("invalid credentials")
	QueryTimeoutDuration = time.Second * 5
)

type User struct {
	ID           int64          `json:"id"`
	FirstName    string         `json:"first_name"`
	LastName     string         `json:"last_name"`
	Email        string         `json:"email"`
	CompanyName  sql.NullString `json:"company_name" swaggertype:"string"`
	AccountType  string         `json:"account_type"`
	RoleID       sql.NullInt64  `json:"role_id" swaggertype:"integer"`
	RoleCode     sql.NullString `json:"role_code" swaggertype:"string"`
	RefreshToken string         `json:"-"` // Sensitive data
	IsActive     bool           `json:"is_active"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Identity projects the user row into the record the evaluator works on.
func (u *User) Identity() accesscontrol.Identity {
	id := accesscontrol.Identity{
		UserID:      u.ID,
		AccountType: accesscontrol.AccountType(u.AccountType),
	}
	if u.RoleID.Valid {
		id.RoleID = u.RoleID.Int64
	}
	if u.RoleCode.Valid {
		id.RoleCode = accesscontrol.RoleCode(u.RoleCode.String)
	}
	return id
}
