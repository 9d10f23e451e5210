package storage

import (
	"buildbid/internal/domain/accesscontrol"
	"buildbid/internal/domain/users"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Container struct {
	Users         users.Store
	AccessControl accesscontrol.Store
}

func NewContainer(db *pgxpool.Pool) *Container {
	return &Container{
		Users:         users.NewRepository(db),
		AccessControl: accesscontrol.NewRepository(db),
	}
}
