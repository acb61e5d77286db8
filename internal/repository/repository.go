package repository

import (
	"github.com/jackc/pgx/v4/pgxpool"
)

type Repository struct {
	db        *pgxpool.Pool
	User      UserRepository
	Character CharacterRepository
	Media     MediaRepository
	Profile   ProfileRepository
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{
		db:        db,
		User:      NewUserRepository(db),
		Character: NewCharacterRepository(db),
		Media:     NewMediaRepository(db),
		Profile:   NewProfileRepository(db),
	}
}

func (r *Repository) Close() {
	r.db.Close()
}
