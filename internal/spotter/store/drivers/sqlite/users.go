package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/carspotters/spotter/internal/spotter/domain"
	"github.com/carspotters/spotter/pkg/idx"
)

type usersRepo struct {
	db *sql.DB
}

const userColumns = `id, firebase_uid, name, email, phone, location, bio,
	profile_image, skills, car_brands, total_spots, reputation, is_active,
	created_at, updated_at`

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (
			id, firebase_uid, name, email, phone, location, bio,
			profile_image, skills, car_brands, total_spots, reputation,
			is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID.String(),
		u.FirebaseUID,
		u.Name,
		u.Email,
		u.Phone,
		u.Location,
		u.Bio,
		u.ProfileImage,
		marshalStrings(u.Skills),
		marshalStrings(u.CarBrands),
		u.TotalSpots,
		u.Reputation,
		u.IsActive,
		u.CreatedAt.UTC(),
		u.UpdatedAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return r.getUserBy(ctx, "id", id)
}

func (r *usersRepo) GetUserByFirebaseUID(ctx context.Context, uid string) (domain.User, error) {
	return r.getUserBy(ctx, "firebase_uid", uid)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getUserBy(ctx, "email", email)
}

func (r *usersRepo) getUserBy(ctx context.Context, column, value string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value)
	return scanUser(row)
}

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u         domain.User
		id        string
		skills    string
		carBrands string
		createdAt time.Time
		updatedAt time.Time
	)
	err := row.Scan(
		&id,
		&u.FirebaseUID,
		&u.Name,
		&u.Email,
		&u.Phone,
		&u.Location,
		&u.Bio,
		&u.ProfileImage,
		&skills,
		&carBrands,
		&u.TotalSpots,
		&u.Reputation,
		&u.IsActive,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.ID, err = idx.Parse(id)
	if err != nil {
		return domain.User{}, err
	}
	u.Skills = unmarshalStrings(skills)
	u.CarBrands = unmarshalStrings(carBrands)
	u.CreatedAt = createdAt
	u.UpdatedAt = updatedAt
	return u, nil
}
