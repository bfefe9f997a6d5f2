package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/orderddd/internal/dal/dalerr"
	"github.com/corray333/backend-labs/orderddd/internal/dal/postgres"
	"github.com/corray333/backend-labs/orderddd/internal/domain/ident"
	"github.com/corray333/backend-labs/orderddd/internal/domain/user"
	"github.com/jackc/pgx/v5"
)

// UserDal is the users row.
type UserDal struct {
	ID        string
	Name      string
	Email     string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func UserDalFromModel(u *user.User) UserDal {
	return UserDal{
		ID:        u.ID().String(),
		Name:      u.Name().String(),
		Email:     u.Email().String(),
		Active:    u.Active(),
		CreatedAt: u.CreatedAt().UTC().Truncate(time.Microsecond),
		UpdatedAt: u.UpdatedAt().UTC().Truncate(time.Microsecond),
	}
}

func (d *UserDal) ToModel() (*user.User, error) {
	id, err := ident.NewUserID(d.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse user id: %w", err)
	}
	name, err := user.NewName(d.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to parse name: %w", err)
	}
	email, err := user.NewEmail(d.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to parse email: %w", err)
	}

	return user.ReconstructUser(id, name, email, d.Active, d.CreatedAt.UTC(), d.UpdatedAt.UTC())
}

// UserRepository stores users in the users table.
type UserRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

func NewUserRepository(conn postgres.GenericConn) *UserRepository {
	return &UserRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *UserRepository) Insert(ctx context.Context, u *user.User) error {
	dal := UserDalFromModel(u)

	query, args, err := r.sb.Insert("users").
		Columns("id", "name", "email", "active", "created_at", "updated_at").
		Values(dal.ID, dal.Name, dal.Email, dal.Active, dal.CreatedAt, dal.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build user insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("email %s: %w", dal.Email, dalerr.ErrDuplicate)
		}

		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

func (r *UserRepository) Get(ctx context.Context, id ident.UserID) (*user.User, error) {
	query, args, err := r.sb.Select("id::text", "name", "email", "active", "created_at", "updated_at").
		From("users").
		Where(sq.Eq{"id": id.String()}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build user select query: %w", err)
	}

	var dal UserDal
	err = r.conn.QueryRow(ctx, query, args...).Scan(
		&dal.ID,
		&dal.Name,
		&dal.Email,
		&dal.Active,
		&dal.CreatedAt,
		&dal.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, dalerr.ErrNotFound)
		}

		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	u, err := dal.ToModel()
	if err != nil {
		return nil, fmt.Errorf("failed to convert user dal to model: %w", err)
	}

	return u, nil
}

func (r *UserRepository) Update(ctx context.Context, u *user.User, expectedUpdatedAt time.Time) error {
	dal := UserDalFromModel(u)

	query, args, err := r.sb.Update("users").
		Set("name", dal.Name).
		Set("email", dal.Email).
		Set("active", dal.Active).
		Set("updated_at", dal.UpdatedAt).
		Where(sq.Eq{"id": dal.ID, "updated_at": expectedUpdatedAt.UTC().Truncate(time.Microsecond)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build user update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("email %s: %w", dal.Email, dalerr.ErrDuplicate)
		}

		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	if _, err := r.Get(ctx, u.ID()); err != nil {
		return err
	}

	return fmt.Errorf("user %s: %w", dal.ID, dalerr.ErrConcurrentModification)
}
