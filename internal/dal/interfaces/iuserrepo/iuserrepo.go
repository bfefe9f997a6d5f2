package iuserrepo

import (
	"context"
	"time"

	"github.com/corray333/backend-labs/orderddd/internal/domain/ident"
	"github.com/corray333/backend-labs/orderddd/internal/domain/user"
)

// IUserRepository persists User aggregates.
type IUserRepository interface {
	// Insert fails with dalerr.ErrDuplicate when the email is taken.
	Insert(ctx context.Context, u *user.User) error
	Get(ctx context.Context, id ident.UserID) (*user.User, error)
	Update(ctx context.Context, u *user.User, expectedUpdatedAt time.Time) error
}
