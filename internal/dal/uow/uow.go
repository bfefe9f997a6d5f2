package uow

import (
	"context"
	"errors"
	"fmt"

	"github.com/corray333/backend-labs/orderddd/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/orderddd/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/orderddd/internal/dal/interfaces/iuserrepo"
	"github.com/corray333/backend-labs/orderddd/internal/dal/postgres"
	orderrepo "github.com/corray333/backend-labs/orderddd/internal/dal/repositories/order/postgres"
	outboxrepo "github.com/corray333/backend-labs/orderddd/internal/dal/repositories/outbox/postgres"
	userrepo "github.com/corray333/backend-labs/orderddd/internal/dal/repositories/user/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UnitOfWork groups the repositories of one use case. Before Begin they run
// on the pool; after Begin they share a single transaction.
type UnitOfWork struct {
	pool       *pgxpool.Pool
	tx         pgx.Tx
	orderRepo  iorderrepo.IOrderRepository
	userRepo   iuserrepo.IUserRepository
	outboxRepo ioutboxrepo.IOutboxRepository
}

func NewUnitOfWork(client *postgres.Client) *UnitOfWork {
	pool := client.Pool()

	return &UnitOfWork{
		pool:       pool,
		orderRepo:  orderrepo.NewOrderRepository(pool),
		userRepo:   userrepo.NewUserRepository(pool),
		outboxRepo: outboxrepo.NewOutboxRepository(pool),
	}
}

func (u *UnitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return u.orderRepo
}

func (u *UnitOfWork) UserRepository() iuserrepo.IUserRepository {
	return u.userRepo
}

func (u *UnitOfWork) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return u.outboxRepo
}

func (u *UnitOfWork) Begin(ctx context.Context) error {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.orderRepo = orderrepo.NewOrderRepository(tx)
	u.userRepo = userrepo.NewUserRepository(tx)
	u.outboxRepo = outboxrepo.NewOutboxRepository(tx)

	return nil
}

func (u *UnitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}

	return u.tx.Commit(ctx)
}

// Rollback is a no-op after Commit, so it can always be deferred.
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	if err := u.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}

	return nil
}
