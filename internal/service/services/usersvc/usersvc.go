package usersvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/orderddd/internal/dal/dalerr"
	"github.com/corray333/backend-labs/orderddd/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/orderddd/internal/dal/interfaces/iuserrepo"
	"github.com/corray333/backend-labs/orderddd/internal/dal/postgres"
	"github.com/corray333/backend-labs/orderddd/internal/dal/uow"
	"github.com/corray333/backend-labs/orderddd/internal/domain/ident"
	"github.com/corray333/backend-labs/orderddd/internal/domain/user"
	"github.com/corray333/backend-labs/orderddd/internal/service/events"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// UserService runs the user use cases.
type UserService struct {
	pgClient *postgres.Client
	newUOW   func() unitOfWork

	exchange           string
	outboxMaxRetries   int
	maxConflictRetries int
}

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	UserRepository() iuserrepo.IUserRepository
	OutboxRepository() ioutboxrepo.IOutboxRepository
}

type option func(*UserService)

// MustNewUserService creates a new UserService.
func MustNewUserService(opts ...option) *UserService {
	s := &UserService{
		exchange:           viper.GetString("rabbitmq.exchange"),
		outboxMaxRetries:   viper.GetInt("rabbitmq.outbox.max_retries"),
		maxConflictRetries: viper.GetInt("orders.max_conflict_retries"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.newUOW == nil {
		if s.pgClient == nil {
			panic("usersvc: postgres client is required")
		}
		s.newUOW = func() unitOfWork { return uow.NewUnitOfWork(s.pgClient) }
	}

	return s
}

// WithPostgresClient sets the Postgres client for the UserService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *UserService) {
		s.pgClient = pgClient
	}
}

// RegisterUser fails with dalerr.ErrDuplicate when the email is taken.
func (s *UserService) RegisterUser(ctx context.Context, name user.Name, email user.Email) (u *user.User, err error) {
	ctx, span := otel.Tracer("service").Start(ctx, "UserService.RegisterUser")
	defer func() { endSpan(span, err) }()

	u, err = user.RegisterUser(name, email)
	if err != nil {
		return nil, err
	}

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return nil, err
	}
	defer s.rollback(ctx, work)

	if err := work.UserRepository().Insert(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	if err := s.enqueue(ctx, work, u.DrainEvents()); err != nil {
		return nil, err
	}
	if err := work.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	slog.Info("User registered", "user_id", u.ID())

	return u, nil
}

func (s *UserService) GetUser(ctx context.Context, id ident.UserID) (u *user.User, err error) {
	ctx, span := otel.Tracer("service").Start(ctx, "UserService.GetUser",
		trace.WithAttributes(attribute.String("user.id", id.String())))
	defer func() { endSpan(span, err) }()

	return s.newUOW().UserRepository().Get(ctx, id)
}

func (s *UserService) Rename(ctx context.Context, id ident.UserID, name user.Name) (*user.User, error) {
	return s.mutate(ctx, "UserService.Rename", id, func(u *user.User) error { return u.Rename(name) })
}

func (s *UserService) ChangeEmail(ctx context.Context, id ident.UserID, email user.Email) (*user.User, error) {
	return s.mutate(ctx, "UserService.ChangeEmail", id, func(u *user.User) error { return u.ChangeEmail(email) })
}

func (s *UserService) Deactivate(ctx context.Context, id ident.UserID) (*user.User, error) {
	return s.mutate(ctx, "UserService.Deactivate", id, (*user.User).Deactivate)
}

func (s *UserService) mutate(
	ctx context.Context,
	spanName string,
	id ident.UserID,
	change func(u *user.User) error,
) (u *user.User, err error) {
	ctx, span := otel.Tracer("service").Start(ctx, spanName,
		trace.WithAttributes(attribute.String("user.id", id.String())))
	defer func() { endSpan(span, err) }()

	for attempt := 0; ; attempt++ {
		u, err = s.mutateOnce(ctx, id, change)
		if !errors.Is(err, dalerr.ErrConcurrentModification) || attempt >= s.maxConflictRetries {
			return u, err
		}
		slog.Warn("Concurrent user modification, retrying", "user_id", id, "attempt", attempt+1)
	}
}

func (s *UserService) mutateOnce(ctx context.Context, id ident.UserID, change func(u *user.User) error) (*user.User, error) {
	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return nil, err
	}
	defer s.rollback(ctx, work)

	u, err := work.UserRepository().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	loadedAt := u.UpdatedAt()
	if err := change(u); err != nil {
		return nil, err
	}
	if u.UpdatedAt().Equal(loadedAt) {
		return u, nil
	}

	if err := work.UserRepository().Update(ctx, u, loadedAt); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}
	if err := s.enqueue(ctx, work, u.DrainEvents()); err != nil {
		return nil, err
	}
	if err := work.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	return u, nil
}

func (s *UserService) enqueue(ctx context.Context, work unitOfWork, evs []user.Event) error {
	now := time.Now().UTC()
	for _, e := range evs {
		env, err := events.FromUserEvent(e)
		if err != nil {
			return err
		}
		msg, err := env.ToOutbox(s.exchange, s.outboxMaxRetries, now)
		if err != nil {
			return err
		}
		if err := work.OutboxRepository().Insert(ctx, msg); err != nil {
			return fmt.Errorf("failed to enqueue %s: %w", e.EventName(), err)
		}
	}

	return nil
}

func (s *UserService) rollback(ctx context.Context, work unitOfWork) {
	if err := work.Rollback(ctx); err != nil {
		slog.Error("Failed to rollback transaction", "error", err)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
