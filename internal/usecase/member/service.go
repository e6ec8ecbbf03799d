package member

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"txscope/internal/bootstrap/logging"
	domainmember "txscope/internal/domain/member"
	"txscope/internal/ports"
)

type Service struct {
	members ports.MemberRepository
	logs    ports.LogRepository
	uow     ports.UnitOfWork

	maxAttempts int
	retryDelay  time.Duration
	newID       func(base string) string
}

type Option func(*Service)

// WithRetry bounds Register's duplicate-id retries. maxAttempts counts the
// first try; delay is the base of the Fibonacci backoff.
func WithRetry(maxAttempts int, delay time.Duration) Option {
	return func(s *Service) {
		if maxAttempts > 0 {
			s.maxAttempts = maxAttempts
		}
		if delay > 0 {
			s.retryDelay = delay
		}
	}
}

// WithIDGenerator replaces the suffixing strategy used after a duplicate id.
func WithIDGenerator(fn func(base string) string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func NewService(members ports.MemberRepository, logs ports.LogRepository, uow ports.UnitOfWork, opts ...Option) *Service {
	s := &Service{
		members:     members,
		logs:        logs,
		uow:         uow,
		maxAttempts: 3,
		retryDelay:  10 * time.Millisecond,
		newID:       suffixedID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func suffixedID(base string) string {
	return fmt.Sprintf("%s-%s", base, uuid.NewString()[:8])
}

// Find reads a member inside its own scope, or inside the caller's when ctx
// already carries one.
func (s *Service) Find(ctx context.Context, memberID string) (domainmember.Member, error) {
	var found domainmember.Member
	err := s.uow.WithTx(ctx, func(ctx context.Context) error {
		m, err := s.members.FindByID(ctx, memberID)
		found = m
		return err
	})
	return found, err
}

func (s *Service) FindLog(ctx context.Context, message string) (domainmember.Log, error) {
	var found domainmember.Log
	err := s.uow.WithTx(ctx, func(ctx context.Context) error {
		entry, err := s.logs.FindByMessage(ctx, message)
		found = entry
		return err
	})
	return found, err
}

func (s *Service) Delete(ctx context.Context, memberID string) error {
	return s.uow.WithTx(ctx, func(ctx context.Context) error {
		return s.members.Delete(ctx, memberID)
	})
}

func (s *Service) logCtx(ctx context.Context, op string) context.Context {
	return logging.WithAttrs(ctx,
		slog.String("component", "usecase.member"),
		slog.String("op", op),
	)
}
