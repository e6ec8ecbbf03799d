package member

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sethvargo/go-retry"

	"txscope/internal/bootstrap/logging"
	domainmember "txscope/internal/domain/member"
	"txscope/internal/errs"
	"txscope/internal/txn"
)

// Register stores a new member. Called at the root, a taken id is retried
// with a generated id, each attempt in its own transaction. Called inside a
// running transaction there is a single attempt: a failed save has already
// marked the caller's transaction rollback-only, so the duplicate error is
// returned as is. Only duplicate ids are retried.
func (s *Service) Register(ctx context.Context, memberID string, money int) (domainmember.Member, error) {
	m, err := domainmember.New(memberID, money)
	if err != nil {
		return domainmember.Member{}, err
	}

	logCtx := s.logCtx(ctx, "register")
	retries := uint64(s.maxAttempts - 1)
	if _, err := txn.CurrentHandle(ctx); err == nil {
		retries = 0
	}
	backoff := retry.WithMaxRetries(retries, retry.NewFibonacci(s.retryDelay))

	var (
		saved   domainmember.Member
		attempt int
	)
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		candidate := m
		if attempt > 0 {
			candidate.MemberID = s.newID(m.MemberID)
		}
		attempt++

		err := s.uow.WithTx(ctx, func(ctx context.Context) error {
			stored, err := s.members.Save(ctx, candidate)
			saved = stored
			return err
		})
		if errors.Is(err, domainmember.ErrDuplicateMember) && retries > 0 {
			logging.Info(logCtx, "member id taken, retrying with generated id",
				slog.String("member_id", candidate.MemberID),
				slog.Int("attempt", attempt),
			)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return domainmember.Member{}, errs.Wrapf(err, "register member %q", m.MemberID)
	}
	return saved, nil
}
