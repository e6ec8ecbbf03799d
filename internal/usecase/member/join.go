package member

import (
	"context"
	"log/slog"

	"txscope/internal/bootstrap/logging"
	domainmember "txscope/internal/domain/member"
	"txscope/internal/errs"
)

// JoinSeparately stores the member and its join log in two independent root
// transactions. A failing log leaves the member committed.
func (s *Service) JoinSeparately(ctx context.Context, username string) error {
	m, err := domainmember.New(username, 0)
	if err != nil {
		return err
	}

	if err := s.saveMember(ctx, m); err != nil {
		return errs.Wrap(err, "save member")
	}
	if err := s.saveLog(ctx, domainmember.NewLog(m.MemberID)); err != nil {
		return errs.Wrap(err, "save log")
	}
	return nil
}

// Join stores member and log in one transaction; the inner scopes join it and
// any failure rolls back both.
func (s *Service) Join(ctx context.Context, username string) error {
	m, err := domainmember.New(username, 0)
	if err != nil {
		return err
	}

	return s.uow.WithTx(ctx, func(ctx context.Context) error {
		if err := s.saveMember(ctx, m); err != nil {
			return errs.Wrap(err, "save member")
		}
		if err := s.saveLog(ctx, domainmember.NewLog(m.MemberID)); err != nil {
			return errs.Wrap(err, "save log")
		}
		return nil
	})
}

// JoinSwallowingLogFailure ignores a failing log save inside the shared
// transaction. The failed inner scope has already marked the transaction
// rollback-only, so the outer commit fails with txn.ErrUnexpectedRollback and
// nothing is stored.
func (s *Service) JoinSwallowingLogFailure(ctx context.Context, username string) error {
	m, err := domainmember.New(username, 0)
	if err != nil {
		return err
	}

	logCtx := s.logCtx(ctx, "join_swallowing_log_failure")
	return s.uow.WithTx(ctx, func(ctx context.Context) error {
		if err := s.saveMember(ctx, m); err != nil {
			return errs.Wrap(err, "save member")
		}
		if err := s.saveLog(ctx, domainmember.NewLog(m.MemberID)); err != nil {
			logging.Warn(logCtx, "log save failed, continuing", slog.Any("err", errs.Loggable(err)))
		}
		return nil
	})
}

// JoinRecoveringLogFailure writes the log in an independent REQUIRES_NEW
// transaction and tolerates its failure; the member is committed either way.
//
// The log is written before the member row: on SQLite the outer transaction
// must not hold the write lock while the independent one writes.
func (s *Service) JoinRecoveringLogFailure(ctx context.Context, username string) error {
	m, err := domainmember.New(username, 0)
	if err != nil {
		return err
	}

	logCtx := s.logCtx(ctx, "join_recovering_log_failure")
	return s.uow.WithTx(ctx, func(ctx context.Context) error {
		entry := domainmember.NewLog(m.MemberID)
		if err := s.uow.WithNewTx(ctx, func(ctx context.Context) error {
			return s.logs.Save(ctx, entry)
		}); err != nil {
			logging.Warn(logCtx, "log save failed in independent transaction, recovering",
				slog.String("member_id", m.MemberID),
				slog.Any("err", errs.Loggable(err)),
			)
		}
		return s.saveMember(ctx, m)
	})
}

func (s *Service) saveMember(ctx context.Context, m domainmember.Member) error {
	return s.uow.WithTx(ctx, func(ctx context.Context) error {
		_, err := s.members.Save(ctx, m)
		return err
	})
}

func (s *Service) saveLog(ctx context.Context, entry domainmember.Log) error {
	return s.uow.WithTx(ctx, func(ctx context.Context) error {
		return s.logs.Save(ctx, entry)
	})
}
