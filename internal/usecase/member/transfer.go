package member

import (
	"context"
	"log/slog"

	"txscope/internal/bootstrap/logging"
	domainmember "txscope/internal/domain/member"
	"txscope/internal/errs"
)

// AccountTransfer moves amount between two members atomically. The target is
// validated after the debit is written, so a rejected target exercises the
// rollback of work already done.
func (s *Service) AccountTransfer(ctx context.Context, fromID string, toID string, amount int) error {
	if amount <= 0 {
		return domainmember.ErrInvalidAmount
	}

	logCtx := logging.WithAttrs(s.logCtx(ctx, "account_transfer"),
		slog.String("from", fromID),
		slog.String("to", toID),
		slog.Int("amount", amount),
	)

	err := s.uow.WithTx(ctx, func(ctx context.Context) error {
		from, err := s.members.FindByID(ctx, fromID)
		if err != nil {
			return err
		}
		to, err := s.members.FindByID(ctx, toID)
		if err != nil {
			return err
		}

		debited, err := from.Withdraw(amount)
		if err != nil {
			return err
		}
		if err := s.members.Update(ctx, debited.MemberID, debited.Money); err != nil {
			return err
		}

		if err := domainmember.ValidateTransferTarget(to); err != nil {
			return err
		}

		credited, err := to.Deposit(amount)
		if err != nil {
			return err
		}
		return s.members.Update(ctx, credited.MemberID, credited.Money)
	})
	if err != nil {
		logging.Warn(logCtx, "account transfer rolled back", slog.Any("err", errs.Loggable(err)))
		return errs.Wrap(err, "account transfer")
	}

	logging.Info(logCtx, "account transfer committed")
	return nil
}
