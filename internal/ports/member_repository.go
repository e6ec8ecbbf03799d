package ports

import (
	"context"

	"txscope/internal/domain/member"
)

// MemberRepository participates in the transaction bound to ctx and fails
// with txn.ErrNoActiveTransaction when called outside a scope.
type MemberRepository interface {
	Save(ctx context.Context, m member.Member) (member.Member, error)
	FindByID(ctx context.Context, memberID string) (member.Member, error)
	Update(ctx context.Context, memberID string, money int) error
	Delete(ctx context.Context, memberID string) error
}

type LogRepository interface {
	Save(ctx context.Context, entry member.Log) error
	FindByMessage(ctx context.Context, message string) (member.Log, error)
}
