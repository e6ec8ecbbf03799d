package member

import (
	"fmt"
	"strings"
)

// RejectingMemberID is the member id whose incoming transfers always fail.
const RejectingMemberID = "ex"

// LogFailureMarker makes a log entry fail after it has been written.
const LogFailureMarker = "logException"

type Member struct {
	MemberID string
	Money    int
}

func New(memberID string, money int) (Member, error) {
	id := strings.TrimSpace(memberID)
	if id == "" {
		return Member{}, ErrMemberIDRequired
	}
	return Member{MemberID: id, Money: money}, nil
}

// Withdraw returns the member with amount debited.
func (m Member) Withdraw(amount int) (Member, error) {
	if amount <= 0 {
		return m, ErrInvalidAmount
	}
	if m.Money < amount {
		return m, fmt.Errorf("%w: member %s has %d, needs %d", ErrInsufficientFunds, m.MemberID, m.Money, amount)
	}
	m.Money -= amount
	return m, nil
}

func (m Member) Deposit(amount int) (Member, error) {
	if amount <= 0 {
		return m, ErrInvalidAmount
	}
	m.Money += amount
	return m, nil
}

// ValidateTransferTarget rejects transfers to RejectingMemberID.
func ValidateTransferTarget(to Member) error {
	if to.MemberID == RejectingMemberID {
		return fmt.Errorf("%w: %s", ErrTransferRejected, to.MemberID)
	}
	return nil
}

// Log is an audit entry recorded when a member joins.
type Log struct {
	ID      uint64
	Message string
}

func NewLog(message string) Log {
	return Log{Message: strings.TrimSpace(message)}
}

func ValidateLog(entry Log) error {
	if strings.Contains(entry.Message, LogFailureMarker) {
		return fmt.Errorf("%w: %q", ErrLogRejected, entry.Message)
	}
	return nil
}
