package member

import "errors"

var (
	ErrMemberIDRequired  = errors.New("member id is required")
	ErrMemberNotFound    = errors.New("member not found")
	ErrDuplicateMember   = errors.New("member already exists")
	ErrInvalidAmount     = errors.New("transfer amount must be positive")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrTransferRejected  = errors.New("transfer rejected by target member")
	ErrLogNotFound       = errors.New("log entry not found")
	ErrLogRejected       = errors.New("log entry rejected")
)
