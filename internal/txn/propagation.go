package txn

import (
	"fmt"
	"strings"
)

// Propagation declares how a scope relates to the transaction already bound
// to the call chain.
type Propagation uint8

const (
	// Required joins the bound physical transaction, or starts one when
	// nothing is bound.
	Required Propagation = iota
	// RequiresNew always suspends the bound transaction (if any) and starts a
	// fresh, independent one.
	RequiresNew
)

func (p Propagation) String() string {
	switch p {
	case Required:
		return "REQUIRED"
	case RequiresNew:
		return "REQUIRES_NEW"
	default:
		return fmt.Sprintf("Propagation(%d)", uint8(p))
	}
}

func (p Propagation) valid() bool {
	return p == Required || p == RequiresNew
}

// ParsePropagation accepts the String form, case-insensitively, with either
// '_' or '-' as the separator.
func ParsePropagation(raw string) (Propagation, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), "-", "_"))
	switch normalized {
	case "REQUIRED":
		return Required, nil
	case "REQUIRES_NEW":
		return RequiresNew, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPropagation, raw)
	}
}

// Outcome is the caller's requested completion for a scope.
type Outcome uint8

const (
	Commit Outcome = iota
	Rollback
)

func (o Outcome) valid() bool {
	return o == Commit || o == Rollback
}

func (o Outcome) String() string {
	switch o {
	case Commit:
		return "commit"
	case Rollback:
		return "rollback"
	default:
		return fmt.Sprintf("Outcome(%d)", uint8(o))
	}
}
