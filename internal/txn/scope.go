package txn

import (
	"github.com/google/uuid"

	"txscope/internal/ports"
)

// Scope is one logical transactional boundary as seen by a caller. Only the
// scope that started the physical transaction owns it; joined scopes point at
// that owner and share its rollback-only flag.
type Scope struct {
	id          uuid.UUID
	propagation Propagation
	registry    *Registry
	handle      ports.ResourceHandle
	owner       *Scope
	depth       int

	newTransaction bool
	rollbackOnly   bool
	completed      bool

	suspended *binding
}

func (s *Scope) ID() uuid.UUID { return s.id }

func (s *Scope) Propagation() Propagation { return s.propagation }

// IsNewTransaction reports whether this scope started the physical
// transaction and therefore commits, rolls back and releases it.
func (s *Scope) IsNewTransaction() bool { return s.newTransaction }

// IsRollbackOnly reads the flag of the owning scope, however deep this scope
// is nested.
func (s *Scope) IsRollbackOnly() bool {
	if s.owner != nil {
		return s.owner.rollbackOnly
	}
	return s.rollbackOnly
}

// HasSuspended reports whether completing this scope resumes a suspended
// transaction.
func (s *Scope) HasSuspended() bool { return s.suspended != nil }

func (s *Scope) Handle() ports.ResourceHandle { return s.handle }

// Depth is the number of scopes that were open when this one began.
func (s *Scope) Depth() int { return s.depth }

func (s *Scope) IsCompleted() bool { return s.completed }

func (s *Scope) handleID() string {
	if s.handle == nil {
		return ""
	}
	return s.handle.ID()
}

func (s *Scope) markRollbackOnly() {
	if s.owner != nil {
		s.owner.rollbackOnly = true
		return
	}
	s.rollbackOnly = true
}
