package txn

import (
	"context"

	"github.com/google/uuid"

	"txscope/internal/ports"
)

type registryKey struct{}

// binding is the active registry entry: the handle plus the scope that owns
// its physical transaction. owner is nil for handles bound directly via Bind.
type binding struct {
	handle ports.ResourceHandle
	owner  *Scope
}

// Registry is the per-call-chain slot holding at most one active handle and
// the stack of open scopes. It is not safe for concurrent use; a Registry
// must never be shared between goroutines that run transactions
// independently.
type Registry struct {
	id     uuid.UUID
	active *binding
	stack  []*Scope
}

func newRegistry() *Registry {
	return &Registry{id: uuid.New()}
}

// ID identifies the call chain in logs.
func (r *Registry) ID() uuid.UUID { return r.id }

// CurrentHandle returns the active handle or ErrNoActiveTransaction.
func (r *Registry) CurrentHandle() (ports.ResourceHandle, error) {
	if r == nil || r.active == nil {
		return nil, ErrNoActiveTransaction
	}
	return r.active.handle, nil
}

// Bind registers handle as the active resource of this call chain. The
// engine never commits or releases handles bound this way.
func (r *Registry) Bind(handle ports.ResourceHandle) error {
	if handle == nil {
		return ErrHandleRequired
	}
	return r.bind(binding{handle: handle})
}

// Unbind detaches and returns the active handle.
func (r *Registry) Unbind() (ports.ResourceHandle, error) {
	b, err := r.unbind()
	if err != nil {
		return nil, err
	}
	return b.handle, nil
}

// Depth is the number of scopes currently open on this call chain.
func (r *Registry) Depth() int { return len(r.stack) }

func (r *Registry) bind(b binding) error {
	if r.active != nil {
		return ErrAlreadyBound
	}
	r.active = &b
	return nil
}

func (r *Registry) unbind() (binding, error) {
	if r.active == nil {
		return binding{}, ErrNotBound
	}
	b := *r.active
	r.active = nil
	return b, nil
}

func (r *Registry) current() (binding, bool) {
	if r.active == nil {
		return binding{}, false
	}
	return *r.active, true
}

func (r *Registry) push(s *Scope) {
	r.stack = append(r.stack, s)
}

func (r *Registry) pop(s *Scope) error {
	if s.completed {
		return ErrScopeOrderViolation
	}
	n := len(r.stack)
	if n == 0 || r.stack[n-1] != s {
		return ErrScopeOrderViolation
	}
	r.stack[n-1] = nil
	r.stack = r.stack[:n-1]
	return nil
}

// RegistryFromContext returns the registry of the call chain carried by ctx.
func RegistryFromContext(ctx context.Context) (*Registry, bool) {
	if ctx == nil {
		return nil, false
	}
	r, ok := ctx.Value(registryKey{}).(*Registry)
	return r, ok && r != nil
}

// NewCallChain returns a context carrying a fresh, empty registry. Use it for
// work that runs on another goroutine, so that it neither observes nor mutates
// the caller's transaction state.
func NewCallChain(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, registryKey{}, newRegistry())
}

// CurrentHandle is the participant entry point: it returns the handle bound
// to the call chain carried by ctx, or ErrNoActiveTransaction.
func CurrentHandle(ctx context.Context) (ports.ResourceHandle, error) {
	r, ok := RegistryFromContext(ctx)
	if !ok {
		return nil, ErrNoActiveTransaction
	}
	return r.CurrentHandle()
}

func ensureRegistry(ctx context.Context) (context.Context, *Registry) {
	if r, ok := RegistryFromContext(ctx); ok {
		return ctx, r
	}
	r := newRegistry()
	return context.WithValue(ctx, registryKey{}, r), r
}
