package txn_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"txscope/internal/ports"
	"txscope/internal/txn"
)

// store is the durable side of the fake resource: committed writes land here.
type store struct {
	mu   sync.Mutex
	rows map[string]string
}

func newStore() *store {
	return &store{rows: map[string]string{}}
}

func (s *store) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.rows))
	for k := range s.rows {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s *store) apply(rows map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range rows {
		s.rows[k] = v
	}
}

type fakeHandle struct {
	id    string
	store *store

	commitErr   error
	rollbackErr error
	closeErr    error

	mu         sync.Mutex
	pending    map[string]string
	autoCommit bool
	open       bool
	begins     int
	commits    int
	rollbacks  int
	closes     int
}

func (h *fakeHandle) ID() string { return h.id }

func (h *fakeHandle) Begin(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.begins++
	h.autoCommit = false
	h.pending = map[string]string{}
	return nil
}

func (h *fakeHandle) Commit(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commits++
	if h.commitErr != nil {
		h.pending = nil
		return h.commitErr
	}
	h.store.apply(h.pending)
	h.pending = nil
	return nil
}

func (h *fakeHandle) Rollback(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rollbacks++
	h.pending = nil
	return h.rollbackErr
}

func (h *fakeHandle) Close(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closes++
	h.autoCommit = true
	h.open = false
	return h.closeErr
}

func (h *fakeHandle) AutoCommit() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.autoCommit
}

func (h *fakeHandle) IsOpen() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.open
}

func (h *fakeHandle) write(key string, value string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending[key] = value
}

type fakeProvider struct {
	store *store

	acquireErr error
	beginErr   error
	configure  func(*fakeHandle)

	mu       sync.Mutex
	handles  []*fakeHandle
	released map[string]int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{store: newStore(), released: map[string]int{}}
}

func (p *fakeProvider) Acquire(context.Context) (ports.ResourceHandle, error) {
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	h := &fakeHandle{
		id:         fmt.Sprintf("h%d", len(p.handles)+1),
		store:      p.store,
		autoCommit: true,
		open:       true,
	}
	if p.configure != nil {
		p.configure(h)
	}
	p.handles = append(p.handles, h)
	if p.beginErr != nil {
		return &failingBeginHandle{fakeHandle: h, err: p.beginErr}, nil
	}
	return h, nil
}

func (p *fakeProvider) Release(ctx context.Context, handle ports.ResourceHandle) error {
	p.mu.Lock()
	p.released[handle.ID()]++
	p.mu.Unlock()
	return handle.Close(ctx)
}

func (p *fakeProvider) acquired() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.handles)
}

func (p *fakeProvider) releasedCount(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released[id]
}

func (p *fakeProvider) handle(i int) *fakeHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handles[i]
}

type failingBeginHandle struct {
	*fakeHandle
	err error
}

func (h *failingBeginHandle) Begin(ctx context.Context) error {
	_ = h.fakeHandle.Begin(ctx)
	return h.err
}

// write is a participant: it routes through whatever handle ctx has bound.
func write(ctx context.Context, key string) error {
	handle, err := txn.CurrentHandle(ctx)
	if err != nil {
		return err
	}
	fh, ok := handle.(*fakeHandle)
	if !ok {
		return errors.New("unexpected handle type")
	}
	fh.write(key, "v")
	return nil
}

type recordingObserver struct {
	mu     sync.Mutex
	events []txn.Event
}

func (o *recordingObserver) Observe(_ context.Context, ev txn.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, ev)
}

func (o *recordingObserver) kinds() []txn.EventKind {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]txn.EventKind, 0, len(o.events))
	for _, ev := range o.events {
		out = append(out, ev.Kind)
	}
	return out
}
