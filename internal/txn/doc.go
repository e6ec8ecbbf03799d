// Package txn coordinates connection-bound transactions across independently
// called participants.
//
// A caller opens a logical scope with Engine.Begin and a propagation mode.
// Required joins the physical transaction already bound to the call chain or
// starts one; RequiresNew suspends whatever is bound and starts an
// independent transaction. Participants never open connections themselves:
// they look up the bound handle with CurrentHandle(ctx).
//
// The binding lives in a Registry carried by the context. One registry exists
// per call chain; use NewCallChain before handing a context to another
// goroutine that must run its own transactions.
package txn
