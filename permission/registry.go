package permission

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/mo"
)

// Grant is the platform's answer for one requested permission.
type Grant int

const (
	GrantUnknown Grant = iota
	Granted
	Denied
)

// Registry correlates outstanding permission requests with the results the
// host delivers later.
type Registry struct {
	mu      sync.Mutex
	pending map[uuid.UUID]chan mo.Result[Status]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		pending: make(map[uuid.UUID]chan mo.Result[Status]),
	}
}

// Request is an outstanding permission request.
type Request struct {
	Token  uuid.UUID
	result chan mo.Result[Status]
}

// Begin registers a new request.
func (r *Registry) Begin() *Request {
	r.mu.Lock()
	defer r.mu.Unlock()

	req := &Request{Token: uuid.New(), result: make(chan mo.Result[Status], 1)}
	r.pending[req.Token] = req.result
	return req
}

// Complete resolves the request token. Only the first grant decides the
// outcome: Granted authorizes, Denied denies, and anything else (including an
// empty list, i.e. a cancelled request) fails the request.
func (r *Registry) Complete(token uuid.UUID, grants []Grant) error {
	r.mu.Lock()
	ch, ok := r.pending[token]
	delete(r.pending, token)
	r.mu.Unlock()

	if !ok {
		return &Error{Type: ErrUnknownRequest, Message: "no pending request " + token.String()}
	}

	switch {
	case len(grants) == 0:
		ch <- mo.Err[Status](&Error{Type: ErrUnknownResult, Message: "request was cancelled"})
	case grants[0] == Granted:
		ch <- mo.Ok(StatusAuthorized)
	case grants[0] == Denied:
		ch <- mo.Ok(StatusDenied)
	default:
		ch <- mo.Err[Status](&Error{Type: ErrUnknownResult, Message: "unrecognized grant result"})
	}
	return nil
}

// Wait blocks until req is completed or ctx is done. A request abandoned
// through ctx is forgotten; completing it later fails with ErrUnknownRequest.
func (r *Registry) Wait(ctx context.Context, req *Request) (Status, error) {
	select {
	case res := <-req.result:
		return res.Get()
	case <-ctx.Done():
		r.mu.Lock()
		delete(r.pending, req.Token)
		r.mu.Unlock()
		return "", ctx.Err()
	}
}

// Pending returns the number of outstanding requests.
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
