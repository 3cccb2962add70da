// Package memory is an in-memory permission.Gate.
package memory

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/cyp0633/libcalevents/permission"
	"github.com/google/uuid"
)

// Prompter asks the user for permissions. The answer is delivered later, from
// any goroutine, through Gate.Respond with the same token.
type Prompter interface {
	Prompt(ctx context.Context, token uuid.UUID, permissions []string)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, token uuid.UUID, permissions []string)

func (f PrompterFunc) Prompt(ctx context.Context, token uuid.UUID, permissions []string) {
	f(ctx, token, permissions)
}

// Gate implements permission.Gate using in-memory maps
type Gate struct {
	mu        sync.RWMutex
	granted   map[string]bool // key: platform permission
	rationale map[string]bool // key: platform permission
	requested map[string]bool // key: permission.RequestedKey

	registry *permission.Registry
	prompter Prompter
	logger   *slog.Logger
}

var _ permission.Gate = (*Gate)(nil)

// Option represents a configuration option for the Gate
type Option func(*Gate)

// WithLogger sets the logger for the gate
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithPrompter sets the prompter used by RequestPermission.
func WithPrompter(p Prompter) Option {
	return func(g *Gate) {
		g.prompter = p
	}
}

// WithGranted starts the gate with the given permissions granted.
func WithGranted(perms ...string) Option {
	return func(g *Gate) {
		for _, p := range perms {
			g.granted[p] = true
		}
	}
}

// New creates a new in-memory gate
func New(opts ...Option) *Gate {
	g := &Gate{
		granted:   make(map[string]bool),
		rationale: make(map[string]bool),
		requested: make(map[string]bool),
		registry:  permission.NewRegistry(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Grant marks permissions granted.
func (g *Gate) Grant(perms ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, p := range perms {
		g.granted[p] = true
	}
}

// Revoke marks permissions not granted.
func (g *Gate) Revoke(perms ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, p := range perms {
		delete(g.granted, p)
	}
}

// SetRationale records whether the platform would show a rationale for perm.
func (g *Gate) SetRationale(perm string, show bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rationale[perm] = show
}

func (g *Gate) HasPermission(_ context.Context, readOnly bool) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.hasLocked(readOnly)
}

func (g *Gate) hasLocked(readOnly bool) bool {
	for _, p := range permission.Permissions(readOnly) {
		if !g.granted[p] {
			return false
		}
	}
	return true
}

func (g *Gate) CheckPermission(_ context.Context, readOnly bool) permission.Status {
	g.mu.RLock()
	defer g.mu.RUnlock()

	// The rationale of the strongest permission of the mode decides.
	rationale := g.rationale[permission.Permissions(readOnly)[0]]
	return permission.Evaluate(g.hasLocked(readOnly), g.requested[permission.RequestedKey(readOnly)], rationale)
}

// RequestPermission records the request, then prompts unless the mode is
// already granted. An authorized answer grants every permission of the mode.
func (g *Gate) RequestPermission(ctx context.Context, readOnly bool) (permission.Status, error) {
	g.mu.Lock()
	g.requested[permission.RequestedKey(readOnly)] = true
	has := g.hasLocked(readOnly)
	g.mu.Unlock()

	if has {
		return permission.StatusAuthorized, nil
	}
	if g.prompter == nil {
		return "", &permission.Error{Type: permission.ErrNoPrompter, Message: "no prompter configured"}
	}

	perms := permission.Permissions(readOnly)
	req := g.registry.Begin()

	g.logger.Debug("prompting for permission", "token", req.Token, "permissions", perms)
	g.prompter.Prompt(ctx, req.Token, perms)

	status, err := g.registry.Wait(ctx, req)

	g.mu.Lock()
	if status == permission.StatusAuthorized {
		for _, p := range perms {
			g.granted[p] = true
		}
	}
	g.mu.Unlock()

	if err != nil {
		g.logger.Warn("permission request failed", "token", req.Token, "error", err)
		return "", err
	}
	g.logger.Info("permission request answered", "token", req.Token, "status", status)
	return status, nil
}

// Respond delivers the user's answer to a prompt.
func (g *Gate) Respond(token uuid.UUID, grants []permission.Grant) error {
	return g.registry.Complete(token, grants)
}

// Pending returns the number of unanswered prompts.
func (g *Gate) Pending() int {
	return g.registry.Pending()
}
