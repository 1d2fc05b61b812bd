package command

import (
	"context"
	"sync"
)

// Fake records commands and answers them from a handler. It is used by tests
// of packages that drive external tools.
type Fake struct {
	mu      sync.Mutex
	Calls   []Cmd
	Handler func(cmd Cmd) (Result, error)
}

// Run records cmd and delegates to Handler.
func (f *Fake) Run(_ context.Context, cmd Cmd) (Result, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, cmd)
	handler := f.Handler
	f.mu.Unlock()
	if handler == nil {
		return Result{}, nil
	}
	return handler(cmd)
}

// Commands returns the recorded command lines.
func (f *Fake) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.Calls))
	for _, c := range f.Calls {
		out = append(out, c.String())
	}
	return out
}
