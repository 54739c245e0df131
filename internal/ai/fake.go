package ai

import (
	"context"
	"fmt"
	"sync"
)

// Fake is a scripted Generator for tests. Each call consumes the next
// response; calls past the end fail.
type Fake struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	Requests  []Request
}

// NewFake returns a Fake that answers with responses in order.
func NewFake(responses ...string) *Fake {
	return &Fake{Responses: responses}
}

// Generate records req and returns the next scripted response.
func (f *Fake) Generate(_ context.Context, req Request) (Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Requests = append(f.Requests, req)
	if f.Err != nil {
		return Response{}, f.Err
	}
	if len(f.Responses) == 0 {
		return Response{}, fmt.Errorf("fake generator: no response scripted for %s", req.Kind)
	}
	text := f.Responses[0]
	f.Responses = f.Responses[1:]
	return Response{Text: text, Model: "fake"}, nil
}

// Calls returns the number of requests seen.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Requests)
}
