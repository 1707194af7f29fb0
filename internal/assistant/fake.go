package assistant

import (
	"context"
	"sync"
)

// Fake is a scripted Client for tests. Each Generate call consumes the next
// queued response; an exhausted queue replays the last one.
type Fake struct {
	mu        sync.Mutex
	responses []fakeResponse
	calls     []FakeCall
}

type fakeResponse struct {
	output string
	err    error
}

// FakeCall records the arguments of one Generate invocation.
type FakeCall struct {
	Prompt  string
	WorkDir string
}

// NewFake creates a fake that always returns output.
func NewFake(output string) *Fake {
	f := &Fake{}
	f.Queue(output, nil)
	return f
}

// Queue appends a scripted response.
func (f *Fake) Queue(output string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, fakeResponse{output: output, err: err})
	return f
}

// Generate returns the next scripted response and records the call.
func (f *Fake) Generate(ctx context.Context, prompt, workDir string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, FakeCall{Prompt: prompt, WorkDir: workDir})

	if len(f.responses) == 0 {
		return "", nil
	}
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp.output, resp.err
}

// Calls returns a copy of all recorded invocations.
func (f *Fake) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FakeCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns how many times Generate ran.
func (f *Fake) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
