package chat

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dailyinspo/inspo/pkg/models"
)

// fakeSender collects frames and can be made to fail.
type fakeSender struct {
	mu     sync.Mutex
	frames []OutboundFrame
	fail   bool
	closed bool
}

func (f *fakeSender) Send(frame OutboundFrame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("connection gone")
	}
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeSender) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSender) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func TestRegistry_BroadcastReachesSessionListeners(t *testing.T) {
	r := NewRegistry()

	a := &fakeSender{}
	b := &fakeSender{}
	other := &fakeSender{}
	r.Add(1, a)
	r.Add(1, b)
	r.Add(2, other)

	msg := &models.ChatMessage{SessionID: 1, Role: models.RoleUser, Content: "hi"}
	r.Broadcast(msg)

	assert.Equal(t, 1, a.frameCount())
	assert.Equal(t, 1, b.frameCount())
	assert.Zero(t, other.frameCount())

	assert.Equal(t, "message", a.frames[0].Type)
	assert.Equal(t, "hi", a.frames[0].Data.Content)
}

func TestRegistry_FailedSendDropsListener(t *testing.T) {
	r := NewRegistry()

	healthy := &fakeSender{}
	dead := &fakeSender{fail: true}
	r.Add(1, healthy)
	r.Add(1, dead)

	r.Broadcast(&models.ChatMessage{SessionID: 1, Content: "first"})
	assert.Equal(t, 1, r.Count(1))
	assert.True(t, dead.closed)

	r.Broadcast(&models.ChatMessage{SessionID: 1, Content: "second"})
	assert.Equal(t, 2, healthy.frameCount())
}

func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry()

	s := &fakeSender{}
	id := r.Add(5, s)
	assert.Equal(t, 1, r.Count(5))

	r.Remove(5, id)
	assert.Zero(t, r.Count(5))

	// Removed listeners are not closed; the connection owns its lifecycle.
	assert.False(t, s.closed)
}

func TestRegistry_CloseSession(t *testing.T) {
	r := NewRegistry()

	a := &fakeSender{}
	b := &fakeSender{}
	r.Add(1, a)
	r.Add(1, b)

	r.CloseSession(1)
	assert.Zero(t, r.Count(1))
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestRegistry_CloseAll(t *testing.T) {
	r := NewRegistry()

	a := &fakeSender{}
	b := &fakeSender{}
	r.Add(1, a)
	r.Add(2, b)

	r.CloseAll()
	assert.Zero(t, r.Count(1))
	assert.Zero(t, r.Count(2))
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}
