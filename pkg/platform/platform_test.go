package platform

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"golang.design/x/hotkey"
)

// fakeShortcut blocks in Register until release is closed, when set.
type fakeShortcut struct {
	release chan struct{}

	mu           sync.Mutex
	registered   int
	unregistered int
	keydown      chan hotkey.Event
}

func newFakeShortcut() *fakeShortcut {
	return &fakeShortcut{keydown: make(chan hotkey.Event)}
}

func (s *fakeShortcut) Register() error {
	if s.release != nil {
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registered++
	return nil
}

func (s *fakeShortcut) Unregister() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unregistered++
	return nil
}

func (s *fakeShortcut) Keydown() <-chan hotkey.Event { return s.keydown }

func (s *fakeShortcut) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registered, s.unregistered
}

func TestQuitGuardDisableWithoutEnable(t *testing.T) {
	g := NewQuitGuard(zap.NewNop().Sugar())
	g.Disable()
	assert.False(t, g.Enabled())
}

func TestQuitGuardEnableDoesNotBlockCaller(t *testing.T) {
	sc := newFakeShortcut()
	sc.release = make(chan struct{})
	g := newQuitGuard(func() shortcut { return sc }, zap.NewNop().Sugar())

	returned := make(chan struct{})
	go func() {
		g.Enable()
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Enable blocked on shortcut registration")
	}
	assert.False(t, g.Enabled())

	close(sc.release)
	assert.Eventually(t, g.Enabled, time.Second, 5*time.Millisecond)
}

func TestQuitGuardConvergesOnLastRequest(t *testing.T) {
	sc := newFakeShortcut()
	g := newQuitGuard(func() shortcut { return sc }, zap.NewNop().Sugar())

	g.Enable()
	assert.Eventually(t, g.Enabled, time.Second, 5*time.Millisecond)

	g.Enable()
	g.Disable()
	assert.Eventually(t, func() bool {
		_, unregistered := sc.counts()
		return unregistered == 1
	}, time.Second, 5*time.Millisecond)
	assert.False(t, g.Enabled())

	registered, _ := sc.counts()
	assert.Equal(t, 1, registered)
}
