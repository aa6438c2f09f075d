package services

import (
	"testing"
	"time"

	"github.com/ArowuTest/recyclehub-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan *models.User) *models.User {
	t.Helper()
	select {
	case u := <-ch:
		return u
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a session update")
		return nil
	}
}

func TestSessionSnapshotsAreCopies(t *testing.T) {
	reg := NewSessionRegistry()
	s := reg.Open(&models.User{Email: "amina@example.com", Password: "hash", Points: 10})

	snap := s.Current()
	assert.Empty(t, snap.Password)
	snap.Points = 999
	assert.Equal(t, 10, s.Current().Points)
}

func TestSessionBroadcastsRefreshAndClose(t *testing.T) {
	reg := NewSessionRegistry()
	s := reg.Open(&models.User{Email: "amina@example.com", Points: 10})
	a, stopA := s.Subscribe()
	b, stopB := s.Subscribe()
	defer stopB()

	reg.Refresh(&models.User{Email: "amina@example.com", Points: 25})
	assert.Equal(t, 25, receive(t, a).Points)
	assert.Equal(t, 25, receive(t, b).Points)

	stopA()
	stopA()
	_, open := <-a
	assert.False(t, open, "unsubscribed channel is closed")

	assert.True(t, reg.Close("amina@example.com"))
	assert.Nil(t, receive(t, b), "logout is announced as nil")
	_, open = <-b
	assert.False(t, open)

	assert.Nil(t, s.Current())
	_, ok := reg.Get("amina@example.com")
	assert.False(t, ok)
	assert.False(t, reg.Close("amina@example.com"))
}

func TestSessionKeepsOnlyLatestUpdate(t *testing.T) {
	reg := NewSessionRegistry()
	s := reg.Open(&models.User{Email: "amina@example.com"})
	ch, stop := s.Subscribe()
	defer stop()

	for i := 1; i <= 5; i++ {
		reg.Refresh(&models.User{Email: "amina@example.com", Points: i})
	}
	assert.Equal(t, 5, receive(t, ch).Points)
}

func TestReopenRefreshesExistingSession(t *testing.T) {
	reg := NewSessionRegistry()
	first := reg.Open(&models.User{Email: "amina@example.com", Points: 1})
	second := reg.Open(&models.User{Email: "amina@example.com", Points: 2})

	assert.Same(t, first, second)
	assert.Equal(t, 2, first.Current().Points)
}

func TestSubscribeAfterClose(t *testing.T) {
	reg := NewSessionRegistry()
	s := reg.Open(&models.User{Email: "amina@example.com"})
	s.Close()

	ch, stop := s.Subscribe()
	defer stop()
	require.Nil(t, receive(t, ch))
	_, open := <-ch
	assert.False(t, open)
}

func TestRefreshWithoutSessionIsNoop(t *testing.T) {
	reg := NewSessionRegistry()
	reg.Refresh(&models.User{Email: "nobody@example.com"})
	reg.Refresh(nil)
	_, ok := reg.Get("nobody@example.com")
	assert.False(t, ok)
}
