package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskdeck/apiserver/types"
)

type recordingPublisher struct {
	mu       sync.Mutex
	channels []string
	payloads [][]byte
	attrs    []map[string]string
	err      error
	done     chan struct{}
}

func newRecordingPublisher(err error) *recordingPublisher {
	return &recordingPublisher{err: err, done: make(chan struct{}, 8)}
}

func (p *recordingPublisher) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	p.mu.Lock()
	p.channels = append(p.channels, channel)
	p.payloads = append(p.payloads, data)
	p.attrs = append(p.attrs, attrs)
	p.mu.Unlock()
	p.done <- struct{}{}
	return "", p.err
}

func (p *recordingPublisher) wait(t *testing.T) {
	t.Helper()
	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for publish")
	}
}

func TestUserRegisteredPublishesEvent(t *testing.T) {
	publisher := newRecordingPublisher(nil)
	notifier := NewAccountNotifier(publisher, "account-events")

	notifier.UserRegistered(types.User{ID: 7, Name: "Alice", Email: "alice@example.com"})
	publisher.wait(t)

	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	require.Len(t, publisher.payloads, 1)
	assert.Equal(t, "account-events", publisher.channels[0])
	assert.Equal(t, map[string]string{"event": EventUserRegistered}, publisher.attrs[0])

	var event AccountEvent
	require.NoError(t, json.Unmarshal(publisher.payloads[0], &event))
	assert.Equal(t, EventUserRegistered, event.Event)
	assert.Equal(t, 7, event.UserID)
	assert.Equal(t, "alice@example.com", event.Email)
	assert.Equal(t, "Alice", event.Name)
	assert.False(t, event.OccurredAt.IsZero())
}

func TestUserCancelledPublishesEvent(t *testing.T) {
	publisher := newRecordingPublisher(nil)
	notifier := NewAccountNotifier(publisher, "account-events")

	notifier.UserCancelled(types.User{ID: 3, Name: "Bob", Email: "bob@example.com"})
	publisher.wait(t)

	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	require.Len(t, publisher.payloads, 1)

	var event AccountEvent
	require.NoError(t, json.Unmarshal(publisher.payloads[0], &event))
	assert.Equal(t, EventUserCancelled, event.Event)
	assert.Equal(t, 3, event.UserID)
}

func TestDispatchSwallowsPublishErrors(t *testing.T) {
	publisher := newRecordingPublisher(errors.New("broker unavailable"))
	notifier := NewAccountNotifier(publisher, "account-events")

	// Must not panic or block the caller.
	notifier.UserRegistered(types.User{ID: 1, Email: "alice@example.com"})
	publisher.wait(t)
}

func TestNilNotifierIsSafe(t *testing.T) {
	var notifier *AccountNotifier
	notifier.UserRegistered(types.User{ID: 1})
	notifier.UserCancelled(types.User{ID: 1})

	withNilPublisher := NewAccountNotifier(nil, "account-events")
	withNilPublisher.UserRegistered(types.User{ID: 1})
}
