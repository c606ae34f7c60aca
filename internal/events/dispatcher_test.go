package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatcher_PublishRunsAllHandlers(t *testing.T) {
	t.Parallel()

	d := NewInMemoryDispatcher()
	boom := errors.New("boom")
	var calls []string

	d.Subscribe(EventScanRecorded, func(context.Context, Event) error {
		calls = append(calls, "first")
		return boom
	})
	d.Subscribe(EventScanRecorded, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventTokenIssued, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventScanRecorded, SubjectID: "p-1"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestDispatcher_NoListeners(t *testing.T) {
	t.Parallel()

	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventTokenIssued}))
}
