package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	err := pub.Emit(context.Background(), Event{
		ApplicantID: "applicant-1",
		Action:      EventUploadCompleted,
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), "applicant-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventUploadCompleted, events[0].Action)
	assert.False(t, events[0].Timestamp.IsZero(), "timestamp must be stamped on emit")
}

func TestPublisher_AsyncMode(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))

	err := pub.Emit(context.Background(), Event{
		ApplicantID: "applicant-2",
		Action:      EventDocumentRejected,
		Reason:      "signature_mismatch",
	})
	require.NoError(t, err)

	// Close drains pending events before returning.
	pub.Close()

	events, err := store.ListByApplicant(context.Background(), "applicant-2")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventDocumentRejected, events[0].Action)
}

func TestAttrsFromList(t *testing.T) {
	attrs := AttrsFromList([]any{"side", "front", "size", 100, "reason", "too_big"})
	assert.Equal(t, map[string]string{"side": "front", "reason": "too_big"}, attrs)

	assert.Nil(t, AttrsFromList(nil))
	assert.Nil(t, AttrsFromList([]any{"only-key"}))
}

func TestInMemoryStore_ListAll(t *testing.T) {
	store := NewInMemoryStore()
	for _, applicant := range []string{"a", "b", "a"} {
		require.NoError(t, store.Append(context.Background(), Event{
			ApplicantID: applicant,
			Action:      EventUploadStarted,
			Timestamp:   time.Now(),
		}))
	}

	all, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byA, err := store.ListByApplicant(context.Background(), "a")
	require.NoError(t, err)
	assert.Len(t, byA, 2)
}
