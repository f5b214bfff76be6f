package ports

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veridoc/internal/audit"
	"veridoc/pkg/requestcontext"
)

func TestLogAudit_PromotesIdentityOntoEvent(t *testing.T) {
	store := audit.NewInMemoryStore()
	publisher := audit.NewPublisher(store)

	ctx := requestcontext.WithRequestID(context.Background(), "req-42")
	LogAudit(ctx, nil, publisher, audit.EventDocumentRejected,
		"applicant_id", "app-1",
		"session_id", "sess-1",
		"reason", "signature_mismatch",
		"side", "front",
	)

	// The store groups by applicant, so the event is lost unless the
	// identity attrs land on the event itself.
	events, err := store.ListByApplicant(ctx, "app-1")
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, audit.EventDocumentRejected, ev.Action)
	assert.Equal(t, "app-1", ev.ApplicantID)
	assert.Equal(t, "sess-1", ev.SessionID)
	assert.Equal(t, "signature_mismatch", ev.Reason)
	assert.Equal(t, "req-42", ev.RequestID)
	assert.Equal(t, "front", ev.Attrs["side"])
	assert.NotContains(t, ev.Attrs, "applicant_id")
}

func TestLogAudit_NilCollaborators(t *testing.T) {
	assert.NotPanics(t, func() {
		LogAudit(context.Background(), nil, nil, audit.EventSessionCreated, "applicant_id", "app-2")
	})
}
