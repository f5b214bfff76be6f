package document

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veridoc/internal/capture/models"
	id "veridoc/pkg/domain"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	applicant := id.ApplicantID(uuid.New())
	other := id.ApplicantID(uuid.New())
	base := time.Now()

	front := models.Document{
		ID:           id.NewDocumentID(),
		ApplicantID:  applicant,
		DocumentType: "id_card_front",
		FileName:     "front.jpg",
		ContentType:  "image/jpeg",
		SizeBytes:    1024,
		StorageKey:   "kyc/id_card_front",
		UploadedAt:   base,
	}
	back := front
	back.ID = id.NewDocumentID()
	back.DocumentType = "id_card_back"
	back.UploadedAt = base.Add(time.Second)

	require.NoError(t, store.Save(ctx, back))
	require.NoError(t, store.Save(ctx, front))
	require.NoError(t, store.Save(ctx, models.Document{
		ID:          id.NewDocumentID(),
		ApplicantID: other,
		UploadedAt:  base,
	}))

	t.Run("lists only the applicant's documents in upload order", func(t *testing.T) {
		docs, err := store.ListByApplicant(ctx, applicant)
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "id_card_front", docs[0].DocumentType)
		assert.Equal(t, "id_card_back", docs[1].DocumentType)
	})

	t.Run("save is an upsert", func(t *testing.T) {
		updated := front
		updated.FileName = "front_v2.jpg"
		require.NoError(t, store.Save(ctx, updated))

		docs, err := store.ListByApplicant(ctx, applicant)
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "front_v2.jpg", docs[0].FileName)
	})

	t.Run("unknown applicant yields empty list", func(t *testing.T) {
		docs, err := store.ListByApplicant(ctx, id.ApplicantID(uuid.New()))
		require.NoError(t, err)
		assert.Empty(t, docs)
	})
}
