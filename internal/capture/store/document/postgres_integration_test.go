//go:build integration

package document_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"veridoc/internal/capture/models"
	"veridoc/internal/capture/store/document"
	id "veridoc/pkg/domain"
	"veridoc/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *document.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = document.NewPostgres(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "documents"))
}

func (s *PostgresStoreSuite) TestSaveAndListRoundTrip() {
	ctx := context.Background()
	applicant := id.ApplicantID(uuid.New())
	base := time.Now().UTC().Truncate(time.Microsecond)

	front := models.Document{
		ID:           id.NewDocumentID(),
		ApplicantID:  applicant,
		DocumentType: "driver_license_front",
		FileName:     "front.jpg",
		ContentType:  "image/jpeg",
		SizeBytes:    2048,
		StorageKey:   "kyc/driver_license_front",
		UploadedAt:   base,
	}
	back := front
	back.ID = id.NewDocumentID()
	back.DocumentType = "driver_license_back"
	back.FileName = "back.png"
	back.ContentType = "image/png"
	back.UploadedAt = base.Add(2 * time.Second)

	s.Require().NoError(s.store.Save(ctx, back))
	s.Require().NoError(s.store.Save(ctx, front))

	docs, err := s.store.ListByApplicant(ctx, applicant)
	s.Require().NoError(err)
	s.Require().Len(docs, 2)
	s.Equal("driver_license_front", docs[0].DocumentType)
	s.Equal("driver_license_back", docs[1].DocumentType)
	s.Equal(front.ID, docs[0].ID)
	s.Equal(int64(2048), docs[0].SizeBytes)
}

func (s *PostgresStoreSuite) TestSaveIsUpsert() {
	ctx := context.Background()
	applicant := id.ApplicantID(uuid.New())

	doc := models.Document{
		ID:           id.NewDocumentID(),
		ApplicantID:  applicant,
		DocumentType: "passport",
		FileName:     "passport.pdf",
		ContentType:  "application/pdf",
		SizeBytes:    4096,
		StorageKey:   "kyc/passport",
		UploadedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
	s.Require().NoError(s.store.Save(ctx, doc))

	doc.FileName = "passport_v2.pdf"
	s.Require().NoError(s.store.Save(ctx, doc))

	docs, err := s.store.ListByApplicant(ctx, applicant)
	s.Require().NoError(err)
	s.Require().Len(docs, 1)
	s.Equal("passport_v2.pdf", docs[0].FileName)
}

func (s *PostgresStoreSuite) TestListScopedToApplicant() {
	ctx := context.Background()
	a := id.ApplicantID(uuid.New())
	b := id.ApplicantID(uuid.New())

	s.Require().NoError(s.store.Save(ctx, models.Document{
		ID:           id.NewDocumentID(),
		ApplicantID:  a,
		DocumentType: "passport",
		FileName:     "a.pdf",
		ContentType:  "application/pdf",
		StorageKey:   "kyc/passport",
		UploadedAt:   time.Now().UTC(),
	}))

	docs, err := s.store.ListByApplicant(ctx, b)
	s.Require().NoError(err)
	s.Empty(docs)
}
