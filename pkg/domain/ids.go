// Package domain holds typed identifiers shared across modules. Distinct ID
// types keep the compiler from letting an applicant ID flow where a document
// ID belongs.
package domain

import (
	"github.com/google/uuid"

	dErrors "veridoc/pkg/domain-errors"
)

// ApplicantID identifies the applicant a capture session belongs to.
type ApplicantID uuid.UUID

// DocumentID identifies a stored document record.
type DocumentID uuid.UUID

// CaptureSessionID identifies one in-progress capture form.
type CaptureSessionID uuid.UUID

func NewDocumentID() DocumentID {
	return DocumentID(uuid.New())
}

func NewCaptureSessionID() CaptureSessionID {
	return CaptureSessionID(uuid.New())
}

func (id ApplicantID) String() string      { return uuid.UUID(id).String() }
func (id DocumentID) String() string       { return uuid.UUID(id).String() }
func (id CaptureSessionID) String() string { return uuid.UUID(id).String() }

func (id ApplicantID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id CaptureSessionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// ParseApplicantID parses and validates an applicant ID from its string form.
// IDs must be valid, non-nil UUIDs.
func ParseApplicantID(s string) (ApplicantID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ApplicantID{}, err
	}
	return ApplicantID(u), nil
}

// ParseDocumentID parses and validates a document ID from its string form.
func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return DocumentID{}, err
	}
	return DocumentID(u), nil
}

// ParseCaptureSessionID parses and validates a capture session ID from its
// string form.
func ParseCaptureSessionID(s string) (CaptureSessionID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return CaptureSessionID{}, err
	}
	return CaptureSessionID(u), nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return u, nil
}
