// Package validator performs untrusted-input checks on candidate files before
// they may enter the upload workflow. Checks run cheapest first: the declared
// type allow-list and the size ceiling are answered without touching the file;
// only then is a small prefix read for the binary signature comparison.
package validator

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"veridoc/internal/capture/models"
	"veridoc/internal/capture/registry"
	dErrors "veridoc/pkg/domain-errors"
)

// MaxFileSize is the upload size ceiling: 50 MiB.
const MaxFileSize = 50 * 1024 * 1024

// signatureReadLen bounds the prefix read. Large rejected files cost at most
// this many bytes of I/O.
const signatureReadLen = 16

const (
	msgInvalidType       = "Invalid file type. Please upload a JPEG, PNG, or PDF file."
	msgSignatureMismatch = "File contents do not match the declared type."
)

// Machine reason codes carried on rejections, for logs and metrics.
const (
	reasonTypeNotAllowed    = "type_not_allowed"
	reasonSizeExceeded      = "size_exceeded"
	reasonSignatureMismatch = "signature_mismatch"
)

// Validator checks candidate files against the signature table and size limit.
type Validator struct {
	signatures *registry.SignatureTable
	maxSize    int64
	logger     *slog.Logger
}

type Option func(*Validator)

func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		v.logger = logger
	}
}

// WithMaxSize overrides the size ceiling; used by tests.
func WithMaxSize(maxSize int64) Option {
	return func(v *Validator) {
		v.maxSize = maxSize
	}
}

func New(signatures *registry.SignatureTable, opts ...Option) (*Validator, error) {
	if signatures == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "signature table is required")
	}
	v := &Validator{
		signatures: signatures,
		maxSize:    MaxFileSize,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Validate produces a verdict for the candidate. Rejections are encoded in
// the verdict; the error return is reserved for I/O failures while reading
// the signature prefix. The synchronous checks (type allow-list, size) run
// before any byte is read.
func (v *Validator) Validate(ctx context.Context, file *models.CandidateFile) (models.ValidationVerdict, error) {
	if file == nil {
		return models.ValidationVerdict{}, dErrors.New(dErrors.CodeInvalidInput, "candidate file is required")
	}

	if !v.signatures.Allows(file.DeclaredType) {
		v.logRejection(ctx, file, reasonTypeNotAllowed)
		return models.Reject(reasonTypeNotAllowed, msgInvalidType), nil
	}

	if file.SizeBytes > v.maxSize {
		v.logRejection(ctx, file, reasonSizeExceeded)
		return models.Reject(reasonSizeExceeded, sizeMessage(file.SizeBytes)), nil
	}

	prefix, err := v.readPrefix(ctx, file)
	if err != nil {
		return models.ValidationVerdict{}, dErrors.Wrap(err, dErrors.CodeInternal, "read file signature")
	}

	if !v.signatures.Matches(file.DeclaredType, prefix) {
		v.logRejection(ctx, file, reasonSignatureMismatch)
		return models.Reject(reasonSignatureMismatch, msgSignatureMismatch), nil
	}

	return models.Accept(), nil
}

// readPrefix reads at most signatureReadLen bytes regardless of file size.
func (v *Validator) readPrefix(ctx context.Context, file *models.CandidateFile) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	buf := make([]byte, signatureReadLen)
	n, err := io.ReadFull(rc, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}

func (v *Validator) logRejection(ctx context.Context, file *models.CandidateFile, reason string) {
	if v.logger == nil {
		return
	}
	v.logger.InfoContext(ctx, "file rejected",
		"file_name", file.Name,
		"declared_type", file.DeclaredType,
		"size_bytes", file.SizeBytes,
		"reason", reason,
	)
}

func sizeMessage(sizeBytes int64) string {
	mb := float64(sizeBytes) / (1024 * 1024)
	return fmt.Sprintf("File too large (%.1fMB). Maximum size is 50MB.", mb)
}
