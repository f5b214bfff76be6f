package preview

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veridoc/internal/capture/models"
)

func imageFile(content []byte) *models.CandidateFile {
	return models.NewCandidateFile("scan.jpg", "image/jpeg", int64(len(content)), func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(content)), nil
	})
}

func TestAttach_ImageGetsHandle(t *testing.T) {
	m := NewManager()
	content := []byte{0xFF, 0xD8, 0xFF, 0xE0}

	h, err := m.Attach(imageFile(content))
	require.NoError(t, err)
	require.NotNil(t, h)

	assert.Equal(t, content, h.Bytes())
	assert.Contains(t, h.URI(), "mem://")
	assert.Equal(t, int64(1), m.LiveHandles())

	h.Release()
	assert.Equal(t, int64(0), m.LiveHandles())
	assert.Nil(t, h.Bytes())
}

func TestAttach_PDFGetsNoHandle(t *testing.T) {
	m := NewManager()
	pdf := models.NewCandidateFile("bill.pdf", "application/pdf", 8, func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader([]byte("%PDF-1.4"))), nil
	})

	h, err := m.Attach(pdf)
	require.NoError(t, err)
	assert.Nil(t, h)
	assert.Equal(t, int64(0), m.LiveHandles())
}

func TestRelease_Idempotent(t *testing.T) {
	m := NewManager()
	h, err := m.Attach(imageFile([]byte{0x01, 0x02}))
	require.NoError(t, err)

	h.Release()
	h.Release()
	h.Release()
	assert.Equal(t, int64(0), m.LiveHandles(), "double release must not go negative")
}

func TestLiveHandles_TracksMultiple(t *testing.T) {
	m := NewManager()

	h1, err := m.Attach(imageFile([]byte{0x01}))
	require.NoError(t, err)
	h2, err := m.Attach(imageFile([]byte{0x02}))
	require.NoError(t, err)

	assert.Equal(t, int64(2), m.LiveHandles())
	h1.Release()
	assert.Equal(t, int64(1), m.LiveHandles())
	h2.Release()
	assert.Equal(t, int64(0), m.LiveHandles())
}
