package models

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpoolCandidateFile_OutlivesSource(t *testing.T) {
	content := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0x5A}, 1024)...)

	file, err := SpoolCandidateFile("front.jpg", "image/jpeg", bytes.NewReader(content))
	require.NoError(t, err)
	defer file.Discard()

	assert.Equal(t, "front.jpg", file.Name)
	assert.Equal(t, "image/jpeg", file.DeclaredType)
	assert.Equal(t, int64(len(content)), file.SizeBytes)

	// The opener must yield a fresh full reader each time: signature check,
	// preview, and the transfer itself all open the candidate independently.
	for i := 0; i < 2; i++ {
		rc, err := file.Open()
		require.NoError(t, err)
		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		assert.Equal(t, content, got)
	}
}

func TestCandidateFile_DiscardReleasesBackingStorage(t *testing.T) {
	file, err := SpoolCandidateFile("back.png", "image/png", bytes.NewReader([]byte{0x89, 0x50, 0x4E, 0x47}))
	require.NoError(t, err)

	file.Discard()
	file.Discard() // idempotent

	_, err = file.Open()
	assert.Error(t, err, "a discarded candidate must not be readable")
}
