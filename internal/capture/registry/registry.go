// Package registry holds the immutable lookup tables the capture pipeline is
// configured with: binary signatures per declared content type and the
// recognized document categories. Tables are passed into the validator and
// orchestrator as explicit dependencies so tests stay deterministic.
package registry

import "bytes"

// SignatureEntry maps a declared content type to the byte prefixes that
// legitimately begin files of that type. One type may carry several accepted
// prefixes.
type SignatureEntry struct {
	DeclaredType   string
	ByteSignatures [][]byte
	Extensions     []string
}

// SignatureTable is an immutable registry of signature entries.
type SignatureTable struct {
	entries map[string]SignatureEntry
}

// NewSignatureTable copies the given entries into a table. Later mutation of
// the inputs does not affect the table.
func NewSignatureTable(entries []SignatureEntry) *SignatureTable {
	m := make(map[string]SignatureEntry, len(entries))
	for _, e := range entries {
		sigs := make([][]byte, len(e.ByteSignatures))
		for i, s := range e.ByteSignatures {
			sigs[i] = append([]byte(nil), s...)
		}
		m[e.DeclaredType] = SignatureEntry{
			DeclaredType:   e.DeclaredType,
			ByteSignatures: sigs,
			Extensions:     append([]string(nil), e.Extensions...),
		}
	}
	return &SignatureTable{entries: m}
}

// Allows reports whether the declared type is registered at all.
func (t *SignatureTable) Allows(declaredType string) bool {
	_, ok := t.entries[declaredType]
	return ok
}

// Matches reports whether the prefix bytes match any signature registered for
// the declared type. A declared type absent from the table never matches.
func (t *SignatureTable) Matches(declaredType string, prefix []byte) bool {
	entry, ok := t.entries[declaredType]
	if !ok {
		return false
	}
	for _, sig := range entry.ByteSignatures {
		if len(prefix) >= len(sig) && bytes.HasPrefix(prefix, sig) {
			return true
		}
	}
	return false
}

// MaxSignatureLen returns the longest registered signature, which bounds how
// many bytes the validator needs to read.
func (t *SignatureTable) MaxSignatureLen() int {
	max := 0
	for _, entry := range t.entries {
		for _, sig := range entry.ByteSignatures {
			if len(sig) > max {
				max = len(sig)
			}
		}
	}
	return max
}

// DefaultSignatureTable returns the production table: JPEG, PNG, and PDF.
func DefaultSignatureTable() *SignatureTable {
	return NewSignatureTable([]SignatureEntry{
		{
			DeclaredType:   "image/jpeg",
			ByteSignatures: [][]byte{{0xFF, 0xD8, 0xFF}},
			Extensions:     []string{".jpg", ".jpeg"},
		},
		{
			DeclaredType:   "image/png",
			ByteSignatures: [][]byte{{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
			Extensions:     []string{".png"},
		},
		{
			DeclaredType:   "application/pdf",
			ByteSignatures: [][]byte{{0x25, 0x50, 0x44, 0x46}}, // ASCII "%PDF"
			Extensions:     []string{".pdf"},
		},
	})
}
