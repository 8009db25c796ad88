package preprocess

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

// GenerateDocID creates a 6-part entity ID for a document.
// Format: c360.kgraph.source.doc.{format}.{instance}
// Each part is lowercase alphanumeric/hyphen only (ported verbatim from
// source/parser/markdown.go's GenerateDocID).
func GenerateDocID(format, filename string, content []byte) string {
	base := filepath.Base(filename)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	instance := SanitizeIDPart(name)

	hash := sha256.Sum256(content)
	instance = instance + hex.EncodeToString(hash[:])[:12]

	return fmt.Sprintf("c360.kgraph.source.doc.%s.%s", SanitizeIDPart(format), instance)
}

// GenerateChunkID creates a 6-part entity ID for a document chunk.
// Format: c360.kgraph.source.chunk.{format}.{parenthash}{index}
func GenerateChunkID(format string, parentContent []byte, index int) string {
	hash := sha256.Sum256(parentContent)
	instance := hex.EncodeToString(hash[:])[:12] + fmt.Sprintf("%04d", index)
	return fmt.Sprintf("c360.kgraph.source.chunk.%s.%s", SanitizeIDPart(format), instance)
}

// SanitizeIDPart strips characters that are not lowercase alphanumeric or
// hyphens. Dots separate the 6 ID parts so they are stripped here; hyphens
// are valid within a part (NATS subjects/KV keys allow them).
func SanitizeIDPart(s string) string {
	var buf bytes.Buffer
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			buf.WriteRune(r)
		}
	}
	result := strings.Trim(buf.String(), "-")
	if result == "" {
		return "unknown"
	}
	return result
}

// ContentHash computes a SHA256 hex digest of the content, used both for
// the ID helpers above and as Source.content_hash for idempotent re-ingest
// detection.
func ContentHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}
