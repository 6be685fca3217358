package service

import (
	"crypto/sha1"
	"encoding/binary"
	"strings"
)

// ChunkWords splits text into overlapping word-count windows. Text with at
// most size words becomes a single chunk; longer text is windowed with a
// stride of size-overlap, so adjacent chunks share overlap words. Callers
// must keep overlap below size (enforced at config load).
func ChunkWords(text string, size, overlap int) []string {
	words := strings.Fields(text)
	if len(words) <= size {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	stride := size - overlap
	var chunks []string
	for i := 0; i < len(words); i += stride {
		end := i + size
		if end > len(words) {
			end = len(words)
		}
		chunk := strings.TrimSpace(strings.Join(words[i:end], " "))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// Fingerprint computes a deterministic 64-bit id for chunk text: the first
// 8 bytes of its SHA-1 digest, big-endian. Used for idempotent point
// identity, not for security.
func Fingerprint(text string) uint64 {
	sum := sha1.Sum([]byte(text))
	return binary.BigEndian.Uint64(sum[:8])
}
