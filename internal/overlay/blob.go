package overlay

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Blob is an encoded signature image. The geometry core never decodes it;
// it is forwarded untouched to the preview renderer and the output document.
type Blob struct {
	Data        []byte
	ContentType string
	digest      string
}

// NewBlob wraps data and computes its digest.
func NewBlob(data []byte, contentType string) *Blob {
	sum := blake2b.Sum256(data)
	return &Blob{
		Data:        data,
		ContentType: contentType,
		digest:      hex.EncodeToString(sum[:]),
	}
}

// Digest returns the hex BLAKE2b-256 of the blob's bytes. Identical images
// share a digest, which lets renderers decode each image once.
func (b *Blob) Digest() string {
	if b == nil {
		return ""
	}
	if b.digest == "" {
		sum := blake2b.Sum256(b.Data)
		b.digest = hex.EncodeToString(sum[:])
	}
	return b.digest
}

// Len returns the encoded size in bytes.
func (b *Blob) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Data)
}
