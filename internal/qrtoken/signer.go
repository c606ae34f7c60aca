package qrtoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/hoyn-app/profile-qr/internal/domain"
)

// Signer computes HMAC-SHA256 digests over the canonical form of the signed token fields.
type Signer struct {
	key []byte
}

// NewSigner copies key so later mutation by the caller has no effect.
func NewSigner(key []byte) *Signer {
	k := make([]byte, len(key))
	copy(k, key)
	return &Signer{key: k}
}

// Canonical returns the deterministic encoding that is signed: compact JSON with keys sorted by name.
func Canonical(fields domain.TokenFields) []byte {
	// encoding/json emits map keys in sorted order
	out, _ := json.Marshal(map[string]any{
		"subject_id": fields.SubjectID,
		"issuer_tag": fields.IssuerTag,
		"issued_at":  fields.IssuedAt,
	})
	return out
}

// Sign returns the hex digest for fields.
func (s *Signer) Sign(fields domain.TokenFields) string {
	return hex.EncodeToString(s.mac(fields))
}

// Verify recomputes the digest and compares it in constant time.
func (s *Signer) Verify(fields domain.TokenFields, claimed string) bool {
	claimedRaw, err := hex.DecodeString(claimed)
	if err != nil {
		return false
	}
	return hmac.Equal(s.mac(fields), claimedRaw)
}

func (s *Signer) mac(fields domain.TokenFields) []byte {
	m := hmac.New(sha256.New, s.key)
	m.Write(Canonical(fields))
	return m.Sum(nil)
}
