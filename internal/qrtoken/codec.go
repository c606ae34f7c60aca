package qrtoken

import (
	"bytes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/hoyn-app/profile-qr/internal/domain"
)

var envelopeEncoding = base64.RawURLEncoding.Strict()

// Codec turns a token into an opaque envelope string and back.
// The envelope is base64url(nonce || XChaCha20-Poly1305(json(token))).
type Codec struct {
	aead cipher.AEAD
	rand io.Reader
}

// NewCodec builds a codec around the managed encryption key.
func NewCodec(key Key) (*Codec, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init aead: %w", err)
	}
	return &Codec{aead: aead, rand: rand.Reader}, nil
}

// Encode serializes, encrypts and text-encodes the token.
func (c *Codec) Encode(token domain.Token) (string, error) {
	plaintext, err := json.Marshal(token)
	if err != nil {
		return "", fmt.Errorf("marshal token: %w", err)
	}

	nonceSize := c.aead.NonceSize()
	buf := make([]byte, nonceSize, nonceSize+len(plaintext)+c.aead.Overhead())
	if _, err := io.ReadFull(c.rand, buf); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := c.aead.Seal(buf, buf[:nonceSize], plaintext, nil)
	return envelopeEncoding.EncodeToString(sealed), nil
}

// Decode reverses Encode. Every failure is a *DecodeError, including AEAD
// authentication failures on tampered ciphertext.
func (c *Codec) Decode(envelope string) (domain.Token, error) {
	var token domain.Token

	raw, err := envelopeEncoding.DecodeString(strings.TrimSpace(envelope))
	if err != nil {
		return token, &DecodeError{Stage: "encoding", Err: err}
	}
	nonceSize := c.aead.NonceSize()
	if len(raw) < nonceSize+c.aead.Overhead() {
		return token, &DecodeError{Stage: "encoding", Err: errors.New("envelope too short")}
	}

	plaintext, err := c.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return token, &DecodeError{Stage: "decrypt", Err: err}
	}

	dec := json.NewDecoder(bytes.NewReader(plaintext))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&token); err != nil {
		return domain.Token{}, &DecodeError{Stage: "payload", Err: err}
	}
	if token.SubjectID == "" || token.Signature == "" {
		return domain.Token{}, &DecodeError{Stage: "payload", Err: errors.New("missing subject_id or signature")}
	}
	return token, nil
}
