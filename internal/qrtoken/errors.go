package qrtoken

import (
	"errors"
	"fmt"
)

// Reason identifies why the verification pipeline rejected an envelope.
type Reason string

const (
	ReasonDecodeError      Reason = "DecodeError"
	ReasonIssuerMismatch   Reason = "IssuerMismatch"
	ReasonSignatureInvalid Reason = "SignatureInvalid"
	ReasonExpired          Reason = "Expired"
	ReasonSubjectUnknown   Reason = "SubjectUnknown"
	ReasonOriginRestricted Reason = "OriginRestricted"
)

// Sentinels matched by errors.Is against a *Rejection.
var (
	ErrDecode           = errors.New("envelope malformed or undecryptable")
	ErrIssuerMismatch   = errors.New("issuer tag mismatch")
	ErrSignatureInvalid = errors.New("signature invalid")
	ErrExpired          = errors.New("token outside freshness window")
	ErrSubjectUnknown   = errors.New("subject unknown")
	ErrOriginRestricted = errors.New("origin not authorized")
)

var reasonErrors = map[Reason]error{
	ReasonDecodeError:      ErrDecode,
	ReasonIssuerMismatch:   ErrIssuerMismatch,
	ReasonSignatureInvalid: ErrSignatureInvalid,
	ReasonExpired:          ErrExpired,
	ReasonSubjectUnknown:   ErrSubjectUnknown,
	ReasonOriginRestricted: ErrOriginRestricted,
}

// Rejection is the terminal failure of a verification. Err carries the
// underlying cause when there is one, e.g. a profile store I/O failure.
type Rejection struct {
	Reason    Reason
	SubjectID string
	Err       error
}

func (r *Rejection) Error() string {
	base := reasonErrors[r.Reason]
	if base == nil {
		base = errors.New(string(r.Reason))
	}
	if r.Err != nil {
		return fmt.Sprintf("%s: %s: %v", r.Reason, base, r.Err)
	}
	return fmt.Sprintf("%s: %s", r.Reason, base)
}

func (r *Rejection) Unwrap() []error {
	errs := make([]error, 0, 2)
	if base, ok := reasonErrors[r.Reason]; ok {
		errs = append(errs, base)
	}
	if r.Err != nil {
		errs = append(errs, r.Err)
	}
	return errs
}

func reject(reason Reason, subjectID string, cause error) *Rejection {
	return &Rejection{Reason: reason, SubjectID: subjectID, Err: cause}
}

// ReasonOf extracts the rejection reason from err, if any.
func ReasonOf(err error) (Reason, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return "", false
}

// KeyStorageError reports that the encryption key could not be loaded or persisted.
// It is fatal at startup.
type KeyStorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *KeyStorageError) Error() string {
	return fmt.Sprintf("key storage: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *KeyStorageError) Unwrap() error {
	return e.Err
}

// DecodeError is returned by Codec.Decode. It matches ErrDecode.
type DecodeError struct {
	Stage string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode envelope (%s): %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("decode envelope (%s)", e.Stage)
}

func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDecode}
	}
	return []error{ErrDecode, e.Err}
}
