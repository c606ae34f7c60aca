package http

import (
	"errors"
	"net/http"

	"github.com/hoyn-app/profile-qr/internal/domain"
	"github.com/hoyn-app/profile-qr/internal/qrtoken"
	"github.com/hoyn-app/profile-qr/internal/service"
	apperrors "github.com/hoyn-app/profile-qr/pkg/util"
)

var rejectionErrors = map[qrtoken.Reason]*apperrors.DomainError{
	qrtoken.ReasonDecodeError:      apperrors.NewDomainError("INVALID_ENVELOPE", "envelope could not be decoded", http.StatusBadRequest, nil),
	qrtoken.ReasonIssuerMismatch:   apperrors.NewDomainError("ISSUER_MISMATCH", "envelope was not issued by this service", http.StatusUnprocessableEntity, nil),
	qrtoken.ReasonSignatureInvalid: apperrors.NewDomainError("SIGNATURE_INVALID", "envelope signature is invalid", http.StatusUnauthorized, nil),
	qrtoken.ReasonExpired:          apperrors.NewDomainError("EXPIRED", "envelope has expired", http.StatusGone, nil),
	qrtoken.ReasonSubjectUnknown:   apperrors.NewDomainError("SUBJECT_UNKNOWN", "profile not found", http.StatusNotFound, nil),
	qrtoken.ReasonOriginRestricted: apperrors.NewDomainError("ORIGIN_RESTRICTED", "scanner origin not authorized", http.StatusForbidden, nil),
}

// mapRejection turns a verification rejection into its client-facing error.
// The cause is kept for logs only.
func mapRejection(err error) *apperrors.DomainError {
	var rej *qrtoken.Rejection
	if !errors.As(err, &rej) {
		return nil
	}
	de, ok := rejectionErrors[rej.Reason]
	if !ok {
		return nil
	}
	return apperrors.Wrap(de, err)
}

func mapServiceError(err error) *apperrors.DomainError {
	switch {
	case errors.Is(err, service.ErrNotProfileOwner):
		return apperrors.Wrap(apperrors.NewDomainError("FORBIDDEN", "not the owner of this profile", http.StatusForbidden, nil), err)
	case errors.Is(err, domain.ErrProfileNotFound):
		return apperrors.Wrap(apperrors.NewDomainError("NOT_FOUND", "profile not found", http.StatusNotFound, nil), err)
	}
	return nil
}

// MapError converts any handler error into a DomainError.
func MapError(err error) *apperrors.DomainError {
	return apperrors.ToDomainError(err, mapRejection, mapServiceError)
}
