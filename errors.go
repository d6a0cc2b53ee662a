package auth

import (
	"net/http"

	"github.com/goliatone/go-errors"
)

// Kind tags every failure produced by the package. The set is closed, use
// KindOf to recover it from an error chain.
type Kind string

const (
	KindMissingCredential     Kind = "MissingCredential"
	KindMalformedCredential   Kind = "MalformedCredential"
	KindInvalidToken          Kind = "InvalidToken"
	KindTokenExpired          Kind = "TokenExpired"
	KindRefreshTokenMismatch  Kind = "RefreshTokenMismatch"
	KindIdentityNotFound      Kind = "IdentityNotFound"
	KindInvalidCredentials    Kind = "InvalidCredentials"
	KindTokenExchangeFailed   Kind = "TokenExchangeFailed"
	KindProfileFetchFailed    Kind = "ProfileFetchFailed"
	KindUnauthenticated       Kind = "Unauthenticated"
	KindInsufficientPrivilege Kind = "InsufficientPrivilege"
	KindValidation            Kind = "ValidationError"
	KindNotFound              Kind = "NotFound"
	KindConflict              Kind = "Conflict"
	KindUnknown               Kind = "Unknown"
)

// Kinds lists every known kind.
func Kinds() []Kind {
	return []Kind{
		KindMissingCredential,
		KindMalformedCredential,
		KindInvalidToken,
		KindTokenExpired,
		KindRefreshTokenMismatch,
		KindIdentityNotFound,
		KindInvalidCredentials,
		KindTokenExchangeFailed,
		KindProfileFetchFailed,
		KindUnauthenticated,
		KindInsufficientPrivilege,
		KindValidation,
		KindNotFound,
		KindConflict,
		KindUnknown,
	}
}

func (k Kind) String() string { return string(k) }

// StatusFor maps a kind to the HTTP status shown to clients.
func StatusFor(kind Kind) int {
	switch kind {
	case KindMissingCredential,
		KindMalformedCredential,
		KindInvalidToken,
		KindTokenExpired,
		KindRefreshTokenMismatch,
		KindIdentityNotFound,
		KindInvalidCredentials,
		KindTokenExchangeFailed,
		KindProfileFetchFailed,
		KindUnauthenticated:
		return http.StatusUnauthorized
	case KindInsufficientPrivilege:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnknown:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// PublicMessage is the text rendered to clients. Credential failures share a
// single message so responses never reveal whether an account exists.
func PublicMessage(kind Kind) string {
	switch kind {
	case KindMissingCredential,
		KindMalformedCredential,
		KindInvalidToken,
		KindTokenExpired,
		KindRefreshTokenMismatch,
		KindIdentityNotFound,
		KindInvalidCredentials,
		KindTokenExchangeFailed,
		KindProfileFetchFailed,
		KindUnauthenticated:
		return "Unauthorized"
	case KindInsufficientPrivilege:
		return "Forbidden - insufficient privilege for this operation"
	case KindValidation:
		return "Validation error"
	case KindNotFound:
		return "Record not found"
	case KindConflict:
		return "Duplicate entry detected"
	case KindUnknown:
		return "Internal Server Error"
	}
	return "Internal Server Error"
}

func categoryFor(kind Kind) errors.Category {
	switch kind {
	case KindInsufficientPrivilege:
		return errors.CategoryAuthz
	case KindValidation:
		return errors.CategoryValidation
	case KindNotFound:
		return errors.CategoryNotFound
	case KindConflict:
		return errors.CategoryConflict
	case KindUnknown:
		return errors.CategoryInternal
	}
	return errors.CategoryAuth
}

// NewError creates a kinded error.
func NewError(kind Kind, msg string) *errors.Error {
	return errors.New(msg, categoryFor(kind)).
		WithTextCode(string(kind)).
		WithCode(StatusFor(kind))
}

// WrapError wraps err under the given kind.
func WrapError(err error, kind Kind, msg string) *errors.Error {
	return errors.Wrap(err, categoryFor(kind), msg).
		WithTextCode(string(kind)).
		WithCode(StatusFor(kind))
}

// KindOf returns the kind carried by err, KindUnknown when none is found.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}

	var richErr *errors.Error
	if !errors.As(err, &richErr) || richErr == nil {
		return KindUnknown
	}

	for _, k := range Kinds() {
		if richErr.TextCode == string(k) {
			return k
		}
	}

	switch richErr.Category {
	case errors.CategoryValidation, errors.CategoryBadInput:
		return KindValidation
	case errors.CategoryNotFound:
		return KindNotFound
	case errors.CategoryConflict:
		return KindConflict
	case errors.CategoryAuthz:
		return KindInsufficientPrivilege
	case errors.CategoryAuth:
		return KindUnauthenticated
	}
	return KindUnknown
}

// IsKind reports whether err carries kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

var (
	ErrMissingCredential     = NewError(KindMissingCredential, "missing authorization header")
	ErrMalformedCredential   = NewError(KindMalformedCredential, "malformed authorization header")
	ErrInvalidToken          = NewError(KindInvalidToken, "invalid token")
	ErrTokenExpired          = NewError(KindTokenExpired, "token is expired")
	ErrRefreshTokenMismatch  = NewError(KindRefreshTokenMismatch, "refresh token does not match the active session")
	ErrIdentityNotFound      = NewError(KindIdentityNotFound, "identity not found")
	ErrInvalidCredentials    = NewError(KindInvalidCredentials, "the credentials provided are invalid")
	ErrUnauthenticated       = NewError(KindUnauthenticated, "request is not authenticated")
	ErrInsufficientPrivilege = NewError(KindInsufficientPrivilege, "insufficient privilege")
	ErrRecordNotFound        = NewError(KindNotFound, "record not found")
	ErrDuplicateEmail        = NewError(KindConflict, "email already registered")
)
