package social

import (
	auth "github.com/goliatone/go-auth-core"
)

// ErrProviderNotFound is returned when a requested provider is not configured.
var ErrProviderNotFound = auth.NewError(auth.KindNotFound, "social provider not found")

// ErrInvalidState is returned when the callback state does not match the
// nonce stored at the beginning of the flow.
var ErrInvalidState = auth.NewError(auth.KindValidation, "invalid oauth state")

// ErrMissingCode is returned when the callback carries no authorization code.
var ErrMissingCode = auth.NewError(auth.KindValidation, "missing authorization code")

// ErrTokenExchangeFailed is returned when a provider token exchange fails.
var ErrTokenExchangeFailed = auth.NewError(auth.KindTokenExchangeFailed, "token exchange failed")

// ErrProfileFetchFailed is returned when fetching the provider profile fails.
var ErrProfileFetchFailed = auth.NewError(auth.KindProfileFetchFailed, "failed to fetch provider profile")

// ErrMissingSubject is returned when a profile carries no subject id, the
// placeholder email cannot be built without it.
var ErrMissingSubject = auth.NewError(auth.KindProfileFetchFailed, "provider profile has no subject id")
