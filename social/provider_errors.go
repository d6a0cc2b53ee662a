package social

import (
	"errors"
	"fmt"
	"maps"

	goerrors "github.com/goliatone/go-errors"
)

// Stage is the federation step an upstream call belongs to. A callback
// either fails while trading the code for a token or while reading the
// profile with that token, and each surfaces as its own error kind.
type Stage string

const (
	StageExchange Stage = "exchange"
	StageProfile  Stage = "profile"
)

// sentinel is the error a failure at this stage is reported as.
func (s Stage) sentinel() *goerrors.Error {
	if s == StageProfile {
		return ErrProfileFetchFailed
	}
	return ErrTokenExchangeFailed
}

// ProviderError is an upstream answer the federation could not use.
type ProviderError struct {
	Provider    string
	Stage       Stage
	Status      int
	Code        string
	Description string
	Err         error
}

func (e *ProviderError) Error() string {
	reason := e.Description
	if reason == "" {
		reason = e.Code
	}
	if reason == "" && e.Err != nil {
		reason = e.Err.Error()
	}
	if reason == "" {
		return fmt.Sprintf("%s %s failed", e.Provider, e.Stage)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Provider, e.Stage, reason)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// upstream holds the response fields worth keeping on the public error.
func (e *ProviderError) upstream() map[string]any {
	out := map[string]any{}
	if e.Status != 0 {
		out["status"] = e.Status
	}
	if e.Code != "" {
		out["code"] = e.Code
	}
	if e.Description != "" {
		out["description"] = e.Description
	}
	return out
}

// exchangeFailed reports a code that could not be traded for a token.
func exchangeFailed(provider string, cause error) error {
	return StageExchange.fail(provider, cause)
}

// profileFailed reports a token that could not be turned into a profile.
func profileFailed(provider string, cause error) error {
	return StageProfile.fail(provider, cause)
}

func (s Stage) fail(provider string, cause error) error {
	return s.annotate(s.sentinel(), provider, cause)
}

// annotate copies base and records the stage, the provider and whatever the
// upstream answered. The shared sentinel is never mutated.
func (s Stage) annotate(base *goerrors.Error, provider string, cause error) error {
	meta := map[string]any{
		"provider": provider,
		"stage":    string(s),
	}

	var perr *ProviderError
	switch {
	case errors.As(cause, &perr):
		maps.Copy(meta, perr.upstream())
	case cause != nil:
		meta["error"] = cause.Error()
	}

	out := base.Clone()
	out.Source = cause
	return out.WithMetadata(meta)
}
