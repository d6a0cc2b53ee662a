package auth

import (
	"fmt"
	"strings"
)

// Resource is a guarded API resource, derived from the first path segment.
type Resource string

const (
	ResourceUnknown Resource = ""
	ResourceUsers   Resource = "users"
)

// ParseResource maps a path segment to a Resource. Matching is case
// sensitive, "Users" is not "users".
func ParseResource(segment string) Resource {
	switch segment {
	case string(ResourceUsers):
		return ResourceUsers
	}
	return ResourceUnknown
}

// Verb is an HTTP method the privilege table knows about.
type Verb string

const (
	VerbUnknown Verb = ""
	VerbGet     Verb = "GET"
	VerbPost    Verb = "POST"
	VerbPut     Verb = "PUT"
	VerbPatch   Verb = "PATCH"
	VerbDelete  Verb = "DELETE"
)

// ParseVerb maps an HTTP method to a Verb.
func ParseVerb(method string) Verb {
	switch Verb(method) {
	case VerbGet, VerbPost, VerbPut, VerbPatch, VerbDelete:
		return Verb(method)
	}
	return VerbUnknown
}

// PrivilegeKey identifies a (resource, verb) pair.
type PrivilegeKey struct {
	Resource Resource
	Verb     Verb
}

// DefaultRequiredLevel applies to every pair missing from the table.
const DefaultRequiredLevel = 5000

// PrivilegeTable maps a pair to the minimum privilege level.
type PrivilegeTable map[PrivilegeKey]int

// DefaultPrivilegeTable returns the built in thresholds.
func DefaultPrivilegeTable() PrivilegeTable {
	return PrivilegeTable{
		{Resource: ResourceUsers, Verb: VerbGet}:    3000,
		{Resource: ResourceUsers, Verb: VerbPost}:   5000,
		{Resource: ResourceUsers, Verb: VerbPut}:    5000,
		{Resource: ResourceUsers, Verb: VerbDelete}: 5000,
	}
}

// RequiredLevel returns the threshold for key, DefaultRequiredLevel when the
// pair is not configured.
func (t PrivilegeTable) RequiredLevel(key PrivilegeKey) int {
	if level, ok := t[key]; ok {
		return level
	}
	return DefaultRequiredLevel
}

// ResourceFromPath returns the first segment of path.
func ResourceFromPath(path string) string {
	path = strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return path
}

// Authorize checks the caller's privilege level against the threshold for
// the request path and method.
func (t PrivilegeTable) Authorize(claims *Claims, path, method string) error {
	if !claims.HasPrivilege() {
		return ErrUnauthenticated
	}

	segment := ResourceFromPath(path)
	key := PrivilegeKey{
		Resource: ParseResource(segment),
		Verb:     ParseVerb(method),
	}

	if claims.IsAtLeast(t.RequiredLevel(key)) {
		return nil
	}

	return NewError(KindInsufficientPrivilege,
		fmt.Sprintf("insufficient privilege to %s %s", method, segment)).
		WithMetadata(map[string]any{
			"resource": segment,
			"verb":     method,
			"user_id":  claims.UserID,
		})
}
