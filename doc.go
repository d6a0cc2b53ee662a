// Package auth provides the authentication core: password verification,
// access and refresh token issuance, the refresh token lifecycle and the
// privilege table used to gate protected routes.
//
// Token lifecycle:
//   - Login verifies the password and issues an access token (30 minutes) and
//     a refresh token (24 hours). Each kind is signed with its own key and
//     carries a "use" claim, one is never accepted in place of the other.
//   - The refresh token is stored on the identity record. Refresh only
//     succeeds for the exact stored value, so a new login invalidates the
//     previous session. Logout verifies the token and clears the stored value.
//
// Errors:
//   - Every failure carries one of a closed set of kinds. StatusFor maps a
//     kind to its HTTP status and ErrorHandler renders it with a client safe
//     message, internal details are only logged.
//
// Activity sinks:
//   - ActivitySink receives login, refresh, logout and federated login events.
//     Sinks run best effort, errors are logged and never fail the request.
//
// Federated login lives in the social package and only resolves identities
// that already exist, it never provisions users.
package auth
