//go:build race

package auth

import "golang.org/x/crypto/bcrypt"

// race builds run the suites several times slower, keep hashing at the
// library default there.
func passwordHashCost() int {
	return bcrypt.DefaultCost
}
