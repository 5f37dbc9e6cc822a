//go:build race

package accounts

import "golang.org/x/crypto/bcrypt"

// Reduce cost for race-enabled builds so test suites can run with strict
// timeouts.
const defaultHashCost = bcrypt.MinCost
