//go:build !race

package accounts

// defaultHashCost matches the work factor every observed deployment passed to
// bcrypt.
const defaultHashCost = 10
