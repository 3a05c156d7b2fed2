package testing

import (
	"math/rand"
	"strings"
)

const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// RandString generates random string of n symbols from lower- and uppercase alphabet
func RandString(n int) string {
	var out strings.Builder
	out.Grow(n)
	for i := 0; i < n; i++ {
		out.WriteByte(letters[rand.Intn(len(letters))])
	}
	return out.String()
}

// RandUsername generates a display name unlikely to collide with seeded users
func RandUsername() string {
	return "Tester " + RandString(10)
}
