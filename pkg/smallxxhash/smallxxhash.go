// Package smallxxhash implements SmallXXHash, a reduced xxHash32 variant
// that hashes a short sequence of integers into a 32-bit value.
//
// A State is an immutable accumulator. Seed starts one, each Eat returns a
// new State with one more value absorbed, and Value applies the avalanche
// finalizer:
//
//	h := smallxxhash.Seed(seed).Eat(u).Eat(v).Value()
//
// Arithmetic wraps modulo 2^32, so results are identical on every platform.
package smallxxhash

import "math/bits"

const (
	primeA uint32 = 0b10011110001101110111100110110001
	primeB uint32 = 0b10000101111010111100101001110111
	primeC uint32 = 0b11000010101100101010111000111101
	primeD uint32 = 0b00100111110101001110101100101111
	primeE uint32 = 0b00010110010101100110011110110001
)

// State is the hash accumulator. Two states with the same value are
// interchangeable; converting any uint32 to State is valid.
type State uint32

// Seed returns the initial state for seed.
func Seed(seed int32) State {
	return State(uint32(seed) * primeE)
}

// Eat absorbs a 32-bit integer.
func (s State) Eat(data int32) State {
	return State(bits.RotateLeft32(uint32(s)+uint32(data)*primeC, 17) * primeD)
}

// EatByte absorbs a single byte.
func (s State) EatByte(data byte) State {
	return State(bits.RotateLeft32(uint32(s)+uint32(data)*primeE, 11) * primeA)
}

// Value returns the finalized hash.
func (s State) Value() uint32 {
	a := uint32(s)
	a ^= a >> 15
	a *= primeB
	a ^= a >> 13
	a *= primeC
	a ^= a >> 16
	return a
}

// Accumulator returns the raw accumulator without finalizing.
func (s State) Accumulator() uint32 {
	return uint32(s)
}
