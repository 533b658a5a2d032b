// Package siphash implements SipHash-2-4, the keyed hash used by the intern
// table (package intern) to resist hash-flooding on attacker-controlled
// identifier text.
//
// Algorithm: csiphash by Marek Majkowski (MIT), 2 compression rounds, 4
// finalization rounds, 64-bit output, 128-bit key.
package siphash

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/guage-run/guage/internal/hack"
)

// Key is the 128-bit SipHash key.
type Key [16]byte

// NewKey generates a random key from the OS CSPRNG. Call once at process
// startup and reuse for every Sum call against a given table.
func NewKey() Key {
	var k Key
	if _, err := rand.Read(k[:]); err != nil {
		// crypto/rand failing means the platform entropy source is broken;
		// there's no sane fallback for a hash that must resist flooding.
		panic("siphash: failed to read random key: " + err.Error())
	}
	return k
}

const (
	initV0 = 0x736f6d6570736575
	initV1 = 0x646f72616e646f6d
	initV2 = 0x6c7967656e657261
	initV3 = 0x7465646279746573
)

func rotl(x uint64, b uint) uint64 {
	return (x << b) | (x >> (64 - b))
}

func round(v0, v1, v2, v3 *uint64) {
	*v0 += *v1
	*v1 = rotl(*v1, 13)
	*v1 ^= *v0
	*v0 = rotl(*v0, 32)
	*v2 += *v3
	*v3 = rotl(*v3, 16)
	*v3 ^= *v2
	*v0 += *v3
	*v3 = rotl(*v3, 21)
	*v3 ^= *v0
	*v2 += *v1
	*v1 = rotl(*v1, 17)
	*v1 ^= *v2
	*v2 = rotl(*v2, 32)
}

// Sum64 returns the SipHash-2-4 digest of b keyed by k.
func Sum64(k Key, b []byte) uint64 {
	k0 := binary.LittleEndian.Uint64(k[0:8])
	k1 := binary.LittleEndian.Uint64(k[8:16])

	v0 := k0 ^ initV0
	v1 := k1 ^ initV1
	v2 := k0 ^ initV2
	v3 := k1 ^ initV3

	n := len(b)
	end := n - n%8
	for i := 0; i < end; i += 8 {
		m := binary.LittleEndian.Uint64(b[i : i+8])
		v3 ^= m
		round(&v0, &v1, &v2, &v3)
		round(&v0, &v1, &v2, &v3)
		v0 ^= m
	}

	var last uint64 = uint64(n) << 56
	tail := b[end:]
	for i := len(tail) - 1; i >= 0; i-- {
		last |= uint64(tail[i]) << uint(8*i)
	}

	v3 ^= last
	round(&v0, &v1, &v2, &v3)
	round(&v0, &v1, &v2, &v3)
	v0 ^= last

	v2 ^= 0xff
	round(&v0, &v1, &v2, &v3)
	round(&v0, &v1, &v2, &v3)
	round(&v0, &v1, &v2, &v3)
	round(&v0, &v1, &v2, &v3)

	return v0 ^ v1 ^ v2 ^ v3
}

// SumString is Sum64 over a string without a copy.
func SumString(k Key, s string) uint64 {
	return Sum64(k, hack.StringToByteSlice(s))
}
