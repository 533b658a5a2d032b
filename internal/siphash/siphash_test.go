package siphash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSum64Deterministic(t *testing.T) {
	var k Key
	for i := range k {
		k[i] = byte(i)
	}
	h1 := Sum64(k, []byte("quasiquote"))
	h2 := Sum64(k, []byte("quasiquote"))
	require.Equal(t, h1, h2)
}

func TestSum64KeySensitive(t *testing.T) {
	var k0, k1 Key
	for i := range k1 {
		k1[i] = byte(i + 1)
	}
	require.NotEqual(t, Sum64(k0, []byte("lambda")), Sum64(k1, []byte("lambda")))
}

func TestSum64LengthSensitive(t *testing.T) {
	var k Key
	require.NotEqual(t, Sum64(k, []byte("x")), Sum64(k, []byte("xx")))
}

func TestSum64AllLengthsUpToTwoBlocks(t *testing.T) {
	var k Key
	for i := range k {
		k[i] = byte(0xA5 ^ i)
	}
	seen := map[uint64]int{}
	for n := 0; n < 20; n++ {
		b := make([]byte, n)
		for i := range b {
			b[i] = byte(i)
		}
		h := Sum64(k, b)
		if prev, ok := seen[h]; ok {
			t.Fatalf("collision between length %d and %d", prev, n)
		}
		seen[h] = n
	}
}

func TestSumStringMatchesSum64(t *testing.T) {
	var k Key
	for i := range k {
		k[i] = byte(i * 3)
	}
	s := "define"
	require.Equal(t, Sum64(k, []byte(s)), SumString(k, s))
}

func TestNewKeyRandomizes(t *testing.T) {
	k1 := NewKey()
	k2 := NewKey()
	require.NotEqual(t, k1, k2)
}
