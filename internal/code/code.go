// Package code generates human-speakable transfer codes and the one-way
// digest the relay uses to match peers without learning the code.
package code

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"strings"

	_ "embed"

	"lukechampine.com/blake3"
)

//go:embed wordlist.txt
var wordlistRaw string

var wordlist = strings.Fields(wordlistRaw)

// DefaultWordCount is the number of words in a generated code.
const DefaultWordCount = 3

// Generate returns a random word code like "alpha-bravo-charlie".
// Words are drawn with crypto/rand so codes are not guessable from timing.
func Generate(wordCount int) string {
	if wordCount < 1 {
		wordCount = DefaultWordCount
	}
	words := make([]string, wordCount)
	max := big.NewInt(int64(len(wordlist)))
	for i := range words {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the platform RNG is broken;
			// nothing sensible can run in that state.
			panic(err)
		}
		words[i] = wordlist[n.Int64()]
	}
	return strings.Join(words, "-")
}

// Hash returns the fixed-length hex BLAKE3 digest of a transfer code.
// Both peers compute it identically before registering, so the relay can
// match them without ever seeing the code itself.
func Hash(transferCode string) string {
	sum := blake3.Sum256([]byte(transferCode))
	return hex.EncodeToString(sum[:])
}

// HashLen is the length of the hex digest produced by Hash.
const HashLen = 64
