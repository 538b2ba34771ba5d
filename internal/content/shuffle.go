package content

import (
	"hash/fnv"
	"math/rand"
)

// Shuffle returns a new Fisher–Yates permutation of ids. It is unseeded
// on purpose: every ranked match gets a different question order.
func Shuffle(ids []string) []string {
	out := append([]string(nil), ids...)
	rand.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// SeededShuffle returns a Fisher–Yates permutation of ids keyed by the
// seed string. The same pool and seed always produce the same order,
// which is what makes the daily question set identical for every player
// who starts a daily match on the same UTC date.
func SeededShuffle(ids []string, seed string) []string {
	h := fnv.New64a()
	h.Write([]byte(seed))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	out := append([]string(nil), ids...)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
