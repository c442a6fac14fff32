package protocol

// Coin selects which evidence a spot check reveals: the edge's own
// committed color pair alone, or that pair together with its two endpoint
// colors from the permutation commitment. Both modes prove the same thing; the equal-
// probability coin flip prevents a prover from biasing its responses
// toward whichever mode it finds easier to fake.
type Coin uint64

const (
	// CoinEndpoints reveals L_edge[e] and L_blank[e].
	CoinEndpoints Coin = 0
	// CoinPermutation reveals L_perm[u], L_perm[v], L_edge[e], and L_blank[e].
	CoinPermutation Coin = 1
)

func (c Coin) String() string {
	if c == CoinPermutation {
		return "permutation"
	}
	return "endpoints"
}
