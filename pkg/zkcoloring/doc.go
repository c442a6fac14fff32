// Package zkcoloring is the public entry point for proving and verifying
// that a directed graph admits a proper 3-coloring with at most a
// declared number of blank (unconstrained) edges, without revealing the
// coloring.
//
// A typical prover:
//
//	inst := &zkcoloring.Instance{N: n, Edges: edges, Coloring: coloring, BlankMask: blanks, Coloration: coloration.Distinct(), BlankBudget: budget}
//	cfg := zkcoloring.DefaultConfig()
//	seed, err := zkcoloring.NewRandomSeed()
//	proof, err := zkcoloring.Prove(inst, cfg, seed)
//	digest, err := zkcoloring.CommitInstance(inst)
//	pub := inst.Public()
//
// A typical verifier, given the public graph shape (pub), the instance
// digest the prover computed, and a proof:
//
//	err = zkcoloring.Verify(pub, digest, cfg, proof)
//
// Verify returns nil on acceptance or a *protocol.RejectError describing
// exactly which spec.md §7 failure kind fired, and at which round and
// item index, where applicable.
package zkcoloring
