package zkcoloring

import (
	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/graph"
	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/protocol"
)

// Type aliases re-exporting the core data model so callers need not
// import the graph and protocol packages directly. Instance.Coloration is
// a coloration.Set, which this package does not re-export.
type (
	// Instance is a complete proof witness: graph, coloring, blank set.
	Instance = graph.Instance
	// PublicInstance is the non-secret view of an Instance a verifier holds.
	PublicInstance = graph.PublicInstance
	// Edge is a directed graph edge.
	Edge = graph.Edge
	// Config parameterizes both prover and verifier.
	Config = protocol.VerifierConfig
	// Proof is the complete output of Prove.
	Proof = protocol.Proof
	// RejectError is the error Verify returns on rejection.
	RejectError = protocol.RejectError
	// RejectKind classifies why Verify rejected a proof.
	RejectKind = protocol.RejectKind
	// BlankStrategy selects how each round's blank probe set is chosen.
	BlankStrategy = protocol.BlankStrategy
)

// Re-exported blank-strategy constants.
const (
	Sampling = protocol.Sampling
	Full     = protocol.Full
)

// Re-exported reject kinds, spec.md §7.
const (
	ErrBadMerkleOpening       = protocol.ErrBadMerkleOpening
	ErrSpotViolatesColoration = protocol.ErrSpotViolatesColoration
	ErrSpotMarkedBlank        = protocol.ErrSpotMarkedBlank
	ErrBlankMismatch          = protocol.ErrBlankMismatch
	ErrBlankBudgetExceeded    = protocol.ErrBlankBudgetExceeded
	ErrStarkConstraint        = protocol.ErrStarkConstraint
	ErrFriInconsistent        = protocol.ErrFriInconsistent
	ErrTranscriptDesync       = protocol.ErrTranscriptDesync
	ErrMalformedProof         = protocol.ErrMalformedProof
	ErrInvalidConfig          = protocol.ErrInvalidConfig
)

// DefaultConfig returns a VerifierConfig suitable for moderate-security
// testing; see protocol.DefaultConfig for production guidance.
func DefaultConfig() *Config { return protocol.DefaultConfig() }

// Prove runs the full multi-round protocol against inst under cfg,
// drawing every round's zero-knowledge permutation witness from seed, and
// returns a self-contained, non-interactive proof. Proving the same
// instance under the same configuration and seed twice yields a
// byte-identical transcript; use NewRandomSeed for an independent,
// non-replayable proving session.
func Prove(inst *Instance, cfg *Config, seed [32]byte) (*Proof, error) {
	return protocol.Prove(inst, cfg, seed)
}

// NewRandomSeed draws a fresh proving-session seed from the system
// cryptographic RNG.
func NewRandomSeed() ([32]byte, error) {
	return protocol.NewRandomSeed()
}

// Verify checks proof against the public shape of an instance (pub), the
// instance digest the prover bound its transcript to, and the verifier
// configuration. It returns nil on acceptance or a *RejectError.
func Verify(pub *PublicInstance, instanceDigest [32]byte, cfg *Config, proof *Proof) error {
	return protocol.Verify(pub, instanceDigest, cfg, proof)
}

// CommitInstance computes the canonical 32-byte digest binding a proof's
// transcript to a specific instance.
func CommitInstance(inst *Instance) ([32]byte, error) {
	return graph.CommitInstance(inst)
}

// MarshalProof encodes proof in the on-disk transcript file layout.
func MarshalProof(proof *Proof) []byte { return proof.Marshal() }

// UnmarshalProof decodes a proof encoded by MarshalProof.
func UnmarshalProof(b []byte) (*Proof, error) { return protocol.UnmarshalProof(b) }
