package prover

import (
	"icr-prover/internal/publicvalues"
)

// Artifact is the immutable result of proving one request under one proof
// system.
type Artifact struct {
	Proof          []byte
	PublicValues   []byte
	VerifyingKeyID string
	System         ProofSystem
	ImageID        string
}

// Outputs decodes the committed public values. The proof is the source of
// truth; nothing is recomputed.
func (a *Artifact) Outputs() (publicvalues.Outputs, error) {
	return publicvalues.Decode(a.PublicValues)
}

// Execution is the outcome of an execute-only run.
type Execution struct {
	SessionID    string               `json:"sessionId"`
	System       ProofSystem          `json:"system"`
	PublicValues []byte               `json:"publicValues"`
	Outputs      publicvalues.Outputs `json:"outputs"`
	Constraints  int                  `json:"constraints"`
}
