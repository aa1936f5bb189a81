package logic

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"

	"github.com/duynguyendang/logicgraph/pkg/triple"
)

// ProofStep records one rule application: the rule name, the content
// addresses of the premises that satisfied its conditions (in condition
// order), and the triple it derived.
type ProofStep struct {
	Rule     string        `json:"rule"`
	Premises []triple.ID   `json:"premises"`
	Derived  triple.Triple `json:"derived"`
}

// Proof is a machine-checkable justification of a conclusion. Steps are
// topologically ordered: every premise of step i is either a ground
// fact in the graph or the derived triple of some step j < i, never a
// forward reference. A conclusion that is itself a ground fact carries
// zero steps.
type Proof struct {
	Conclusion triple.Triple `json:"conclusion"`
	Steps      []ProofStep   `json:"steps"`
}

// Digest returns the SHA-256 digest of the proof's canonical JSON form
// (RFC 8785). External collaborators sign or anchor this digest; the
// core itself never persists proofs.
func (p *Proof) Digest() (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshaling proof: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalizing proof: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// String summarizes the proof for logs.
func (p *Proof) String() string {
	return fmt.Sprintf("proof of %s in %d steps", p.Conclusion, len(p.Steps))
}
