package agent

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// repeatThreshold is how many consecutive identical tool calls trigger
// a nudge on the tool result.
const repeatThreshold = 3

const repeatNudge = "\n\n[You have repeated this exact call several times. Try a different approach.]"

// callSignature computes a deterministic signature for a tool call
// (name + hash of arguments).
func callSignature(name string, arguments json.RawMessage) string {
	h := sha256.Sum256(arguments)
	return fmt.Sprintf("%s:%x", name, h[:8])
}

// repeatTracker watches consecutive tool calls for exact repetition. It is
// observational only: a detected repeat annotates the result, the loop keeps
// running.
type repeatTracker struct {
	lastSig string
	streak  int
}

// Observe records one call and reports whether it extends an identical
// streak past the threshold.
func (r *repeatTracker) Observe(name string, arguments json.RawMessage) bool {
	sig := callSignature(name, arguments)
	if sig == r.lastSig {
		r.streak++
	} else {
		r.lastSig = sig
		r.streak = 1
	}
	return r.streak >= repeatThreshold
}

// Reset clears the streak, used when the conversation is cleared.
func (r *repeatTracker) Reset() {
	r.lastSig = ""
	r.streak = 0
}
