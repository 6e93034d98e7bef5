package welcome

import (
	"github.com/lvrach/x-social-ai/internal/agents"
	"github.com/lvrach/x-social-ai/internal/state"
)

// Eligible returns, in input order, the candidates with a non-blank handle
// that is not in done. Returned candidates carry the normalized handle.
func Eligible(candidates []agents.Candidate, done *state.Set) []agents.Candidate {
	var out []agents.Candidate
	for _, c := range candidates {
		h := state.NormalizeHandle(c.Handle)
		if h == "" || done.Has(h) {
			continue
		}
		c.Handle = h
		out = append(out, c)
	}
	return out
}
