package service

import (
	"fmt"
	"strings"

	"github.com/user/cinefam/internal/model"
)

// FilterMode selects how an unknown certification is treated.
//
// Search candidates with no certification are rejected, but initial corpus
// ingestion provisionally allows them so the corpus is not starved. This
// asymmetry is intentional; do not unify the modes.
type FilterMode int

const (
	FilterSearch FilterMode = iota
	FilterIngest
)

// PolicyFilter evaluates candidate movies against a household's content
// policy.
type PolicyFilter struct{}

func NewPolicyFilter() *PolicyFilter {
	return &PolicyFilter{}
}

// Accepts checks every rule and returns the first failing one as the
// reason. Failures are not aggregated.
func (f *PolicyFilter) Accepts(movie *model.Movie, prefs *model.HouseholdPrefs, mode FilterMode) (bool, string) {
	if ok, reason := f.checkCertification(movie, prefs, mode); !ok {
		return false, reason
	}
	if movie.Runtime != nil && prefs.MaxRuntime > 0 && *movie.Runtime > prefs.MaxRuntime {
		return false, fmt.Sprintf("runtime %d min exceeds the %d min limit", *movie.Runtime, prefs.MaxRuntime)
	}
	if blocked := firstBlockedKeyword(movie.Keywords, prefs.BlockedKeywords); blocked != "" {
		return false, fmt.Sprintf("contains blocked keyword %q", blocked)
	}
	return true, ""
}

func (f *PolicyFilter) checkCertification(movie *model.Movie, prefs *model.HouseholdPrefs, mode FilterMode) (bool, string) {
	if movie.Certification == nil || *movie.Certification == "" {
		if mode == FilterIngest {
			return true, ""
		}
		return false, "certification unknown"
	}
	for _, allowed := range prefs.AllowedRatings {
		if *movie.Certification == allowed {
			return true, ""
		}
	}
	return false, fmt.Sprintf("rating %s is not in the allowed set (%s)",
		*movie.Certification, strings.Join(prefs.AllowedRatings, ", "))
}

// firstBlockedKeyword returns the first blocked entry that any movie keyword
// case-insensitively contains as a substring, or "".
func firstBlockedKeyword(keywords, blocked []string) string {
	for _, b := range blocked {
		needle := strings.ToLower(strings.TrimSpace(b))
		if needle == "" {
			continue
		}
		for _, k := range keywords {
			if strings.Contains(strings.ToLower(k), needle) {
				return b
			}
		}
	}
	return ""
}
