package service

import (
	"strings"

	"github.com/dom/tft-catalog/internal/domain"
)

// IncludeID reports whether id survives the prefix lists. Prefixes are matched
// anywhere in the id. A nil list is ignored; a non-nil empty included list
// lets nothing through.
func IncludeID(id string, included, excluded []string) bool {
	include := included == nil
	for _, prefix := range included {
		if strings.Contains(id, prefix) {
			include = true
			break
		}
	}

	for _, prefix := range excluded {
		if strings.Contains(id, prefix) {
			return false
		}
	}

	return include
}

type PrefixFilter struct {
	Include []string
	Exclude []string
}

func (f PrefixFilter) Allows(r domain.Record) bool {
	return IncludeID(r.ID(), f.Include, f.Exclude)
}
