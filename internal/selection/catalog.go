package selection

import (
	"strings"

	"mediapull/internal/domain"
)

// DefaultOriginalComponent is the component name the tracker assigns to the
// file originally published with a version.
const DefaultOriginalComponent = "main"

// Review encode names are fixed by the tracker's transcode pipeline.
var (
	highEncodeNames = map[string]struct{}{
		"review-1080p":    {},
		"review-mp4-1080": {},
	}
	lowEncodeNames = map[string]struct{}{
		"review-720p": {},
		"review-mp4":  {},
	}
)

// Catalog classifies components by name and groups them by representation.
// Classification is a pure function of component metadata.
type Catalog struct {
	originalName string
}

func NewCatalog(originalName string) Catalog {
	if strings.TrimSpace(originalName) == "" {
		originalName = DefaultOriginalComponent
	}
	return Catalog{originalName: originalName}
}

func (c Catalog) Classify(comp domain.Component) domain.RepresentationType {
	name := strings.TrimSpace(comp.Name)
	if _, ok := highEncodeNames[name]; ok {
		return domain.RepresentationEncodedHigh
	}
	if _, ok := lowEncodeNames[name]; ok {
		return domain.RepresentationEncodedLow
	}
	if name == c.originalName {
		return domain.RepresentationOriginal
	}
	return domain.RepresentationOther
}

// GroupByType buckets components by representation, preserving input order
// within each bucket.
func (c Catalog) GroupByType(comps []domain.Component) map[domain.RepresentationType][]domain.Component {
	groups := make(map[domain.RepresentationType][]domain.Component)
	for _, comp := range comps {
		t := c.Classify(comp)
		groups[t] = append(groups[t], comp)
	}
	return groups
}
