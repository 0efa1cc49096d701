package selection

import (
	"strings"

	"mediapull/internal/domain"
)

// fallbackOrder is the fixed priority walked when the preferred
// representation could not be downloaded.
var fallbackOrder = []domain.RepresentationType{
	domain.RepresentationEncodedLow,
	domain.RepresentationEncodedHigh,
	domain.RepresentationOther,
	domain.RepresentationOriginal,
}

var stillImageExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"tiff": {},
	"tif":  {},
	"exr":  {},
	"dpx":  {},
}

// Policy picks the single component to download for a version.
type Policy struct {
	catalog Catalog
}

func NewPolicy(catalog Catalog) Policy {
	return Policy{catalog: catalog}
}

func (p Policy) Classify(comp domain.Component) domain.RepresentationType {
	return p.catalog.Classify(comp)
}

// SelectPrimary picks the best component for the given preference. The
// second return is false when nothing matched; that is a normal negative
// outcome, not an error, and the caller reports it as "no suitable
// component".
func (p Policy) SelectPrimary(comps []domain.Component, pref domain.Preference) (domain.Component, bool) {
	if len(comps) == 0 {
		return domain.Component{}, false
	}
	groups := p.catalog.GroupByType(comps)

	if pref == domain.PreferOriginal {
		if comp, ok := pickLargest(groups[domain.RepresentationOriginal]); ok {
			return comp, true
		}
		var rest []domain.Component
		for _, comp := range comps {
			if p.catalog.Classify(comp) != domain.RepresentationOriginal {
				rest = append(rest, comp)
			}
		}
		return pickLargest(rest)
	}

	for _, t := range []domain.RepresentationType{
		domain.RepresentationEncodedLow,
		domain.RepresentationEncodedHigh,
		domain.RepresentationOriginal,
	} {
		if comp, ok := pickLargest(groups[t]); ok {
			return comp, true
		}
	}
	return domain.Component{}, false
}

// SelectFallback walks the fixed priority order, skipping excluded
// representations. Inside the "other" bucket, still-image files win over
// anything else.
func (p Policy) SelectFallback(comps []domain.Component, exclude ...domain.RepresentationType) (domain.Component, bool) {
	groups := p.catalog.GroupByType(comps)

	skip := make(map[domain.RepresentationType]struct{}, len(exclude))
	for _, t := range exclude {
		skip[t] = struct{}{}
	}

	for _, t := range fallbackOrder {
		if _, excluded := skip[t]; excluded {
			continue
		}
		bucket := groups[t]
		if len(bucket) == 0 {
			continue
		}
		if t == domain.RepresentationOther {
			if images := stillImages(bucket); len(images) > 0 {
				bucket = images
			}
		}
		return pickLargest(bucket)
	}
	return domain.Component{}, false
}

// pickLargest prefers the largest declared size; ties keep the first seen.
func pickLargest(comps []domain.Component) (domain.Component, bool) {
	if len(comps) == 0 {
		return domain.Component{}, false
	}
	best := comps[0]
	for _, comp := range comps[1:] {
		if comp.Size > best.Size {
			best = comp
		}
	}
	return best, true
}

func stillImages(comps []domain.Component) []domain.Component {
	var images []domain.Component
	for _, comp := range comps {
		ext := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(comp.FileType), "."))
		if _, ok := stillImageExtensions[ext]; ok {
			images = append(images, comp)
		}
	}
	return images
}
