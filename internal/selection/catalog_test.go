package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mediapull/internal/domain"
)

func TestCatalog_Classify(t *testing.T) {
	catalog := NewCatalog("")

	tests := []struct {
		name     string
		expected domain.RepresentationType
	}{
		{"review-1080p", domain.RepresentationEncodedHigh},
		{"review-mp4-1080", domain.RepresentationEncodedHigh},
		{"review-720p", domain.RepresentationEncodedLow},
		{"review-mp4", domain.RepresentationEncodedLow},
		{"main", domain.RepresentationOriginal},
		{"thumbnail", domain.RepresentationOther},
		{"proxy", domain.RepresentationOther},
		{"", domain.RepresentationOther},
	}

	for _, test := range tests {
		got := catalog.Classify(domain.Component{Name: test.name})
		assert.Equal(t, test.expected, got, "component name %q", test.name)
	}
}

func TestCatalog_ClassifyCustomOriginalName(t *testing.T) {
	catalog := NewCatalog("source_media")

	assert.Equal(t, domain.RepresentationOriginal, catalog.Classify(domain.Component{Name: "source_media"}))
	assert.Equal(t, domain.RepresentationOther, catalog.Classify(domain.Component{Name: "main"}))
	// encode names outrank the original designation
	assert.Equal(t, domain.RepresentationEncodedLow, catalog.Classify(domain.Component{Name: "review-mp4"}))
}

func TestCatalog_GroupByType(t *testing.T) {
	catalog := NewCatalog("")
	comps := []domain.Component{
		{ID: "a", Name: "review-mp4"},
		{ID: "b", Name: "main"},
		{ID: "c", Name: "thumbnail"},
		{ID: "d", Name: "review-mp4-1080"},
		{ID: "e", Name: "frames"},
	}

	groups := catalog.GroupByType(comps)

	assert.Len(t, groups[domain.RepresentationEncodedLow], 1)
	assert.Len(t, groups[domain.RepresentationEncodedHigh], 1)
	assert.Len(t, groups[domain.RepresentationOriginal], 1)
	assert.Len(t, groups[domain.RepresentationOther], 2)
	// input order survives within a bucket
	assert.Equal(t, "c", groups[domain.RepresentationOther][0].ID)
	assert.Equal(t, "e", groups[domain.RepresentationOther][1].ID)
}
