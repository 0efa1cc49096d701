package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediapull/internal/domain"
)

func newTestPolicy() Policy {
	return NewPolicy(NewCatalog(""))
}

func TestPolicy_SelectPrimaryPreferOriginal(t *testing.T) {
	policy := newTestPolicy()
	comps := []domain.Component{
		{ID: "enc", Name: "review-mp4", Size: 50},
		{ID: "orig", Name: "main", Size: 500},
	}

	comp, ok := policy.SelectPrimary(comps, domain.PreferOriginal)

	require.True(t, ok)
	assert.Equal(t, "orig", comp.ID)
}

func TestPolicy_SelectPrimaryPreferOriginalFallsBackToLargest(t *testing.T) {
	policy := newTestPolicy()
	comps := []domain.Component{
		{ID: "small", Name: "review-mp4", Size: 50},
		{ID: "big", Name: "frames", Size: 9000},
	}

	comp, ok := policy.SelectPrimary(comps, domain.PreferOriginal)

	require.True(t, ok)
	assert.Equal(t, "big", comp.ID)
}

func TestPolicy_SelectPrimaryPreferEncoded(t *testing.T) {
	policy := newTestPolicy()
	comps := []domain.Component{
		{ID: "orig", Name: "main", Size: 500},
		{ID: "enc", Name: "review-mp4", Size: 50},
	}

	comp, ok := policy.SelectPrimary(comps, domain.PreferEncoded)

	require.True(t, ok)
	assert.Equal(t, "enc", comp.ID)
}

func TestPolicy_SelectPrimaryPreferEncodedOrder(t *testing.T) {
	policy := newTestPolicy()

	tests := []struct {
		comps    []domain.Component
		expected string
	}{
		// low beats high beats original
		{[]domain.Component{
			{ID: "high", Name: "review-1080p"},
			{ID: "low", Name: "review-720p"},
			{ID: "orig", Name: "main"},
		}, "low"},
		{[]domain.Component{
			{ID: "high", Name: "review-1080p"},
			{ID: "orig", Name: "main"},
		}, "high"},
		{[]domain.Component{
			{ID: "orig", Name: "main"},
			{ID: "misc", Name: "thumbnail"},
		}, "orig"},
	}

	for _, test := range tests {
		comp, ok := policy.SelectPrimary(test.comps, domain.PreferEncoded)
		require.True(t, ok)
		assert.Equal(t, test.expected, comp.ID)
	}
}

func TestPolicy_SelectPrimaryNothingSuitable(t *testing.T) {
	policy := newTestPolicy()

	_, ok := policy.SelectPrimary(nil, domain.PreferEncoded)
	assert.False(t, ok)

	// only "other" components and an encoded preference
	_, ok = policy.SelectPrimary([]domain.Component{{Name: "thumbnail"}}, domain.PreferEncoded)
	assert.False(t, ok)
}

func TestPolicy_SelectFallbackPriorityOrder(t *testing.T) {
	policy := newTestPolicy()
	comps := []domain.Component{
		{ID: "orig", Name: "main"},
		{ID: "other", Name: "thumbnail", FileType: ".png"},
		{ID: "high", Name: "review-1080p"},
		{ID: "low", Name: "review-mp4"},
	}

	comp, ok := policy.SelectFallback(comps)
	require.True(t, ok)
	assert.Equal(t, "low", comp.ID)

	comp, ok = policy.SelectFallback(comps, domain.RepresentationEncodedLow)
	require.True(t, ok)
	assert.Equal(t, "high", comp.ID)

	comp, ok = policy.SelectFallback(comps,
		domain.RepresentationEncodedLow, domain.RepresentationEncodedHigh)
	require.True(t, ok)
	assert.Equal(t, "other", comp.ID)

	comp, ok = policy.SelectFallback(comps,
		domain.RepresentationEncodedLow, domain.RepresentationEncodedHigh, domain.RepresentationOther)
	require.True(t, ok)
	assert.Equal(t, "orig", comp.ID)
}

func TestPolicy_SelectFallbackPrefersStillImages(t *testing.T) {
	policy := newTestPolicy()
	comps := []domain.Component{
		{ID: "notes", Name: "notes", FileType: ".txt", Size: 99999},
		{ID: "frame", Name: "frame", FileType: ".exr", Size: 10},
	}

	comp, ok := policy.SelectFallback(comps)

	require.True(t, ok)
	assert.Equal(t, "frame", comp.ID)
}

func TestPolicy_SelectFallbackLargestWinsInBucket(t *testing.T) {
	policy := newTestPolicy()
	comps := []domain.Component{
		{ID: "small", Name: "frame_a", FileType: "png", Size: 10},
		{ID: "big", Name: "frame_b", FileType: "png", Size: 300},
	}

	comp, ok := policy.SelectFallback(comps)

	require.True(t, ok)
	assert.Equal(t, "big", comp.ID)
}

func TestPolicy_SelectFallbackFirstSeenBreaksTies(t *testing.T) {
	policy := newTestPolicy()
	comps := []domain.Component{
		{ID: "first", Name: "frame_a", FileType: "png", Size: 100},
		{ID: "second", Name: "frame_b", FileType: "png", Size: 100},
	}

	comp, ok := policy.SelectFallback(comps)

	require.True(t, ok)
	assert.Equal(t, "first", comp.ID)
}

func TestPolicy_SelectFallbackNothingLeft(t *testing.T) {
	policy := newTestPolicy()
	comps := []domain.Component{{ID: "low", Name: "review-mp4"}}

	_, ok := policy.SelectFallback(comps,
		domain.RepresentationEncodedLow, domain.RepresentationEncodedHigh,
		domain.RepresentationOther, domain.RepresentationOriginal)

	assert.False(t, ok)
}
