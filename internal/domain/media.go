package domain

import (
	"fmt"
	"strings"
)

// RepresentationType classifies one downloadable representation of a version.
type RepresentationType string

const (
	RepresentationEncodedLow  RepresentationType = "encoded-low"
	RepresentationEncodedHigh RepresentationType = "encoded-high"
	RepresentationOriginal    RepresentationType = "original"
	RepresentationOther       RepresentationType = "other"
)

// Preference selects which representation class a pull should favour.
type Preference string

const (
	PreferEncoded  Preference = "encoded"
	PreferOriginal Preference = "original"
)

// ParsePreference validates an operator-supplied preference string.
func ParsePreference(s string) (Preference, error) {
	switch Preference(strings.ToLower(strings.TrimSpace(s))) {
	case PreferEncoded:
		return PreferEncoded, nil
	case PreferOriginal:
		return PreferOriginal, nil
	}
	return "", fmt.Errorf("unknown preference %q (use encoded or original)", s)
}

// Component is a single downloadable file attached to a version, as reported
// by the tracker. FileType is the declared extension and may carry a leading
// dot; Size may be zero when the tracker does not know it.
type Component struct {
	ID        string
	Name      string
	FileType  string
	Size      int64
	VersionID string
}

// Version is the versioned work item that owns components. Parent is the
// shot or sequence name, Asset the task name under it.
type Version struct {
	ID     string
	Parent string
	Asset  string
	Number int
}

func (v Version) Label() string {
	return fmt.Sprintf("%s %s v%03d", v.Parent, v.Asset, v.Number)
}
