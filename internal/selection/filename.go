package selection

import (
	"fmt"
	"regexp"
	"strings"

	"mediapull/internal/domain"
)

var unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// GenerateFilename builds the deterministic output name for one download:
// parent, asset, zero-padded version and a representation label, with the
// component extension appended when known. Characters that are unsafe in
// filenames are replaced with underscores.
func GenerateFilename(v domain.Version, t domain.RepresentationType, ext string) string {
	name := fmt.Sprintf("%s_%s_v%03d_%s", v.Parent, v.Asset, v.Number, representationLabel(t))
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext != "" {
		name += "." + ext
	}
	return unsafeFilenameChars.ReplaceAllString(name, "_")
}

func representationLabel(t domain.RepresentationType) string {
	switch t {
	case domain.RepresentationEncodedHigh:
		return "encoded_1080p"
	case domain.RepresentationEncodedLow:
		return "encoded_720p"
	case domain.RepresentationOriginal:
		return "original"
	default:
		return string(t)
	}
}
