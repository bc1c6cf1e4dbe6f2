package asset

import (
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

type Modality string

const (
	ModalityImage Modality = "image"
	ModalityAudio Modality = "audio"
)

var modalityExtensions = map[Modality]map[string]bool{
	ModalityImage: {
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".webp": true,
	},
	ModalityAudio: {
		".mp3":  true,
		".wav":  true,
		".ogg":  true,
		".m4a":  true,
		".aac":  true,
		".flac": true,
	},
}

// MatchesExtension reports whether name has one of m's extensions.
func MatchesExtension(m Modality, name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return modalityExtensions[m][ext]
}

// IsPlatformMetadata reports archive entries that are OS noise rather than content:
// resource-fork folders, AppleDouble files and Finder/Explorer index files.
func IsPlatformMetadata(name string) bool {
	name = strings.TrimPrefix(name, "./")
	if strings.HasPrefix(name, "__MACOSX/") {
		return true
	}
	base := path.Base(name)
	return strings.HasPrefix(base, "._") || base == ".DS_Store" || strings.EqualFold(base, "Thumbs.db")
}

// DetectMedia sniffs data and reports its media type and whether it really
// belongs to m. File extensions are not trusted.
func DetectMedia(m Modality, data []byte) (string, bool) {
	mt := mimetype.Detect(data)
	mediaType := mt.String()
	if i := strings.Index(mediaType, ";"); i >= 0 {
		mediaType = mediaType[:i]
	}

	switch m {
	case ModalityImage:
		return mediaType, strings.HasPrefix(mediaType, "image/")
	case ModalityAudio:
		if strings.HasPrefix(mediaType, "audio/") {
			return mediaType, true
		}
		// ogg and m4a containers are reported under their container type
		for _, alias := range []string{"application/ogg", "video/mp4"} {
			if mt.Is(alias) {
				return mediaType, true
			}
		}
		return mediaType, false
	}
	return mediaType, false
}

// SanitizeFilename strips path parts and control characters from an entry name.
func SanitizeFilename(filename string) string {
	filename = path.Base(strings.ReplaceAll(filename, "\\", "/"))
	filename = strings.ReplaceAll(filename, "..", "")

	var builder strings.Builder
	for _, r := range filename {
		if r >= 32 && r != 127 {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}
