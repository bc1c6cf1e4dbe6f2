package ingest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lingocrowd/contribution_control/internal/apperr"
	"github.com/lingocrowd/contribution_control/internal/asset"
)

// maxEntryBytes caps one decompressed archive entry.
const maxEntryBytes = 64 << 20

// archiveEntries lists the entries of data that look like media of m, in
// name order. Directories, platform metadata and other extensions are skipped.
func archiveEntries(data []byte, m asset.Modality) ([]*zip.File, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, apperr.Schema("unparsable archive: %v", err)
	}

	var entries []*zip.File
	for _, f := range reader.File {
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			continue
		}
		if asset.IsPlatformMetadata(f.Name) {
			continue
		}
		if !asset.MatchesExtension(m, f.Name) {
			continue
		}
		entries = append(entries, f)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// readEntry decompresses one entry and checks its bytes really are media of m.
func readEntry(f *zip.File, m asset.Modality) ([]byte, string, error) {
	if f.UncompressedSize64 > maxEntryBytes {
		return nil, "", apperr.Schema("entry exceeds %d bytes", maxEntryBytes)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, "", apperr.Schema("unreadable entry: %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxEntryBytes+1))
	if err != nil {
		return nil, "", apperr.Schema("unreadable entry: %v", err)
	}
	if len(data) > maxEntryBytes {
		return nil, "", apperr.Schema("entry exceeds %d bytes", maxEntryBytes)
	}
	if len(data) == 0 {
		return nil, "", apperr.Schema("empty entry")
	}

	mediaType, ok := asset.DetectMedia(m, data)
	if !ok {
		return nil, "", apperr.Schema("not a valid %s file (detected %s)", m, mediaType)
	}
	return data, mediaType, nil
}

// titleFromFilename turns "market_day-01.jpg" into "Market day 01".
func titleFromFilename(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.Join(strings.FieldsFunc(base, func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '.'
	}), " ")
	r, size := utf8.DecodeRuneInString(base)
	if r == utf8.RuneError {
		return base
	}
	return string(unicode.ToUpper(r)) + base[size:]
}

func entryLabel(f *zip.File) string {
	return fmt.Sprintf("entry %s", f.Name)
}
