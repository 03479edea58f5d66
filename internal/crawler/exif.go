package crawler

import (
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
	"golang.org/x/text/encoding/unicode"
)

// exifTextTags are the EXIF tags whose values are free text worth indexing.
// The XP* tags are written by Windows Explorer as UTF-16LE byte arrays.
var exifTextTags = map[string]bool{
	"ImageDescription": true,
	"Artist":           true,
	"Copyright":        true,
	"XPTitle":          true,
	"XPComment":        true,
	"XPAuthor":         true,
	"XPKeywords":       true,
	"XPSubject":        true,
}

// ExtractEXIFWords returns the words found in the text tags of an image's
// EXIF block. Images without EXIF, or with unreadable EXIF, yield nil.
func ExtractEXIFWords(data []byte) []string {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil || rawExif == nil {
		return nil
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return nil
	}

	return exifWords(entries)
}

// exifWords collects words from the text tags in entry order.
func exifWords(entries []exif.ExifTag) []string {
	var words []string
	for _, entry := range entries {
		if !exifTextTags[entry.TagName] {
			continue
		}
		words = append(words, strings.Fields(exifText(entry))...)
	}
	return words
}

// exifText returns the human-readable value of a text tag.
func exifText(entry exif.ExifTag) string {
	if strings.HasPrefix(entry.TagName, "XP") {
		if b, ok := entry.Value.([]byte); ok {
			return decodeUTF16LE(b)
		}
	}
	return strings.Trim(entry.Formatted, "\x00 ")
}

// decodeUTF16LE decodes a NUL-terminated UTF-16LE byte array.
func decodeUTF16LE(b []byte) string {
	decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(b)
	if err != nil {
		return ""
	}
	return strings.TrimRight(string(decoded), "\x00")
}
