package catalog

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var titleCaser = cases.Title(language.Und, cases.NoLower)

// NormalizeName cleans a catalog display name: backslash escape sequences are
// decoded, surrounding quotation marks stripped, the text NFC-normalized and
// title-cased. Interior markup (the "<ANY>" placeholder, _italics_) survives
// untouched because the caser leaves already-cased runes alone.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	name = decodeEscapes(name)
	name = strings.Trim(name, `"'“”‘’`)
	name = norm.NFC.String(name)
	name = titleCaser.String(name)
	return strings.TrimSpace(name)
}

// DedupKey folds a normalized name for duplicate detection.
func DedupKey(name string) string {
	return strings.ToLower(name)
}

// decodeEscapes interprets backslash escape sequences (\n, \uXXXX, ...) that
// leak into catalog exports. Names without a backslash pass through.
func decodeEscapes(name string) string {
	if !strings.ContainsRune(name, '\\') {
		return name
	}
	quoted := `"` + strings.ReplaceAll(name, `"`, `\"`) + `"`
	decoded, err := strconv.Unquote(quoted)
	if err != nil {
		return name
	}
	return decoded
}
