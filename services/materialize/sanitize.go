package materialize

import (
	"strconv"
	"strings"
)

// invalidNameChars maps every character a library scanner's filesystem may
// reject to a space. Path separators are included so a hostile title cannot
// escape its folder.
var invalidNameChars = strings.NewReplacer(
	"/", " ",
	"\\", " ",
	":", " ",
	"*", " ",
	"?", " ",
	"\"", " ",
	"<", " ",
	">", " ",
	"|", " ",
)

// SanitizeName makes a title safe to use as a file or folder name: invalid
// characters become spaces, runs of whitespace collapse to one space, and an
// empty result falls back to "Unknown". The transform is idempotent.
func SanitizeName(name string) string {
	cleaned := strings.Join(strings.Fields(invalidNameChars.Replace(name)), " ")
	if cleaned == "" {
		return "Unknown"
	}
	return cleaned
}

// yearLabel renders the year part of a folder name. Zero means unknown.
func yearLabel(year int) string {
	if year <= 0 {
		return "Unknown"
	}
	return strconv.Itoa(year)
}

// FolderName builds the library folder name for a title,
// e.g. "Foo (2020)" or "Foo (Unknown)".
func FolderName(title string, year int) string {
	return SanitizeName(title) + " (" + yearLabel(year) + ")"
}
