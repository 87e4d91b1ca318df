// Package textclean normalizes Instagram captions before they are stored.
package textclean

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	emojiPattern   = regexp.MustCompile("[\U0001F600-\U0001F64F\U0001F300-\U0001F5FF\U0001F680-\U0001F6FF\U0001F1E0-\U0001F1FF]+")
	urlPattern     = regexp.MustCompile(`(?i)[a-z][a-z0-9+.\-]*://\S+`)
	mentionPattern = regexp.MustCompile(`@[\p{L}\p{M}\p{N}_]+`)
	hashtagPattern = regexp.MustCompile(`#([\p{L}\p{M}\p{N}_]+)`)

	filenameInvalid = regexp.MustCompile(`[^\w.\-]`)
	filenameDashes  = regexp.MustCompile(`[-\s]+`)
)

// Clean applies NFKC normalization, drops emoji, links and @-mentions, and
// folds every whitespace run into a single space.
func Clean(text string) string {
	text = norm.NFKC.String(text)
	text = emojiPattern.ReplaceAllString(text, "")
	text = urlPattern.ReplaceAllString(text, "")
	text = mentionPattern.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

// ExtractHashtags returns the tags in order of appearance, without the '#'.
// Duplicates are kept.
func ExtractHashtags(text string) []string {
	matches := hashtagPattern.FindAllStringSubmatch(text, -1)
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tags = append(tags, m[1])
	}
	return tags
}

// CleanCaption is Clean for captions that may be absent from the API payload.
func CleanCaption(caption *string) string {
	if caption == nil {
		return ""
	}
	return Clean(*caption)
}

// CaptionHashtags is ExtractHashtags for captions that may be absent.
func CaptionHashtags(caption *string) []string {
	if caption == nil {
		return []string{}
	}
	return ExtractHashtags(*caption)
}

// SanitizeFilename turns an uploaded file's base name into an ASCII object key
// segment.
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(name) {
		if r <= unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	sanitized := filenameDashes.ReplaceAllString(b.String(), "-")
	sanitized = filenameInvalid.ReplaceAllString(sanitized, "")
	sanitized = strings.Trim(filenameDashes.ReplaceAllString(sanitized, "-"), "-_")
	if sanitized == "" {
		return "unnamed_file"
	}
	return sanitized
}
