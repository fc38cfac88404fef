package utils

import (
	"github.com/microcosm-cc/bluemonday"
)

var textPolicy = bluemonday.UGCPolicy()

// SanitizeText renders stored post or comment text as HTML that is safe to embed.
// Text is stored as submitted; escaping happens only on the way out.
func SanitizeText(input string) string {
	return textPolicy.Sanitize(input)
}
