package models

import (
	"regexp"
	"strings"

	"github.com/dmitrijs2005/logmoments/internal/common"
)

var (
	scriptTagRe   = regexp.MustCompile(`(?is)<script[\s\S]*?>[\s\S]*?</script>`)
	controlCharRe = regexp.MustCompile(`[\x00-\x1F\x7F]+`)
)

// SanitizeContent strips script blocks and control characters, collapses
// whitespace and truncates to MaxContentLength runes.
func SanitizeContent(s string) string {
	s = scriptTagRe.ReplaceAllString(s, "")
	return clean(s, common.MaxContentLength)
}

// SanitizeFeeling is SanitizeContent without script stripping, capped at
// MaxFeelingLength runes.
func SanitizeFeeling(s string) string {
	return clean(s, common.MaxFeelingLength)
}

func clean(s string, limit int) string {
	s = controlCharRe.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > limit {
		s = string(r[:limit])
	}
	return s
}
