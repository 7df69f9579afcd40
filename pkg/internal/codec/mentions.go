package codec

import "regexp"

// Matches "@" followed by either an email-like mention with a dotted local
// part (@jane.doe@example.com) or a bare word (@jane). Submission tagging
// and render-time highlighting both go through this exact pattern; keeping
// a single compiled expression is what stops previews from diverging from
// stored mentions.
var mentionRegex = regexp.MustCompile(`@(\w+(?:\.\w+)*@\w+(?:\.\w+)+|\w+)`)

// ExtractMentions returns every distinct mention in text, once each, in
// first-occurrence order. Pure function, safe to call from anywhere.
func ExtractMentions(text string) []string {
	matches := mentionRegex.FindAllStringSubmatch(text, -1)
	mentions := make([]string, 0, len(matches))
	seen := make(map[string]bool, len(matches))
	for _, match := range matches {
		mention := match[1]
		if seen[mention] {
			continue
		}
		seen[mention] = true
		mentions = append(mentions, mention)
	}
	return mentions
}
