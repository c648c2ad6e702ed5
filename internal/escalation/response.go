package escalation

import (
	"regexp"
	"strings"
)

// ResponseKind classifies a parsed human reply.
type ResponseKind string

const (
	ResponseChoice  ResponseKind = "choice"
	ResponseExplain ResponseKind = "explain"
	ResponseCustom  ResponseKind = "custom"
	ResponseUnclear ResponseKind = "unclear"
)

// ParsedResponse is the normalized form of a free-text reply.
type ParsedResponse struct {
	Kind       ResponseKind
	OptionID   string
	CustomText string
}

var optionPhraseRe = regexp.MustCompile(`(?i)\boption\s+([a-d])\b`)

// parseResponse interprets a free-text reply against the escalation's
// options. Accepted forms: a bare option letter, the literal "explain",
// "custom: <text>", or a sentence containing an identifiable option
// letter or title fragment. Anything else is unclear.
func parseResponse(text string, options []Option) ParsedResponse {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	if lower == "" {
		return ParsedResponse{Kind: ResponseUnclear}
	}

	// Bare letter, optionally with trailing punctuation ("A", "a.", "A!").
	bare := strings.TrimRight(lower, ".!,")
	if id := matchOptionID(bare, options); id != "" {
		return ParsedResponse{Kind: ResponseChoice, OptionID: id}
	}

	if bare == "explain" {
		return ParsedResponse{Kind: ResponseExplain}
	}

	if strings.HasPrefix(lower, "custom:") {
		return ParsedResponse{Kind: ResponseCustom, CustomText: strings.TrimSpace(trimmed[len("custom:"):])}
	}

	// "option B" anywhere in a sentence.
	if m := optionPhraseRe.FindStringSubmatch(trimmed); m != nil {
		if id := matchOptionID(strings.ToLower(m[1]), options); id != "" {
			return ParsedResponse{Kind: ResponseChoice, OptionID: id}
		}
	}

	// A standalone letter token in a longer sentence ("go with B
	// please"). A lowercase "a" mid-sentence is the English article,
	// not a selection; option A needs an uppercase letter or the
	// "option a" phrasing handled above.
	for _, tok := range strings.Fields(trimmed) {
		tok = strings.Trim(tok, ".!,\"'()")
		if len(tok) != 1 || tok == "a" {
			continue
		}
		if id := matchOptionID(tok, options); id != "" {
			return ParsedResponse{Kind: ResponseChoice, OptionID: id}
		}
	}

	// Fuzzy: a distinctive fragment of exactly one option title.
	if id := matchTitle(lower, options); id != "" {
		return ParsedResponse{Kind: ResponseChoice, OptionID: id}
	}

	return ParsedResponse{Kind: ResponseUnclear}
}

func matchOptionID(token string, options []Option) string {
	for _, opt := range options {
		if strings.EqualFold(token, opt.ID) {
			return opt.ID
		}
	}
	return ""
}

// matchTitle returns an option id when the reply names exactly one
// option's title material (e.g. a branch name). Ambiguous replies do
// not match.
func matchTitle(lower string, options []Option) string {
	matched := ""
	for _, opt := range options {
		for _, frag := range titleFragments(opt.Title) {
			if strings.Contains(lower, frag) {
				if matched != "" && matched != opt.ID {
					return ""
				}
				matched = opt.ID
			}
		}
	}
	return matched
}

// titleFragments picks the distinctive words from a title, skipping
// filler common to every generated title.
func titleFragments(title string) []string {
	skip := map[string]bool{
		"take": true, "the": true, "resolution": true, "from": true,
		"a": true, "an": true, "of": true,
	}
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	var out []string
	for _, w := range words {
		if len(w) >= 4 && !skip[w] {
			out = append(out, w)
		}
	}
	return out
}
