package services

import (
	"context"
	"regexp"
)

// CommentModerator is the external content-moderation oracle. The pipeline
// consumes it as a black box: approved or not, with reasons.
type CommentModerator interface {
	Moderate(ctx context.Context, text string) (approved bool, reasons []string, err error)
}

var linkPattern = regexp.MustCompile(`https?://`)

// PatternModerator is the built-in oracle implementation: rejects comments
// with too many links or matching a blocked pattern.
type PatternModerator struct {
	maxLinks int
	blocked  []*regexp.Regexp
}

func NewPatternModerator(maxLinks int, blockedPatterns []string) (*PatternModerator, error) {
	blocked := make([]*regexp.Regexp, 0, len(blockedPatterns))
	for _, p := range blockedPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		blocked = append(blocked, re)
	}

	return &PatternModerator{maxLinks: maxLinks, blocked: blocked}, nil
}

func (m *PatternModerator) Moderate(_ context.Context, text string) (bool, []string, error) {
	var reasons []string

	if m.maxLinks > 0 {
		if count := len(linkPattern.FindAllStringIndex(text, -1)); count > m.maxLinks {
			reasons = append(reasons, "too_many_links")
		}
	}

	for _, re := range m.blocked {
		if re.MatchString(text) {
			reasons = append(reasons, "blocked_pattern")
			break
		}
	}

	return len(reasons) == 0, reasons, nil
}
