package provider

import (
	"fmt"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
)

const digestTextLimit = 2000

// PageDigest is a human-readable summary of the current page, attached
// to content-check results so a failed or passed check can be judged
// without opening the page.
type PageDigest struct {
	Title   string `json:"title,omitempty"`
	Excerpt string `json:"excerpt,omitempty"`
	Text    string `json:"text,omitempty"`
}

// DigestPage extracts the main readable content from raw HTML and
// strips any remaining markup.
func DigestPage(html, pageURL string) (*PageDigest, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page URL: %w", err)
	}

	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to extract content: %w", err)
	}

	text := bluemonday.StrictPolicy().Sanitize(article.TextContent)
	text = strings.TrimSpace(text)
	if len(text) > digestTextLimit {
		text = text[:digestTextLimit] + "… (truncated)"
	}

	return &PageDigest{
		Title:   article.Title,
		Excerpt: article.Excerpt,
		Text:    text,
	}, nil
}
