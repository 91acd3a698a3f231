package grader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// ErrContentUnreadable marks a URL submission whose content could not be
// fetched or extracted. It is distinct from a grading rejection.
var ErrContentUnreadable = fmt.Errorf("failed to extract content from the provided link")

var multiSpacePattern = regexp.MustCompile(`\s+`)

const fetchTimeout = 10 * time.Second

// fetchBodyLimit caps how much of a page is downloaded.
const fetchBodyLimit = 2 << 20 // 2MB

// extractURLContent fetches a URL and reduces it to plain text, stripping
// script, style, and navigation chrome.
func extractURLContent(ctx context.Context, client *http.Client, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrContentUnreadable, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; OpenQuest/1.0)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrContentUnreadable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: HTTP %d", ErrContentUnreadable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, fetchBodyLimit))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrContentUnreadable, err)
	}

	text, err := htmlToText(string(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrContentUnreadable, err)
	}
	return text, nil
}

// htmlToText extracts readable body text from an HTML document.
func htmlToText(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	extractText(doc, &sb, 0)

	return strings.TrimSpace(multiSpacePattern.ReplaceAllString(sb.String(), " ")), nil
}

func extractText(n *html.Node, sb *strings.Builder, depth int) {
	if depth > 50 {
		return // Prevent excessive recursion
	}

	switch n.Type {
	case html.TextNode:
		text := strings.TrimSpace(n.Data)
		if text != "" {
			sb.WriteString(text)
			sb.WriteString(" ")
		}
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "iframe", "svg", "nav", "footer", "header":
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, sb, depth+1)
	}
}
