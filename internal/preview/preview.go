package preview

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/chainchat/syncd/internal/models"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"]+`)

// FirstURL extracts the first http(s) URL from a message body, or "".
func FirstURL(text string) string {
	return urlPattern.FindString(text)
}

// Fetcher scrapes Open Graph metadata for link previews in chat messages.
type Fetcher struct {
	httpClient *http.Client
	log        *zap.Logger
	maxRetries int
}

func NewFetcher(timeout time.Duration, maxRetries int, log *zap.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxRetries <= 0 {
		maxRetries = 2
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
		maxRetries: maxRetries,
	}
}

// Fetch loads the page and extracts og:title / og:description / og:image,
// falling back to <title>. Returns nil (no error) when the page yields no
// usable metadata; previews are best-effort.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*models.LinkPreview, error) {
	var doc *goquery.Document
	var lastErr error

	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")

		resp, err := f.httpClient.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(attempt+1) * 500 * time.Millisecond)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d for %s", resp.StatusCode, pageURL)
			time.Sleep(time.Duration(attempt+1) * 500 * time.Millisecond)
			continue
		}

		doc, err = goquery.NewDocumentFromReader(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		lastErr = nil
		break
	}

	if doc == nil {
		return nil, lastErr
	}

	p := &models.LinkPreview{URL: pageURL}
	p.Title = metaContent(doc, "og:title")
	p.Description = metaContent(doc, "og:description")
	p.ImageURL = metaContent(doc, "og:image")

	if p.Title == "" {
		p.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if p.Title == "" && p.Description == "" {
		return nil, nil
	}
	return p, nil
}

func metaContent(doc *goquery.Document, property string) string {
	sel := fmt.Sprintf(`meta[property=%q]`, property)
	content, _ := doc.Find(sel).First().Attr("content")
	return strings.TrimSpace(content)
}
