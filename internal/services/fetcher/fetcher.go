// Package fetcher downloads the source page and extracts raw notice candidates.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/codeGROOVE-dev/retry"

	logx "noticebot/pkg/logx"
)

const (
	DefaultSectionSelector = "div.partner-wrapper.hero-slider.owl-carousel.owl-theme"
	DefaultItemSelector    = "li"
	DefaultUserAgent       = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	defaultTimeout         = 20 * time.Second
)

// Candidate is one extracted list item, before dedup and link normalization.
type Candidate struct {
	Text    string
	RawLink string // first <a href>, empty when the item has none
}

type Config struct {
	URL             string
	SectionSelector string
	ItemSelector    string
	UserAgent       string
	Timeout         time.Duration
	Attempts        int
	RetryDelay      time.Duration
}

type Fetcher struct {
	cfg    Config
	client *http.Client
	log    logx.Logger
}

// New builds a Fetcher. A nil client gets one with cfg.Timeout.
func New(cfg Config, client *http.Client, log logx.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if strings.TrimSpace(cfg.SectionSelector) == "" {
		cfg.SectionSelector = DefaultSectionSelector
	}
	if strings.TrimSpace(cfg.ItemSelector) == "" {
		cfg.ItemSelector = DefaultItemSelector
	}
	if strings.TrimSpace(cfg.UserAgent) == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Fetcher{cfg: cfg, client: client, log: log}
}

// Fetch retrieves the page and returns its candidates in document order.
// Every failure is a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context) ([]Candidate, error) {
	var out []Candidate

	err := retry.Do(
		func() error {
			cands, err := f.fetchOnce(ctx)
			if err != nil {
				return err
			}
			out = cands
			return nil
		},
		retry.Attempts(uint(f.cfg.Attempts)),
		retry.Delay(f.cfg.RetryDelay),
		retry.MaxDelay(30*time.Second),
		retry.MaxJitter(f.cfg.RetryDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			f.log.Warn("fetch failed; retrying", logx.Uint64("attempt", uint64(n)+1), logx.Err(err))
		}),
		retry.RetryIf(func(err error) bool {
			var fe *FetchError
			if errors.As(err, &fe) {
				return fe.retryable()
			}
			return true
		}),
	)
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			return nil, fe
		}
		return nil, &FetchError{URL: f.cfg.URL, Kind: KindNetwork, Err: err}
	}
	return out, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context) ([]Candidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.URL, http.NoBody)
	if err != nil {
		return nil, retry.Unrecoverable(&FetchError{URL: f.cfg.URL, Kind: KindNetwork, Err: fmt.Errorf("create request: %w", err)})
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: f.cfg.URL, Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	f.log.Debug("source fetched",
		logx.String("url", f.cfg.URL),
		logx.Int("status", resp.StatusCode),
		logx.Duration("took", time.Since(start)),
	)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &FetchError{URL: f.cfg.URL, Kind: KindStatus, Status: resp.StatusCode}
	}
	return Parse(resp.Body, f.cfg.URL, f.cfg.SectionSelector, f.cfg.ItemSelector)
}

// Parse extracts candidates from an HTML document. Only the first element
// matching sectionSel is inspected. Items without text are skipped.
func Parse(r io.Reader, url, sectionSel, itemSel string) ([]Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, &FetchError{URL: url, Kind: KindParse, Err: err}
	}

	section := doc.Find(sectionSel).First()
	if section.Length() == 0 {
		return nil, &FetchError{URL: url, Kind: KindMissingSection, Err: fmt.Errorf("selector %q matched nothing", sectionSel)}
	}

	var out []Candidate
	section.Find(itemSel).Each(func(_ int, s *goquery.Selection) {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" {
			return
		}
		link, _ := s.Find("a[href]").First().Attr("href")
		out = append(out, Candidate{Text: text, RawLink: strings.TrimSpace(link)})
	})
	return out, nil
}
