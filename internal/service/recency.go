package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/perceptionx/collector/internal/domain"
	"github.com/perceptionx/collector/internal/logger"
	"github.com/perceptionx/collector/internal/repository"
)

// RecencySummary counts what one batch extraction did.
type RecencySummary struct {
	Requested int `json:"requested"`
	Unique    int `json:"unique"`
	Cached    int `json:"cached"`
	Processed int `json:"processed"`
	WithDate  int `json:"with_date"`
	Failed    int `json:"failed"`
}

// RecencyExtractor scores how recent the pages behind citations are.
type RecencyExtractor interface {
	ExtractBatch(ctx context.Context, citations []domain.Citation) (*RecencySummary, error)
}

// RecencyConfig holds configuration for the recency extractor.
type RecencyConfig struct {
	Workers       int
	Timeout       time.Duration
	RatePerSecond float64
	UserAgent     string
	MaxBodyBytes  int

	// AllowPrivateHosts lets fetches reach loopback and private networks.
	AllowPrivateHosts bool
}

// ErrNonPublicAddress is returned when a cited URL resolves to a loopback,
// private or otherwise non-routable address.
var ErrNonPublicAddress = errors.New("non-public address")

const defaultRecencyBodyLimit = 2 << 20

// RecencyService fetches cited pages, finds their publication date and
// upserts the URL recency cache.
type RecencyService struct {
	client  *resty.Client
	repo    *repository.RecencyRepository
	workers int
	limiter *rate.Limiter
	now     func() time.Time
}

// NewRecencyService creates a recency extractor.
func NewRecencyService(cfg RecencyConfig, repo *repository.RecencyRepository) *RecencyService {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "PerceptionX-Recency/1.0"
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultRecencyBodyLimit
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	dialer := &net.Dialer{Timeout: cfg.Timeout, KeepAlive: 30 * time.Second}
	if !cfg.AllowPrivateHosts {
		dialer.Control = publicAddressOnly
	}
	client := resty.New().
		SetTransport(&http.Transport{
			DialContext:         dialer.DialContext,
			MaxIdleConnsPerHost: cfg.Workers,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		}).
		SetTimeout(cfg.Timeout).
		SetResponseBodyLimit(cfg.MaxBodyBytes).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml").
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5), resty.RedirectPolicyFunc(httpSchemesOnly))

	return &RecencyService{
		client:  client,
		repo:    repo,
		workers: cfg.Workers,
		limiter: rate.NewLimiter(limit, cfg.Workers),
		now:     time.Now,
	}
}

// ExtractBatch de-duplicates citations by URL, skips URLs already cached and
// scores the rest with bounded concurrency. Per-URL failures are recorded in
// the cache as fetch-failed and never abort the batch.
func (s *RecencyService) ExtractBatch(ctx context.Context, citations []domain.Citation) (*RecencySummary, error) {
	ctx = logger.SetComponent(ctx, "recency")
	summary := &RecencySummary{Requested: len(citations)}

	seen := make(map[string]bool, len(citations))
	var unique []domain.Citation
	for _, c := range citations {
		if c.URL == "" || seen[c.URL] {
			continue
		}
		seen[c.URL] = true
		unique = append(unique, c)
	}
	summary.Unique = len(unique)
	if len(unique) == 0 {
		return summary, nil
	}

	urls := make([]string, len(unique))
	for i, c := range unique {
		urls[i] = c.URL
	}
	cached, err := s.repo.CachedURLs(ctx, urls)
	if err != nil {
		return summary, fmt.Errorf("failed to read recency cache: %w", err)
	}
	summary.Cached = len(cached)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, c := range unique {
		if cached[c.URL] {
			continue
		}
		g.Go(func() error {
			entry := s.extract(gctx, c)
			if err := s.repo.Upsert(gctx, entry); err != nil {
				logger.CtxWarn(gctx, "Failed to store recency for %s: %v", c.URL, err)
			}
			mu.Lock()
			summary.Processed++
			if entry.RecencyScore != nil {
				summary.WithDate++
			}
			if entry.ExtractionMethod == domain.ExtractionFetchFailed {
				summary.Failed++
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}

	logger.With(logger.Fields{logger.FieldCount: summary.Processed}).
		Info(ctx, "Recency extraction finished: %d with date, %d cached, %d failed", summary.WithDate, summary.Cached, summary.Failed)
	return summary, nil
}

// extract builds the cache entry for one citation.
func (s *RecencyService) extract(ctx context.Context, c domain.Citation) *domain.URLRecencyCache {
	entry := &domain.URLRecencyCache{
		URL:              c.URL,
		Domain:           c.Domain,
		ExtractionMethod: domain.ExtractionNotFound,
	}
	if entry.Domain == "" {
		entry.Domain = domain.DomainOf(c.URL)
	}

	date, method, fetchErr := s.fetchDate(ctx, c.URL)
	if date == nil {
		if d, ok := DateFromURL(c.URL); ok {
			date, method = &d, domain.ExtractionURLPattern
		}
	}
	switch {
	case date != nil:
		score := RecencyScore(*date, s.now())
		entry.PublicationDate = date
		entry.RecencyScore = &score
		entry.ExtractionMethod = method
	case fetchErr != nil:
		logger.CtxDebug(ctx, "Fetch failed for %s: %v", c.URL, fetchErr)
		entry.ExtractionMethod = domain.ExtractionFetchFailed
	}
	return entry
}

func (s *RecencyService) fetchDate(ctx context.Context, rawURL string) (*time.Time, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}
	resp, err := s.client.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode() >= 400 {
		return nil, "", fmt.Errorf("HTTP %d", resp.StatusCode())
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	d, method, ok := PublicationDate(doc)
	if !ok {
		return nil, "", nil
	}
	return &d, method, nil
}

// publicAddressOnly runs on every dial, after DNS resolution and on each
// redirect hop.
func publicAddressOnly(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || !isPublicIP(ip) {
		return fmt.Errorf("%w: %s", ErrNonPublicAddress, host)
	}
	return nil
}

func isPublicIP(ip net.IP) bool {
	return !(ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() ||
		ip.IsMulticast())
}

func httpSchemesOnly(req *http.Request, _ []*http.Request) error {
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return fmt.Errorf("redirect to unsupported scheme %q", req.URL.Scheme)
	}
	return nil
}

// RecencyScore maps the age of a page to a 0-100 score.
func RecencyScore(published, now time.Time) int {
	days := now.Sub(published).Hours() / 24
	switch {
	case days <= 30:
		return 100
	case days <= 90:
		return 80
	case days <= 180:
		return 60
	case days <= 365:
		return 40
	case days <= 730:
		return 20
	default:
		return 10
	}
}

var metaDateSelectors = []string{
	`meta[property="article:published_time"]`,
	`meta[name="article:published_time"]`,
	`meta[property="og:published_time"]`,
	`meta[itemprop="datePublished"]`,
	`meta[name="pubdate"]`,
	`meta[name="publishdate"]`,
	`meta[name="publish-date"]`,
	`meta[name="date"]`,
	`meta[name="DC.date.issued"]`,
	`meta[name="dcterms.created"]`,
	`meta[property="article:modified_time"]`,
	`meta[property="og:updated_time"]`,
}

// PublicationDate looks for a publication date in meta tags, then JSON-LD,
// then <time> elements.
func PublicationDate(doc *goquery.Document) (time.Time, string, bool) {
	for _, sel := range metaDateSelectors {
		if v, ok := doc.Find(sel).First().Attr("content"); ok {
			if t, ok := parseDate(v); ok {
				return t, domain.ExtractionMetaTag, true
			}
		}
	}

	var found time.Time
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var v interface{}
		if err := json.Unmarshal([]byte(s.Text()), &v); err != nil {
			return true
		}
		if t, ok := jsonLDDate(v); ok {
			found = t
			return false
		}
		return true
	})
	if !found.IsZero() {
		return found, domain.ExtractionJSONLD, true
	}

	doc.Find("time[datetime]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("datetime")
		if t, ok := parseDate(v); ok {
			found = t
			return false
		}
		return true
	})
	if !found.IsZero() {
		return found, domain.ExtractionTimeElement, true
	}
	return time.Time{}, "", false
}

// jsonLDDate walks a JSON-LD value, including @graph arrays.
func jsonLDDate(v interface{}) (time.Time, bool) {
	switch x := v.(type) {
	case []interface{}:
		for _, item := range x {
			if t, ok := jsonLDDate(item); ok {
				return t, true
			}
		}
	case map[string]interface{}:
		for _, key := range []string{"datePublished", "dateCreated", "uploadDate", "dateModified"} {
			if s, ok := x[key].(string); ok {
				if t, ok := parseDate(s); ok {
					return t, true
				}
			}
		}
		if g, ok := x["@graph"]; ok {
			return jsonLDDate(g)
		}
	}
	return time.Time{}, false
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	time.RFC1123,
	time.RFC1123Z,
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"02 Jan 2006",
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if len(s) >= 10 {
		if t, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var urlDatePatterns = []*regexp.Regexp{
	// /2024/02/17/ or /2024/2/ path segments
	regexp.MustCompile(`/((?:19|20)\d{2})/(0?[1-9]|1[0-2])(?:/(0?[1-9]|[12]\d|3[01]))?(?:/|$)`),
	// /2024-02-17-slug with a two-digit month and day
	regexp.MustCompile(`/((?:19|20)\d{2})-(0[1-9]|1[0-2])-(0[1-9]|[12]\d|3[01])(?:[/\-_.]|$)`),
}

// DateFromURL finds a /yyyy/mm(/dd) or /yyyy-mm-dd date in a URL path. A
// missing day becomes the first of the month. Calendar-impossible dates
// such as /2023/02/31 are rejected.
func DateFromURL(rawURL string) (time.Time, bool) {
	for _, re := range urlDatePatterns {
		m := re.FindStringSubmatch(rawURL)
		if m == nil {
			continue
		}
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day := 1
		if m[3] != "" {
			day, _ = strconv.Atoi(m[3])
		}
		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if t.Day() != day || int(t.Month()) != month {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}
