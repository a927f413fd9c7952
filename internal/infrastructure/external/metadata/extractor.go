package metadata

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/procurement-workflow/internal/application/port"
	"github.com/garyjia/procurement-workflow/internal/domain/entity"
)

const (
	defaultTimeout   = 15 * time.Second
	maxRedirects     = 5
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

var (
	numericPattern  = regexp.MustCompile(`\d+(?:\.\d+)?`)
	jsonURLPattern  = regexp.MustCompile(`"(https://[^"]+)"`)
	priceStripChars = strings.NewReplacer("$", "", "USD", "", "MXN", "", "€", "", "£", "", ",", "", " ", "", "\u00a0", "")
	titleSeparators = []string{" - ", " | ", " – ", " — "}
	imageSelectors  = []string{
		"#landingImage",
		"#imgBlkFront",
		".product-image img",
		".gallery-image img",
		"[data-main-image]",
		".product img",
		"article img",
		".main-image img",
	}
	amazonPriceSelectors = []string{
		".a-price .a-offscreen",
		"#priceblock_ourprice",
		"#priceblock_dealprice",
		"#price_inside_buybox",
		".a-price-whole",
	}
)

// Config holds extractor settings
type Config struct {
	Timeout   time.Duration
	UserAgent string
}

// Extractor reads product metadata from public product pages
type Extractor struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewExtractor creates a new metadata extractor
func NewExtractor(cfg Config, logger *zap.Logger) *Extractor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = browserUserAgent
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(maxRedirects)).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "es-MX,es;q=0.9,en;q=0.8")

	return &Extractor{
		http:   client,
		logger: logger,
	}
}

// Extract fetches rawURL and reads OpenGraph, twitter, meta and title tags in that order
func (e *Extractor) Extract(ctx context.Context, rawURL string) (*port.ProductMetadata, error) {
	resp, err := e.http.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	meta := Parse(doc, rawURL)
	e.logger.Info("Metadata extracted",
		zap.String("url", rawURL),
		zap.Bool("has_title", meta.Title != ""),
		zap.Bool("has_image", meta.ImageURL != ""),
		zap.Bool("has_price", meta.Price.Valid))

	return meta, nil
}

// Parse extracts metadata from an already loaded document
func Parse(doc *goquery.Document, pageURL string) *port.ProductMetadata {
	meta := &port.ProductMetadata{
		IsAmazon: entity.IsAmazonURL(pageURL),
		ASIN:     entity.ExtractASIN(pageURL),
	}

	meta.Title = firstNonEmpty(
		property(doc, "og:title"),
		property(doc, "twitter:title"),
		name(doc, "twitter:title"),
		name(doc, "title"),
		strings.TrimSpace(doc.Find("title").First().Text()),
	)
	meta.Description = firstNonEmpty(
		property(doc, "og:description"),
		property(doc, "twitter:description"),
		name(doc, "twitter:description"),
		name(doc, "description"),
	)
	meta.ImageURL = firstNonEmpty(
		property(doc, "og:image"),
		property(doc, "twitter:image"),
		name(doc, "twitter:image"),
	)
	siteName := property(doc, "og:site_name")

	if price, ok := parsePrice(firstNonEmpty(property(doc, "product:price:amount"), property(doc, "og:price:amount"))); ok {
		meta.Price = decimal.NewNullDecimal(price)
	}
	meta.Currency = firstNonEmpty(property(doc, "product:price:currency"), property(doc, "og:price:currency"))

	if meta.IsAmazon {
		parseAmazon(doc, meta)
		if siteName == "" {
			siteName = "Amazon"
		}
	}

	if meta.ImageURL == "" {
		meta.ImageURL = firstImage(doc, pageURL)
	}
	if meta.Price.Valid && meta.Currency == "" {
		meta.Currency = currencyForHost(pageURL)
	}

	meta.Title = trimSiteSuffix(meta.Title, siteName)
	return meta
}

func parseAmazon(doc *goquery.Document, meta *port.ProductMetadata) {
	if meta.Title == "" {
		meta.Title = strings.TrimSpace(doc.Find("#productTitle").First().Text())
	}
	if !meta.Price.Valid {
		for _, selector := range amazonPriceSelectors {
			if price, ok := parsePrice(doc.Find(selector).First().Text()); ok {
				meta.Price = decimal.NewNullDecimal(price)
				break
			}
		}
	}
}

func property(doc *goquery.Document, prop string) string {
	return attr(doc.Find(fmt.Sprintf(`meta[property="%s"]`, prop)), "content")
}

func name(doc *goquery.Document, n string) string {
	return attr(doc.Find(fmt.Sprintf(`meta[name="%s"]`, n)), "content")
}

// attr returns the first non-blank value of key across the selection
func attr(sel *goquery.Selection, key string) string {
	var value string
	sel.EachWithBreak(func(i int, s *goquery.Selection) bool {
		if v, ok := s.Attr(key); ok && strings.TrimSpace(v) != "" {
			value = strings.TrimSpace(v)
			return false
		}
		return true
	})
	return value
}

func firstImage(doc *goquery.Document, pageURL string) string {
	for _, selector := range imageSelectors {
		var found string
		doc.Find(selector).EachWithBreak(func(i int, s *goquery.Selection) bool {
			for _, key := range []string{"src", "data-src", "srcset", "data-a-dynamic-image"} {
				src, ok := s.Attr(key)
				if !ok || src == "" {
					continue
				}
				switch key {
				case "srcset":
					if fields := strings.Fields(strings.Split(src, ",")[0]); len(fields) > 0 {
						src = fields[0]
					}
				case "data-a-dynamic-image":
					if m := jsonURLPattern.FindStringSubmatch(src); len(m) > 1 {
						src = m[1]
					} else {
						src = ""
					}
				}
				if src != "" && !strings.HasPrefix(src, "data:") {
					found = absoluteURL(src, pageURL)
					return false
				}
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}

func parsePrice(raw string) (decimal.Decimal, bool) {
	cleaned := priceStripChars.Replace(strings.TrimSpace(raw))
	match := numericPattern.FindString(cleaned)
	if match == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(match)
	if err != nil || d.IsNegative() {
		return decimal.Decimal{}, false
	}
	return d, true
}

func absoluteURL(src, base string) string {
	ref, err := url.Parse(src)
	if err != nil {
		return src
	}
	b, err := url.Parse(base)
	if err != nil {
		return src
	}
	return b.ResolveReference(ref).String()
}

func currencyForHost(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	if strings.HasSuffix(strings.ToLower(u.Hostname()), ".mx") {
		return "MXN"
	}
	return "USD"
}

func trimSiteSuffix(title, siteName string) string {
	if title == "" || siteName == "" {
		return title
	}
	for _, sep := range titleSeparators {
		idx := strings.LastIndex(title, sep)
		if idx <= 0 {
			continue
		}
		suffix := strings.TrimSpace(title[idx+len(sep):])
		if strings.Contains(strings.ToLower(suffix), strings.ToLower(siteName)) {
			title = strings.TrimSpace(title[:idx])
		}
	}
	return title
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Verify interface compliance
var _ port.MetadataExtractor = (*Extractor)(nil)
