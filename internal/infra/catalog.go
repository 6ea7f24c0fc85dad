package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tea-tech/simple-inventory/internal/config"
	"github.com/tea-tech/simple-inventory/internal/dto"
	"github.com/tea-tech/simple-inventory/internal/service"

	"github.com/rs/zerolog/log"
)

// CatalogClient queries public product catalogs: Open Food Facts for EAN/UPC
// barcodes and OpenLibrary for ISBNs. Each upstream sits behind its own
// circuit breaker so an outage of one catalog never blocks the other.
type CatalogClient struct {
	httpClient     *http.Client
	foodFactsURL   string
	openLibraryURL string
	foodFactsCB    *CircuitBreaker
	openLibraryCB  *CircuitBreaker
}

var _ service.CatalogClient = (*CatalogClient)(nil)

func NewCatalogClient(cfg *config.Config) *CatalogClient {
	return &CatalogClient{
		httpClient:     &http.Client{Timeout: 10 * time.Second},
		foodFactsURL:   strings.TrimRight(cfg.OpenFoodFactsURL, "/"),
		openLibraryURL: strings.TrimRight(cfg.OpenLibraryURL, "/"),
		foodFactsCB:    NewCircuitBreaker(5, 60*time.Second),
		openLibraryCB:  NewCircuitBreaker(5, 60*time.Second),
	}
}

// LookupProduct dispatches on format. A nil result with nil error means the
// catalog answered but had no match.
func (c *CatalogClient) LookupProduct(ctx context.Context, barcode, format string) (*dto.ProductInfo, error) {
	switch format {
	case service.FormatISBN:
		return c.lookupISBN(ctx, barcode)
	case service.FormatEAN13, service.FormatUPC:
		return c.lookupFoodFacts(ctx, barcode)
	}
	return nil, nil
}

type foodFactsResponse struct {
	Status  int `json:"status"`
	Product struct {
		ProductName string `json:"product_name"`
		GenericName string `json:"generic_name"`
		Brands      string `json:"brands"`
		Categories  string `json:"categories"`
		ImageURL    string `json:"image_url"`
	} `json:"product"`
}

func (c *CatalogClient) lookupFoodFacts(ctx context.Context, barcode string) (*dto.ProductInfo, error) {
	url := fmt.Sprintf("%s/api/v0/product/%s.json", c.foodFactsURL, barcode)

	var parsed foodFactsResponse
	err := c.foodFactsCB.Execute(func() error {
		return c.getJSON(ctx, url, &parsed)
	})
	if err != nil {
		return nil, err
	}
	if parsed.Status != 1 || parsed.Product.ProductName == "" {
		return nil, nil
	}

	return &dto.ProductInfo{
		Name:        parsed.Product.ProductName,
		Description: parsed.Product.GenericName,
		Brand:       firstCSV(parsed.Product.Brands),
		Category:    firstCSV(parsed.Product.Categories),
		ImageURL:    parsed.Product.ImageURL,
		Source:      "openfoodfacts",
		Confidence:  0.9,
	}, nil
}

type openLibraryBook struct {
	Title   string `json:"title"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	Cover struct {
		Medium string `json:"medium"`
	} `json:"cover"`
}

func (c *CatalogClient) lookupISBN(ctx context.Context, isbn string) (*dto.ProductInfo, error) {
	key := "ISBN:" + isbn
	url := fmt.Sprintf("%s/api/books?bibkeys=%s&format=json&jscmd=data", c.openLibraryURL, key)

	var parsed map[string]openLibraryBook
	err := c.openLibraryCB.Execute(func() error {
		return c.getJSON(ctx, url, &parsed)
	})
	if err != nil {
		return nil, err
	}
	book, ok := parsed[key]
	if !ok || book.Title == "" {
		return nil, nil
	}

	authors := make([]string, 0, len(book.Authors))
	for _, a := range book.Authors {
		authors = append(authors, a.Name)
	}
	return &dto.ProductInfo{
		Name:        book.Title,
		Description: strings.Join(authors, ", "),
		Category:    "book",
		ImageURL:    book.Cover.Medium,
		Source:      "openlibrary",
		Confidence:  0.95,
	}, nil
}

func (c *CatalogClient) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "simple-inventory/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Str("url", url).Msg("catalog returned non-200")
		return fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func firstCSV(s string) string {
	if i := strings.Index(s, ","); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}
