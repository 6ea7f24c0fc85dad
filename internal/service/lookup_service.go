package service

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/tea-tech/simple-inventory/internal/dto"
	"github.com/tea-tech/simple-inventory/internal/model"
	"github.com/tea-tech/simple-inventory/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Barcode formats recognized for external catalog lookup.
const (
	FormatEAN13   = "ean13"
	FormatUPC     = "upc"
	FormatISBN    = "isbn"
	FormatUnknown = "unknown"
)

const lookupCacheTTL = 24 * time.Hour

// CatalogClient queries an external product catalog for a barcode.
// Implementations live in infra and wrap their HTTP calls in a circuit
// breaker; a nil result with nil error means "catalog reachable, no match".
type CatalogClient interface {
	LookupProduct(ctx context.Context, barcode, format string) (*dto.ProductInfo, error)
}

// LookupService resolves unknown barcodes: format detection, the configurable
// inventory barcode pattern, supplier pattern matches, and external catalog
// product info (cached in Redis).
type LookupService interface {
	Lookup(ctx context.Context, barcode string) (*dto.BarcodeLookupResponse, error)

	CreatePattern(ctx context.Context, req dto.CreateSupplierPatternRequest) (*dto.SupplierPatternResponse, error)
	ListPatterns(ctx context.Context) ([]dto.SupplierPatternResponse, error)
	UpdatePattern(ctx context.Context, id uuid.UUID, req dto.UpdateSupplierPatternRequest) (*dto.SupplierPatternResponse, error)
	DeletePattern(ctx context.Context, id uuid.UUID) error
}

type lookupService struct {
	patterns repository.SupplierPatternRepository
	settings repository.SettingRepository
	catalog  CatalogClient
	cache    *redis.Client
}

func NewLookupService(patterns repository.SupplierPatternRepository, settings repository.SettingRepository, catalog CatalogClient, cache *redis.Client) LookupService {
	return &lookupService{patterns: patterns, settings: settings, catalog: catalog, cache: cache}
}

func (s *lookupService) Lookup(ctx context.Context, barcode string) (*dto.BarcodeLookupResponse, error) {
	resp := &dto.BarcodeLookupResponse{
		Barcode:         barcode,
		Format:          DetectFormat(barcode),
		SupplierMatches: []dto.SupplierMatch{},
	}

	if setting, err := s.settings.FindByKey(ctx, "barcode_pattern"); err == nil && setting.Value != "" {
		resp.MatchesPattern = MatchesPattern(setting.Value, barcode)
	}

	patterns, err := s.patterns.ListEnabled(ctx)
	if err != nil {
		return nil, err
	}
	for i := range patterns {
		p := &patterns[i]
		if MatchesPattern(p.Pattern, barcode) {
			resp.SupplierMatches = append(resp.SupplierMatches, dto.SupplierMatch{
				Supplier:  p.Name,
				SearchURL: strings.ReplaceAll(p.SearchURL, "{barcode}", barcode),
			})
		}
	}

	if resp.Format != FormatUnknown && s.autoLookupEnabled(ctx) {
		product, err := s.catalogLookup(ctx, barcode, resp.Format)
		if err != nil {
			// Catalog trouble never fails the local lookup.
			log.Warn().Err(err).Str("barcode", barcode).Msg("catalog lookup failed")
		} else {
			resp.Product = product
		}
	}
	return resp, nil
}

func (s *lookupService) autoLookupEnabled(ctx context.Context) bool {
	if s.catalog == nil {
		return false
	}
	setting, err := s.settings.FindByKey(ctx, "auto_lookup_external")
	if err != nil {
		return true
	}
	return setting.Value != "false"
}

// catalogLookup consults the Redis cache before the external catalog and
// caches hits for a day.
func (s *lookupService) catalogLookup(ctx context.Context, barcode, format string) (*dto.ProductInfo, error) {
	key := "lookup:" + barcode
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key).Result(); err == nil {
			var cached dto.ProductInfo
			if json.Unmarshal([]byte(raw), &cached) == nil {
				return &cached, nil
			}
		}
	}

	product, err := s.catalog.LookupProduct(ctx, barcode, format)
	if err != nil || product == nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(product); err == nil {
			s.cache.Set(ctx, key, raw, lookupCacheTTL)
		}
	}
	return product, nil
}

// ── Supplier patterns ────────────────────────────────────────────────────────

func (s *lookupService) CreatePattern(ctx context.Context, req dto.CreateSupplierPatternRequest) (*dto.SupplierPatternResponse, error) {
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	p := &model.SupplierPattern{
		Name:        req.Name,
		Pattern:     req.Pattern,
		SearchURL:   req.SearchURL,
		Description: req.Description,
		Enabled:     enabled,
	}
	if err := s.patterns.Create(ctx, p); err != nil {
		return nil, err
	}
	resp := toPatternResponse(p)
	return &resp, nil
}

func (s *lookupService) ListPatterns(ctx context.Context) ([]dto.SupplierPatternResponse, error) {
	list, err := s.patterns.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.SupplierPatternResponse, 0, len(list))
	for i := range list {
		out = append(out, toPatternResponse(&list[i]))
	}
	return out, nil
}

func (s *lookupService) UpdatePattern(ctx context.Context, id uuid.UUID, req dto.UpdateSupplierPatternRequest) (*dto.SupplierPatternResponse, error) {
	p, err := s.patterns.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound("supplier pattern not found")
	}
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Pattern != nil {
		p.Pattern = *req.Pattern
	}
	if req.SearchURL != nil {
		p.SearchURL = *req.SearchURL
	}
	if req.Description != nil {
		p.Description = req.Description
	}
	if req.Enabled != nil {
		p.Enabled = *req.Enabled
	}
	if err := s.patterns.Update(ctx, p); err != nil {
		return nil, err
	}
	resp := toPatternResponse(p)
	return &resp, nil
}

func (s *lookupService) DeletePattern(ctx context.Context, id uuid.UUID) error {
	if _, err := s.patterns.FindByID(ctx, id); errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound("supplier pattern not found")
	} else if err != nil {
		return err
	}
	return s.patterns.Delete(ctx, id)
}

func toPatternResponse(p *model.SupplierPattern) dto.SupplierPatternResponse {
	return dto.SupplierPatternResponse{
		ID:          p.ID.String(),
		Name:        p.Name,
		Pattern:     p.Pattern,
		SearchURL:   p.SearchURL,
		Description: p.Description,
		Enabled:     p.Enabled,
	}
}

// ── Barcode helpers ──────────────────────────────────────────────────────────

// MatchesPattern tests a barcode against the '#'/'*' pattern syntax:
// '#' matches one digit, '*' matches any run (including empty), everything
// else matches literally. The whole barcode must match.
func MatchesPattern(pattern, barcode string) bool {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '#':
			b.WriteString(`\d`)
		case '*':
			b.WriteString(`.*`)
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	re, err := regexp.Compile(b.String())
	if err != nil {
		return false
	}
	return re.MatchString(barcode)
}

// DetectFormat classifies a barcode as EAN-13, UPC-A, or ISBN. ISBN-13 is an
// EAN-13 in the 978/979 Bookland prefix; ISBN-10 is detected by length and
// its own check digit alphabet (trailing X allowed).
func DetectFormat(barcode string) string {
	switch len(barcode) {
	case 13:
		if !allDigits(barcode) || !validEAN13(barcode) {
			return FormatUnknown
		}
		if strings.HasPrefix(barcode, "978") || strings.HasPrefix(barcode, "979") {
			return FormatISBN
		}
		return FormatEAN13
	case 12:
		if allDigits(barcode) {
			return FormatUPC
		}
	case 10:
		if allDigits(barcode[:9]) && (barcode[9] == 'X' || barcode[9] == 'x' || isDigit(barcode[9])) {
			return FormatISBN
		}
	}
	return FormatUnknown
}

func validEAN13(s string) bool {
	sum := 0
	for i := 0; i < 12; i++ {
		d := int(s[i] - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	check := (10 - sum%10) % 10
	return int(s[12]-'0') == check
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return len(s) > 0
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
