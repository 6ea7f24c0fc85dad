package dto

// ProductInfo is the normalized result of an external catalog lookup.
type ProductInfo struct {
	Name        string  `json:"name,omitempty"`
	Description string  `json:"description,omitempty"`
	Brand       string  `json:"brand,omitempty"`
	Category    string  `json:"category,omitempty"`
	ImageURL    string  `json:"image_url,omitempty"`
	Source      string  `json:"source,omitempty"`
	Confidence  float64 `json:"confidence"`
}

// SupplierMatch is a supplier pattern hit for a scanned barcode.
type SupplierMatch struct {
	Supplier  string `json:"supplier"`
	SearchURL string `json:"search_url"`
}

// BarcodeLookupResponse aggregates everything known about a scanned barcode
// that is not already an entity: its detected format, catalog product info
// (if any), and supplier pattern matches.
type BarcodeLookupResponse struct {
	Barcode         string          `json:"barcode"`
	Format          string          `json:"format"` // ean13 | upc | isbn | unknown
	MatchesPattern  bool            `json:"matches_pattern"`
	Product         *ProductInfo    `json:"product,omitempty"`
	SupplierMatches []SupplierMatch `json:"supplier_matches"`
}
