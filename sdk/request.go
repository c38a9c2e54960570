package sdk

import "time"

// OrderStatusChange is the post run status mutation directive for order exports
type OrderStatusChange string

const (
	// OrderStatusChangeNone leaves exported orders untouched
	OrderStatusChangeNone OrderStatusChange = "none"
	// OrderStatusChangeProcessing marks exported orders as processing
	OrderStatusChangeProcessing OrderStatusChange = "processing"
	// OrderStatusChangeComplete marks exported orders as complete
	OrderStatusChangeComplete OrderStatusChange = "complete"
)

// Filter narrows the record set an export run reads
type Filter struct {
	StoreID          int        `json:"store_id,omitempty"`
	CreatedFrom      *time.Time `json:"created_from,omitempty"`
	CreatedTo        *time.Time `json:"created_to,omitempty"`
	IsPublished      *bool      `json:"is_published,omitempty"`
	PriceMinimum     *float64   `json:"price_minimum,omitempty"`
	PriceMaximum     *float64   `json:"price_maximum,omitempty"`
	CategoryIDs      []int      `json:"category_ids,omitempty"`
	ManufacturerID   int        `json:"manufacturer_id,omitempty"`
	ProductTagID     int        `json:"product_tag_id,omitempty"`
	OrderStatusIDs   []int      `json:"order_status_ids,omitempty"`
	PaymentStatusIDs []int      `json:"payment_status_ids,omitempty"`
	IDMinimum        int        `json:"id_minimum,omitempty"`
	IDMaximum        int        `json:"id_maximum,omitempty"`
	ActiveOnly       bool       `json:"active_only,omitempty"`
}

// Projection controls how read records are shaped before conversion
type Projection struct {
	// StoreID pins a non per-store run to a specific store
	StoreID int `json:"store_id,omitempty"`
	// LanguageID, CurrencyID and CustomerID override the ambient context;
	// zero falls back to the caller's context
	LanguageID int `json:"language_id,omitempty"`
	CurrencyID int `json:"currency_id,omitempty"`
	CustomerID int `json:"customer_id,omitempty"`
	// NoGroupedProducts replaces grouped products with their associated
	// products
	NoGroupedProducts bool `json:"no_grouped_products,omitempty"`
	// OrderStatusChange is applied to all loaded orders after the run
	OrderStatusChange OrderStatusChange `json:"order_status_change,omitempty"`
}

// ProgressFunc reports run progress. done and total are record counts; msg is
// a human readable stage description when counts are not applicable.
type ProgressFunc func(done, total int, msg string)

// AmbientContext is the caller's working context used when the projection
// does not override language, currency or customer
type AmbientContext struct {
	Store    *Store
	Language *Language
	Currency *Currency
	Customer *Customer
}

// ExportRequest is the immutable input of an export or preview run
type ExportRequest struct {
	// Provider is the selected export provider
	Provider Provider
	// Profile is the profile configuration driving the run
	Profile *Profile
	// EntityIDs restricts the run to an explicit id allow list
	EntityIDs []int
	// Filter narrows the record set
	Filter Filter
	// Projection shapes records before conversion
	Projection Projection
	// Ambient is the caller's working context for projection fallbacks
	Ambient AmbientContext
	// CustomData is copied onto the execute context's custom properties
	CustomData map[string]interface{}
	// Progress receives progress updates, may be nil
	Progress ProgressFunc
	// HasPermission gates the run; when false the run aborts before any
	// data is touched
	HasPermission bool
}
