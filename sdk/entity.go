package sdk

import "time"

// EntityType discriminates which segmenter, prefetcher and converter wiring
// an export provider operates on
type EntityType string

const (
	// EntityTypeProduct exports catalog products
	EntityTypeProduct EntityType = "product"
	// EntityTypeOrder exports orders
	EntityTypeOrder EntityType = "order"
	// EntityTypeCategory exports catalog categories
	EntityTypeCategory EntityType = "category"
	// EntityTypeManufacturer exports manufacturers
	EntityTypeManufacturer EntityType = "manufacturer"
	// EntityTypeCustomer exports customers
	EntityTypeCustomer EntityType = "customer"
	// EntityTypeSubscription exports newsletter subscriptions
	EntityTypeSubscription EntityType = "subscription"
)

// String returns the entity type as a string
func (t EntityType) String() string {
	return string(t)
}

// Valid returns true if the entity type is one the pipeline knows how to export
func (t EntityType) Valid() bool {
	switch t {
	case EntityTypeProduct, EntityTypeOrder, EntityTypeCategory,
		EntityTypeManufacturer, EntityTypeCustomer, EntityTypeSubscription:
		return true
	}
	return false
}

// Store is a tenant scope that a profile may export once globally or once per store
type Store struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	URL     string `json:"url"`
	SeoName string `json:"seo_name"`
}

// Language is a resolved language context for a run
type Language struct {
	ID   int    `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// Currency is a resolved currency context for a run
type Currency struct {
	ID   int     `json:"id"`
	Code string  `json:"code"`
	Rate float64 `json:"rate"`
	Name string  `json:"name"`
}

// ProductType describes how a product participates in the catalog
type ProductType int

const (
	// SimpleProduct is a standalone product
	SimpleProduct ProductType = iota
	// GroupedProduct is a parent product holding associated products
	GroupedProduct
	// BundledProduct is a product composed of bundle items
	BundledProduct
)

// Product is an exportable catalog product
type Product struct {
	ID             int         `json:"id"`
	Name           string      `json:"name"`
	SKU            string      `json:"sku"`
	Type           ProductType `json:"type"`
	ParentProduct  int         `json:"parent_product,omitempty"`
	Price          float64     `json:"price"`
	StockQuantity  int         `json:"stock_quantity"`
	Published      bool        `json:"published"`
	DeliveryTimeID int         `json:"delivery_time_id,omitempty"`
	QuantityUnitID int         `json:"quantity_unit_id,omitempty"`
	TemplateID     int         `json:"template_id,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// OrderStatus is the lifecycle status of an order
type OrderStatus int

const (
	// OrderStatusPending is a newly placed order
	OrderStatusPending OrderStatus = 10
	// OrderStatusProcessing is an order being fulfilled
	OrderStatusProcessing OrderStatus = 20
	// OrderStatusComplete is a fulfilled order
	OrderStatusComplete OrderStatus = 30
	// OrderStatusCancelled is a cancelled order
	OrderStatusCancelled OrderStatus = 40
)

// Order is an exportable order
type Order struct {
	ID                int         `json:"id"`
	Number            string      `json:"number"`
	StoreID           int         `json:"store_id"`
	CustomerID        int         `json:"customer_id"`
	Status            OrderStatus `json:"status"`
	PaymentStatusID   int         `json:"payment_status_id"`
	ShippingStatusID  int         `json:"shipping_status_id"`
	BillingAddressID  int         `json:"billing_address_id"`
	ShippingAddressID int         `json:"shipping_address_id"`
	Total             float64     `json:"total"`
	CreatedAt         time.Time   `json:"created_at"`
}

// Category is an exportable catalog category
type Category struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	ParentID     int       `json:"parent_id"`
	DisplayOrder int       `json:"display_order"`
	PictureID    int       `json:"picture_id,omitempty"`
	Published    bool      `json:"published"`
	CreatedAt    time.Time `json:"created_at"`
}

// Manufacturer is an exportable manufacturer
type Manufacturer struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	DisplayOrder int       `json:"display_order"`
	PictureID    int       `json:"picture_id,omitempty"`
	Published    bool      `json:"published"`
	CreatedAt    time.Time `json:"created_at"`
}

// Customer is an exportable customer
type Customer struct {
	ID                int       `json:"id"`
	Email             string    `json:"email"`
	Username          string    `json:"username"`
	BillingAddressID  int       `json:"billing_address_id,omitempty"`
	ShippingAddressID int       `json:"shipping_address_id,omitempty"`
	Deleted           bool      `json:"deleted"`
	CreatedAt         time.Time `json:"created_at"`
}

// Subscription is an exportable newsletter subscription
type Subscription struct {
	ID        int       `json:"id"`
	Email     string    `json:"email"`
	StoreID   int       `json:"store_id"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Picture is side data attached to products, categories and manufacturers
type Picture struct {
	ID       int    `json:"id"`
	SeoName  string `json:"seo_name"`
	MimeType string `json:"mime_type"`
	URL      string `json:"url"`
}

// ProductAttribute is a variant attribute value attached to a product
type ProductAttribute struct {
	ProductID int    `json:"product_id"`
	Name      string `json:"name"`
	Value     string `json:"value"`
}

// TierPrice is a quantity based price attached to a product
type TierPrice struct {
	ProductID int     `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	StoreID   int     `json:"store_id"`
}

// ProductCategory links a product to a category
type ProductCategory struct {
	ProductID  int `json:"product_id"`
	CategoryID int `json:"category_id"`
}

// ProductManufacturer links a product to a manufacturer
type ProductManufacturer struct {
	ProductID      int `json:"product_id"`
	ManufacturerID int `json:"manufacturer_id"`
}

// Discount is a discount applied to a product
type Discount struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	Percentage float64 `json:"percentage"`
}

// Address is side data attached to orders and customers
type Address struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Street  string `json:"street"`
	City    string `json:"city"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// OrderItem is a line item of an order
type OrderItem struct {
	ID        int     `json:"id"`
	OrderID   int     `json:"order_id"`
	ProductID int     `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// Shipment is a shipment of an order
type Shipment struct {
	ID             int       `json:"id"`
	OrderID        int       `json:"order_id"`
	TrackingNumber string    `json:"tracking_number"`
	ShippedAt      time.Time `json:"shipped_at"`
}

// Country is a run scoped lookup entry used by order exports
type Country struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	TwoCode string `json:"two_code"`
}

// DeliveryTime is a run scoped lookup entry
type DeliveryTime struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// QuantityUnit is a run scoped lookup entry
type QuantityUnit struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Template is a run scoped lookup entry for product render templates
type Template struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
