package sdk

import "context"

// SourceQuery carries the criteria every entity query builder accepts. The
// returned sequences must be stably ordered so that repeated skip/take reads
// see a consistent pagination window: products, orders and customers by
// creation time descending, manufacturers by display order, categories by
// parent then display order, subscriptions by store then email.
type SourceQuery struct {
	// StoreID scopes the query to a store, 0 for all stores
	StoreID int
	// EntityIDs restricts the query to an explicit id allow list
	EntityIDs []int
	// Filter narrows the record set
	Filter Filter
	// Skip and Take page through the sequence. Take 0 means no cap.
	Skip int
	Take int
}

// ProductSource pages products and batch loads their side data
type ProductSource interface {
	Products(ctx context.Context, q SourceQuery) ([]*Product, error)
	ProductCount(ctx context.Context, q SourceQuery) (int, error)
	// AssociatedProducts returns the members of a grouped product in stable order
	AssociatedProducts(ctx context.Context, parentID, storeID int) ([]*Product, error)
	ProductAttributes(ctx context.Context, productIDs []int) (map[int][]ProductAttribute, error)
	TierPrices(ctx context.Context, productIDs []int, customerID, storeID int) (map[int][]TierPrice, error)
	ProductCategories(ctx context.Context, productIDs []int) (map[int][]ProductCategory, error)
	ProductManufacturers(ctx context.Context, productIDs []int) (map[int][]ProductManufacturer, error)
	ProductPictures(ctx context.Context, productIDs []int) (map[int][]Picture, error)
	ProductTags(ctx context.Context, productIDs []int) (map[int][]string, error)
	AppliedDiscounts(ctx context.Context, productIDs []int) (map[int][]Discount, error)
}

// OrderSource pages orders and batch loads their side data
type OrderSource interface {
	Orders(ctx context.Context, q SourceQuery) ([]*Order, error)
	OrderCount(ctx context.Context, q SourceQuery) (int, error)
	CustomersByIDs(ctx context.Context, customerIDs []int) (map[int]*Customer, error)
	AddressesByIDs(ctx context.Context, addressIDs []int) (map[int]*Address, error)
	OrderItems(ctx context.Context, orderIDs []int) (map[int][]OrderItem, error)
	Shipments(ctx context.Context, orderIDs []int) (map[int][]Shipment, error)
	RewardPoints(ctx context.Context, customerIDs []int) (map[int]int, error)
	// SetOrderStatus bulk updates the stored status and returns the number
	// of updated orders
	SetOrderStatus(ctx context.Context, orderIDs []int, status OrderStatus) (int, error)
}

// CategorySource pages categories and batch loads their side data
type CategorySource interface {
	Categories(ctx context.Context, q SourceQuery) ([]*Category, error)
	CategoryCount(ctx context.Context, q SourceQuery) (int, error)
	CategoryProducts(ctx context.Context, categoryIDs []int) (map[int][]ProductCategory, error)
	CategoryPictures(ctx context.Context, pictureIDs []int) (map[int]*Picture, error)
}

// ManufacturerSource pages manufacturers and batch loads their side data
type ManufacturerSource interface {
	Manufacturers(ctx context.Context, q SourceQuery) ([]*Manufacturer, error)
	ManufacturerCount(ctx context.Context, q SourceQuery) (int, error)
	ManufacturerProducts(ctx context.Context, manufacturerIDs []int) (map[int][]ProductManufacturer, error)
	ManufacturerPictures(ctx context.Context, pictureIDs []int) (map[int]*Picture, error)
}

// CustomerSource pages customers and batch loads their side data
type CustomerSource interface {
	Customers(ctx context.Context, q SourceQuery) ([]*Customer, error)
	CustomerCount(ctx context.Context, q SourceQuery) (int, error)
	CustomerAddresses(ctx context.Context, customerIDs []int) (map[int][]Address, error)
	CustomerAttributes(ctx context.Context, customerIDs []int) (map[int]map[string]string, error)
}

// SubscriptionSource pages newsletter subscriptions. Subscriptions carry no
// side data.
type SubscriptionSource interface {
	Subscriptions(ctx context.Context, q SourceQuery) ([]*Subscription, error)
	SubscriptionCount(ctx context.Context, q SourceQuery) (int, error)
	// ActiveSubscriberEmails returns the distinct active subscriber emails,
	// used to enrich customer exports
	ActiveSubscriberEmails(ctx context.Context) ([]string, error)
}

// LookupSource loads the run scoped global lookup tables
type LookupSource interface {
	Stores(ctx context.Context) ([]*Store, error)
	Languages(ctx context.Context) ([]*Language, error)
	LanguageByID(ctx context.Context, id int) (*Language, error)
	CurrencyByID(ctx context.Context, id int) (*Currency, error)
	CustomerByID(ctx context.Context, id int) (*Customer, error)
	DeliveryTimes(ctx context.Context) ([]*DeliveryTime, error)
	QuantityUnits(ctx context.Context) ([]*QuantityUnit, error)
	Templates(ctx context.Context) ([]*Template, error)
	Countries(ctx context.Context) ([]*Country, error)
	// AllCategories returns the full category tree for product exports
	AllCategories(ctx context.Context) ([]*Category, error)
}

// DataSource is the complete persistence surface the pipeline consumes. The
// pipeline treats it as an opaque collaborator; implementations decide the
// backing store.
type DataSource interface {
	ProductSource
	OrderSource
	CategorySource
	ManufacturerSource
	CustomerSource
	SubscriptionSource
	LookupSource
}
