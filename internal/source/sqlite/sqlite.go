package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/bedasa/dataport/sdk"
	_ "github.com/mattn/go-sqlite3"
)

// Source is a sqlite backed implementation of the full data source surface.
// It serves as the concrete store for development and integration tests.
type Source struct {
	db *sql.DB
}

var _ sdk.DataSource = (*Source)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS stores (
	id INTEGER PRIMARY KEY,
	name TEXT,
	url TEXT,
	seo_name TEXT
);
CREATE TABLE IF NOT EXISTS languages (
	id INTEGER PRIMARY KEY,
	code TEXT,
	name TEXT
);
CREATE TABLE IF NOT EXISTS currencies (
	id INTEGER PRIMARY KEY,
	code TEXT,
	rate REAL,
	name TEXT
);
CREATE TABLE IF NOT EXISTS products (
	id INTEGER PRIMARY KEY,
	name TEXT,
	sku TEXT,
	product_type INTEGER DEFAULT 0,
	parent_product_id INTEGER DEFAULT 0,
	price REAL DEFAULT 0,
	stock_quantity INTEGER DEFAULT 0,
	published INTEGER DEFAULT 1,
	store_id INTEGER DEFAULT 0,
	delivery_time_id INTEGER DEFAULT 0,
	quantity_unit_id INTEGER DEFAULT 0,
	template_id INTEGER DEFAULT 0,
	created_at DATETIME
);
CREATE TABLE IF NOT EXISTS orders (
	id INTEGER PRIMARY KEY,
	number TEXT,
	store_id INTEGER DEFAULT 0,
	customer_id INTEGER DEFAULT 0,
	status INTEGER DEFAULT 10,
	payment_status_id INTEGER DEFAULT 0,
	shipping_status_id INTEGER DEFAULT 0,
	billing_address_id INTEGER DEFAULT 0,
	shipping_address_id INTEGER DEFAULT 0,
	total REAL DEFAULT 0,
	created_at DATETIME
);
CREATE TABLE IF NOT EXISTS categories (
	id INTEGER PRIMARY KEY,
	name TEXT,
	parent_id INTEGER DEFAULT 0,
	display_order INTEGER DEFAULT 0,
	picture_id INTEGER DEFAULT 0,
	published INTEGER DEFAULT 1,
	created_at DATETIME
);
CREATE TABLE IF NOT EXISTS manufacturers (
	id INTEGER PRIMARY KEY,
	name TEXT,
	display_order INTEGER DEFAULT 0,
	picture_id INTEGER DEFAULT 0,
	published INTEGER DEFAULT 1,
	created_at DATETIME
);
CREATE TABLE IF NOT EXISTS customers (
	id INTEGER PRIMARY KEY,
	email TEXT,
	username TEXT,
	billing_address_id INTEGER DEFAULT 0,
	shipping_address_id INTEGER DEFAULT 0,
	deleted INTEGER DEFAULT 0,
	created_at DATETIME
);
CREATE TABLE IF NOT EXISTS subscriptions (
	id INTEGER PRIMARY KEY,
	email TEXT,
	store_id INTEGER DEFAULT 0,
	active INTEGER DEFAULT 1,
	created_at DATETIME
);
CREATE TABLE IF NOT EXISTS addresses (
	id INTEGER PRIMARY KEY,
	name TEXT,
	street TEXT,
	city TEXT,
	zip TEXT,
	country TEXT
);
CREATE TABLE IF NOT EXISTS order_items (
	id INTEGER PRIMARY KEY,
	order_id INTEGER,
	product_id INTEGER,
	quantity INTEGER,
	unit_price REAL
);
CREATE TABLE IF NOT EXISTS shipments (
	id INTEGER PRIMARY KEY,
	order_id INTEGER,
	tracking_number TEXT,
	shipped_at DATETIME
);
CREATE TABLE IF NOT EXISTS product_attributes (
	product_id INTEGER,
	name TEXT,
	value TEXT
);
CREATE TABLE IF NOT EXISTS tier_prices (
	product_id INTEGER,
	quantity INTEGER,
	price REAL,
	store_id INTEGER DEFAULT 0
);
CREATE TABLE IF NOT EXISTS product_categories (
	product_id INTEGER,
	category_id INTEGER
);
CREATE TABLE IF NOT EXISTS product_manufacturers (
	product_id INTEGER,
	manufacturer_id INTEGER
);
CREATE TABLE IF NOT EXISTS pictures (
	id INTEGER PRIMARY KEY,
	seo_name TEXT,
	mime_type TEXT,
	url TEXT
);
CREATE TABLE IF NOT EXISTS product_pictures (
	product_id INTEGER,
	picture_id INTEGER
);
CREATE TABLE IF NOT EXISTS tags (
	id INTEGER PRIMARY KEY,
	name TEXT
);
CREATE TABLE IF NOT EXISTS product_tags (
	product_id INTEGER,
	tag_id INTEGER
);
CREATE TABLE IF NOT EXISTS discounts (
	id INTEGER PRIMARY KEY,
	name TEXT,
	percentage REAL
);
CREATE TABLE IF NOT EXISTS product_discounts (
	product_id INTEGER,
	discount_id INTEGER
);
CREATE TABLE IF NOT EXISTS reward_points (
	customer_id INTEGER,
	points INTEGER
);
CREATE TABLE IF NOT EXISTS customer_attributes (
	customer_id INTEGER,
	name TEXT,
	value TEXT
);
CREATE TABLE IF NOT EXISTS delivery_times (
	id INTEGER PRIMARY KEY,
	name TEXT
);
CREATE TABLE IF NOT EXISTS quantity_units (
	id INTEGER PRIMARY KEY,
	name TEXT
);
CREATE TABLE IF NOT EXISTS templates (
	id INTEGER PRIMARY KEY,
	name TEXT
);
CREATE TABLE IF NOT EXISTS countries (
	id INTEGER PRIMARY KEY,
	name TEXT,
	two_code TEXT
);
`

// New opens (or creates) a sqlite database at dbPath and ensures the schema
func New(dbPath string) (*Source, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating schema: %w", err)
	}
	return &Source{db: db}, nil
}

// DB exposes the underlying handle for seeding and migrations
func (s *Source) DB() *sql.DB {
	return s.db
}

// Close releases the database handle
func (s *Source) Close() error {
	return s.db.Close()
}

// intPlaceholders builds "?,?,?" plus the matching args for an IN clause
func intPlaceholders(ids []int) (string, []interface{}) {
	parts := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		parts[i] = "?"
		args[i] = id
	}
	return strings.Join(parts, ","), args
}

// query assembles the WHERE clause shared by fetch and count
type query struct {
	where []string
	args  []interface{}
}

func (b *query) and(cond string, args ...interface{}) {
	b.where = append(b.where, cond)
	b.args = append(b.args, args...)
}

func (b *query) clause() string {
	if len(b.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.where, " AND ")
}

func paging(q sdk.SourceQuery) string {
	if q.Take <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", q.Take, q.Skip)
}

func buildProductQuery(q sdk.SourceQuery) *query {
	b := &query{}
	if q.StoreID > 0 {
		b.and("(store_id = 0 OR store_id = ?)", q.StoreID)
	}
	if len(q.EntityIDs) > 0 {
		in, args := intPlaceholders(q.EntityIDs)
		b.and("id IN ("+in+")", args...)
	}
	f := q.Filter
	if f.IDMinimum > 0 {
		b.and("id >= ?", f.IDMinimum)
	}
	if f.IDMaximum > 0 {
		b.and("id <= ?", f.IDMaximum)
	}
	if f.CreatedFrom != nil {
		b.and("created_at >= ?", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		b.and("created_at <= ?", *f.CreatedTo)
	}
	if f.IsPublished != nil {
		b.and("published = ?", *f.IsPublished)
	}
	if f.PriceMinimum != nil {
		b.and("price >= ?", *f.PriceMinimum)
	}
	if f.PriceMaximum != nil {
		b.and("price <= ?", *f.PriceMaximum)
	}
	if len(f.CategoryIDs) > 0 {
		in, args := intPlaceholders(f.CategoryIDs)
		b.and("id IN (SELECT product_id FROM product_categories WHERE category_id IN ("+in+"))", args...)
	}
	if f.ManufacturerID > 0 {
		b.and("id IN (SELECT product_id FROM product_manufacturers WHERE manufacturer_id = ?)", f.ManufacturerID)
	}
	if f.ProductTagID > 0 {
		b.and("id IN (SELECT product_id FROM product_tags WHERE tag_id = ?)", f.ProductTagID)
	}
	// grouped product members are reached through expansion, never directly
	b.and("parent_product_id = 0")
	return b
}

// Products pages products ordered by creation time descending
func (s *Source) Products(ctx context.Context, q sdk.SourceQuery) ([]*sdk.Product, error) {
	b := buildProductQuery(q)
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, sku, product_type, parent_product_id, price, stock_quantity, published, delivery_time_id, quantity_unit_id, template_id, created_at FROM products"+
			b.clause()+" ORDER BY created_at DESC, id DESC"+paging(q), b.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

func scanProducts(rows *sql.Rows) ([]*sdk.Product, error) {
	var out []*sdk.Product
	for rows.Next() {
		var p sdk.Product
		var ptype int
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &ptype, &p.ParentProduct, &p.Price, &p.StockQuantity, &p.Published, &p.DeliveryTimeID, &p.QuantityUnitID, &p.TemplateID, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Type = sdk.ProductType(ptype)
		out = append(out, &p)
	}
	return out, rows.Err()
}

// ProductCount returns the number of products matching the query
func (s *Source) ProductCount(ctx context.Context, q sdk.SourceQuery) (int, error) {
	b := buildProductQuery(q)
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products"+b.clause(), b.args...).Scan(&count)
	return count, err
}

// AssociatedProducts returns the members of a grouped product in id order
func (s *Source) AssociatedProducts(ctx context.Context, parentID, storeID int) ([]*sdk.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, sku, product_type, parent_product_id, price, stock_quantity, published, delivery_time_id, quantity_unit_id, template_id, created_at FROM products WHERE parent_product_id = ? ORDER BY id", parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

// ProductAttributes batch loads variant attributes for a page of products
func (s *Source) ProductAttributes(ctx context.Context, productIDs []int) (map[int][]sdk.ProductAttribute, error) {
	out := make(map[int][]sdk.ProductAttribute)
	if len(productIDs) == 0 {
		return out, nil
	}
	in, args := intPlaceholders(productIDs)
	rows, err := s.db.QueryContext(ctx, "SELECT product_id, name, value FROM product_attributes WHERE product_id IN ("+in+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var a sdk.ProductAttribute
		if err := rows.Scan(&a.ProductID, &a.Name, &a.Value); err != nil {
			return nil, err
		}
		out[a.ProductID] = append(out[a.ProductID], a)
	}
	return out, rows.Err()
}

// TierPrices batch loads tier prices scoped to a store
func (s *Source) TierPrices(ctx context.Context, productIDs []int, customerID, storeID int) (map[int][]sdk.TierPrice, error) {
	out := make(map[int][]sdk.TierPrice)
	if len(productIDs) == 0 {
		return out, nil
	}
	in, args := intPlaceholders(productIDs)
	args = append(args, storeID)
	rows, err := s.db.QueryContext(ctx, "SELECT product_id, quantity, price, store_id FROM tier_prices WHERE product_id IN ("+in+") AND (store_id = 0 OR store_id = ?) ORDER BY quantity", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var t sdk.TierPrice
		if err := rows.Scan(&t.ProductID, &t.Quantity, &t.Price, &t.StoreID); err != nil {
			return nil, err
		}
		out[t.ProductID] = append(out[t.ProductID], t)
	}
	return out, rows.Err()
}

// ProductCategories batch loads category links
func (s *Source) ProductCategories(ctx context.Context, productIDs []int) (map[int][]sdk.ProductCategory, error) {
	out := make(map[int][]sdk.ProductCategory)
	if len(productIDs) == 0 {
		return out, nil
	}
	in, args := intPlaceholders(productIDs)
	rows, err := s.db.QueryContext(ctx, "SELECT product_id, category_id FROM product_categories WHERE product_id IN ("+in+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var pc sdk.ProductCategory
		if err := rows.Scan(&pc.ProductID, &pc.CategoryID); err != nil {
			return nil, err
		}
		out[pc.ProductID] = append(out[pc.ProductID], pc)
	}
	return out, rows.Err()
}

// ProductManufacturers batch loads manufacturer links
func (s *Source) ProductManufacturers(ctx context.Context, productIDs []int) (map[int][]sdk.ProductManufacturer, error) {
	out := make(map[int][]sdk.ProductManufacturer)
	if len(productIDs) == 0 {
		return out, nil
	}
	in, args := intPlaceholders(productIDs)
	rows, err := s.db.QueryContext(ctx, "SELECT product_id, manufacturer_id FROM product_manufacturers WHERE product_id IN ("+in+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var pm sdk.ProductManufacturer
		if err := rows.Scan(&pm.ProductID, &pm.ManufacturerID); err != nil {
			return nil, err
		}
		out[pm.ProductID] = append(out[pm.ProductID], pm)
	}
	return out, rows.Err()
}

// ProductPictures batch loads pictures keyed by product
func (s *Source) ProductPictures(ctx context.Context, productIDs []int) (map[int][]sdk.Picture, error) {
	out := make(map[int][]sdk.Picture)
	if len(productIDs) == 0 {
		return out, nil
	}
	in, args := intPlaceholders(productIDs)
	rows, err := s.db.QueryContext(ctx,
		"SELECT pp.product_id, p.id, p.seo_name, p.mime_type, p.url FROM product_pictures pp JOIN pictures p ON p.id = pp.picture_id WHERE pp.product_id IN ("+in+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var productID int
		var p sdk.Picture
		if err := rows.Scan(&productID, &p.ID, &p.SeoName, &p.MimeType, &p.URL); err != nil {
			return nil, err
		}
		out[productID] = append(out[productID], p)
	}
	return out, rows.Err()
}

// ProductTags batch loads tags keyed by product
func (s *Source) ProductTags(ctx context.Context, productIDs []int) (map[int][]string, error) {
	out := make(map[int][]string)
	if len(productIDs) == 0 {
		return out, nil
	}
	in, args := intPlaceholders(productIDs)
	rows, err := s.db.QueryContext(ctx,
		"SELECT pt.product_id, t.name FROM product_tags pt JOIN tags t ON t.id = pt.tag_id WHERE pt.product_id IN ("+in+") ORDER BY t.name", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var productID int
		var tag string
		if err := rows.Scan(&productID, &tag); err != nil {
			return nil, err
		}
		out[productID] = append(out[productID], tag)
	}
	return out, rows.Err()
}

// AppliedDiscounts batch loads discounts keyed by product
func (s *Source) AppliedDiscounts(ctx context.Context, productIDs []int) (map[int][]sdk.Discount, error) {
	out := make(map[int][]sdk.Discount)
	if len(productIDs) == 0 {
		return out, nil
	}
	in, args := intPlaceholders(productIDs)
	rows, err := s.db.QueryContext(ctx,
		"SELECT pd.product_id, d.id, d.name, d.percentage FROM product_discounts pd JOIN discounts d ON d.id = pd.discount_id WHERE pd.product_id IN ("+in+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var productID int
		var d sdk.Discount
		if err := rows.Scan(&productID, &d.ID, &d.Name, &d.Percentage); err != nil {
			return nil, err
		}
		out[productID] = append(out[productID], d)
	}
	return out, rows.Err()
}

func buildOrderQuery(q sdk.SourceQuery) *query {
	b := &query{}
	if q.StoreID > 0 {
		b.and("store_id = ?", q.StoreID)
	}
	if len(q.EntityIDs) > 0 {
		in, args := intPlaceholders(q.EntityIDs)
		b.and("id IN ("+in+")", args...)
	}
	f := q.Filter
	if f.CreatedFrom != nil {
		b.and("created_at >= ?", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		b.and("created_at <= ?", *f.CreatedTo)
	}
	if len(f.OrderStatusIDs) > 0 {
		in, args := intPlaceholders(f.OrderStatusIDs)
		b.and("status IN ("+in+")", args...)
	}
	if len(f.PaymentStatusIDs) > 0 {
		in, args := intPlaceholders(f.PaymentStatusIDs)
		b.and("payment_status_id IN ("+in+")", args...)
	}
	return b
}

// Orders pages orders ordered by creation time descending
func (s *Source) Orders(ctx context.Context, q sdk.SourceQuery) ([]*sdk.Order, error) {
	b := buildOrderQuery(q)
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, number, store_id, customer_id, status, payment_status_id, shipping_status_id, billing_address_id, shipping_address_id, total, created_at FROM orders"+
			b.clause()+" ORDER BY created_at DESC, id DESC"+paging(q), b.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*sdk.Order
	for rows.Next() {
		var o sdk.Order
		var status int
		if err := rows.Scan(&o.ID, &o.Number, &o.StoreID, &o.CustomerID, &status, &o.PaymentStatusID, &o.ShippingStatusID, &o.BillingAddressID, &o.ShippingAddressID, &o.Total, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.Status = sdk.OrderStatus(status)
		out = append(out, &o)
	}
	return out, rows.Err()
}

// OrderCount returns the number of orders matching the query
func (s *Source) OrderCount(ctx context.Context, q sdk.SourceQuery) (int, error) {
	b := buildOrderQuery(q)
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders"+b.clause(), b.args...).Scan(&count)
	return count, err
}

// CustomersByIDs batch loads customers by id
func (s *Source) CustomersByIDs(ctx context.Context, customerIDs []int) (map[int]*sdk.Customer, error) {
	out := make(map[int]*sdk.Customer)
	if len(customerIDs) == 0 {
		return out, nil
	}
	in, args := intPlaceholders(customerIDs)
	rows, err := s.db.QueryContext(ctx, "SELECT id, email, username, billing_address_id, shipping_address_id, deleted, created_at FROM customers WHERE id IN ("+in+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var c sdk.Customer
		if err := rows.Scan(&c.ID, &c.Email, &c.Username, &c.BillingAddressID, &c.ShippingAddressID, &c.Deleted, &c.CreatedAt); err != nil {
			return nil, err
		}
		out[c.ID] = &c
	}
	return out, rows.Err()
}

// AddressesByIDs batch loads addresses by id
func (s *Source) AddressesByIDs(ctx context.Context, addressIDs []int) (map[int]*sdk.Address, error) {
	out := make(map[int]*sdk.Address)
	if len(addressIDs) == 0 {
		return out, nil
	}
	in, args := intPlaceholders(addressIDs)
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, street, city, zip, country FROM addresses WHERE id IN ("+in+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var a sdk.Address
		if err := rows.Scan(&a.ID, &a.Name, &a.Street, &a.City, &a.Zip, &a.Country); err != nil {
			return nil, err
		}
		out[a.ID] = &a
	}
	return out, rows.Err()
}

// OrderItems batch loads line items keyed by order
func (s *Source) OrderItems(ctx context.Context, orderIDs []int) (map[int][]sdk.OrderItem, error) {
	out := make(map[int][]sdk.OrderItem)
	if len(orderIDs) == 0 {
		return out, nil
	}
	in, args := intPlaceholders(orderIDs)
	rows, err := s.db.QueryContext(ctx, "SELECT id, order_id, product_id, quantity, unit_price FROM order_items WHERE order_id IN ("+in+") ORDER BY id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it sdk.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, rows.Err()
}

// Shipments batch loads shipments keyed by order
func (s *Source) Shipments(ctx context.Context, orderIDs []int) (map[int][]sdk.Shipment, error) {
	out := make(map[int][]sdk.Shipment)
	if len(orderIDs) == 0 {
		return out, nil
	}
	in, args := intPlaceholders(orderIDs)
	rows, err := s.db.QueryContext(ctx, "SELECT id, order_id, tracking_number, shipped_at FROM shipments WHERE order_id IN ("+in+") ORDER BY id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var sh sdk.Shipment
		if err := rows.Scan(&sh.ID, &sh.OrderID, &sh.TrackingNumber, &sh.ShippedAt); err != nil {
			return nil, err
		}
		out[sh.OrderID] = append(out[sh.OrderID], sh)
	}
	return out, rows.Err()
}

// RewardPoints batch loads reward point balances keyed by customer
func (s *Source) RewardPoints(ctx context.Context, customerIDs []int) (map[int]int, error) {
	out := make(map[int]int)
	if len(customerIDs) == 0 {
		return out, nil
	}
	in, args := intPlaceholders(customerIDs)
	rows, err := s.db.QueryContext(ctx, "SELECT customer_id, SUM(points) FROM reward_points WHERE customer_id IN ("+in+") GROUP BY customer_id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var customerID, points int
		if err := rows.Scan(&customerID, &points); err != nil {
			return nil, err
		}
		out[customerID] = points
	}
	return out, rows.Err()
}

// SetOrderStatus bulk updates order statuses and returns the number of
// updated rows
func (s *Source) SetOrderStatus(ctx context.Context, orderIDs []int, status sdk.OrderStatus) (int, error) {
	if len(orderIDs) == 0 {
		return 0, nil
	}
	in, args := intPlaceholders(orderIDs)
	args = append([]interface{}{int(status)}, args...)
	res, err := s.db.ExecContext(ctx, "UPDATE orders SET status = ? WHERE id IN ("+in+")", args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func buildCategoryQuery(q sdk.SourceQuery) *query {
	b := &query{}
	if len(q.EntityIDs) > 0 {
		in, args := intPlaceholders(q.EntityIDs)
		b.and("id IN ("+in+")", args...)
	}
	if q.Filter.IsPublished != nil {
		b.and("published = ?", *q.Filter.IsPublished)
	}
	return b
}

// Categories pages categories ordered by parent then display order
func (s *Source) Categories(ctx context.Context, q sdk.SourceQuery) ([]*sdk.Category, error) {
	b := buildCategoryQuery(q)
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, parent_id, display_order, picture_id, published, created_at FROM categories"+
			b.clause()+" ORDER BY parent_id, display_order, id"+paging(q), b.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCategories(rows)
}

func scanCategories(rows *sql.Rows) ([]*sdk.Category, error) {
	var out []*sdk.Category
	for rows.Next() {
		var c sdk.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.ParentID, &c.DisplayOrder, &c.PictureID, &c.Published, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// CategoryCount returns the number of categories matching the query
func (s *Source) CategoryCount(ctx context.Context, q sdk.SourceQuery) (int, error) {
	b := buildCategoryQuery(q)
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM categories"+b.clause(), b.args...).Scan(&count)
	return count, err
}

// CategoryProducts batch loads product links keyed by category
func (s *Source) CategoryProducts(ctx context.Context, categoryIDs []int) (map[int][]sdk.ProductCategory, error) {
	out := make(map[int][]sdk.ProductCategory)
	if len(categoryIDs) == 0 {
		return out, nil
	}
	in, args := intPlaceholders(categoryIDs)
	rows, err := s.db.QueryContext(ctx, "SELECT product_id, category_id FROM product_categories WHERE category_id IN ("+in+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var pc sdk.ProductCategory
		if err := rows.Scan(&pc.ProductID, &pc.CategoryID); err != nil {
			return nil, err
		}
		out[pc.CategoryID] = append(out[pc.CategoryID], pc)
	}
	return out, rows.Err()
}

// CategoryPictures batch loads pictures by picture id
func (s *Source) CategoryPictures(ctx context.Context, pictureIDs []int) (map[int]*sdk.Picture, error) {
	return s.picturesByIDs(ctx, pictureIDs)
}

func (s *Source) picturesByIDs(ctx context.Context, pictureIDs []int) (map[int]*sdk.Picture, error) {
	out := make(map[int]*sdk.Picture)
	if len(pictureIDs) == 0 {
		return out, nil
	}
	in, args := intPlaceholders(pictureIDs)
	rows, err := s.db.QueryContext(ctx, "SELECT id, seo_name, mime_type, url FROM pictures WHERE id IN ("+in+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p sdk.Picture
		if err := rows.Scan(&p.ID, &p.SeoName, &p.MimeType, &p.URL); err != nil {
			return nil, err
		}
		out[p.ID] = &p
	}
	return out, rows.Err()
}

func buildManufacturerQuery(q sdk.SourceQuery) *query {
	b := &query{}
	if len(q.EntityIDs) > 0 {
		in, args := intPlaceholders(q.EntityIDs)
		b.and("id IN ("+in+")", args...)
	}
	if q.Filter.IsPublished != nil {
		b.and("published = ?", *q.Filter.IsPublished)
	}
	return b
}

// Manufacturers pages manufacturers ordered by display order
func (s *Source) Manufacturers(ctx context.Context, q sdk.SourceQuery) ([]*sdk.Manufacturer, error) {
	b := buildManufacturerQuery(q)
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, display_order, picture_id, published, created_at FROM manufacturers"+
			b.clause()+" ORDER BY display_order, id"+paging(q), b.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*sdk.Manufacturer
	for rows.Next() {
		var m sdk.Manufacturer
		if err := rows.Scan(&m.ID, &m.Name, &m.DisplayOrder, &m.PictureID, &m.Published, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// ManufacturerCount returns the number of manufacturers matching the query
func (s *Source) ManufacturerCount(ctx context.Context, q sdk.SourceQuery) (int, error) {
	b := buildManufacturerQuery(q)
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM manufacturers"+b.clause(), b.args...).Scan(&count)
	return count, err
}

// ManufacturerProducts batch loads product links keyed by manufacturer
func (s *Source) ManufacturerProducts(ctx context.Context, manufacturerIDs []int) (map[int][]sdk.ProductManufacturer, error) {
	out := make(map[int][]sdk.ProductManufacturer)
	if len(manufacturerIDs) == 0 {
		return out, nil
	}
	in, args := intPlaceholders(manufacturerIDs)
	rows, err := s.db.QueryContext(ctx, "SELECT product_id, manufacturer_id FROM product_manufacturers WHERE manufacturer_id IN ("+in+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var pm sdk.ProductManufacturer
		if err := rows.Scan(&pm.ProductID, &pm.ManufacturerID); err != nil {
			return nil, err
		}
		out[pm.ManufacturerID] = append(out[pm.ManufacturerID], pm)
	}
	return out, rows.Err()
}

// ManufacturerPictures batch loads pictures by picture id
func (s *Source) ManufacturerPictures(ctx context.Context, pictureIDs []int) (map[int]*sdk.Picture, error) {
	return s.picturesByIDs(ctx, pictureIDs)
}

func buildCustomerQuery(q sdk.SourceQuery) *query {
	b := &query{}
	b.and("deleted = 0")
	if len(q.EntityIDs) > 0 {
		in, args := intPlaceholders(q.EntityIDs)
		b.and("id IN ("+in+")", args...)
	}
	f := q.Filter
	if f.CreatedFrom != nil {
		b.and("created_at >= ?", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		b.and("created_at <= ?", *f.CreatedTo)
	}
	return b
}

// Customers pages customers ordered by creation time descending
func (s *Source) Customers(ctx context.Context, q sdk.SourceQuery) ([]*sdk.Customer, error) {
	b := buildCustomerQuery(q)
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, email, username, billing_address_id, shipping_address_id, deleted, created_at FROM customers"+
			b.clause()+" ORDER BY created_at DESC, id DESC"+paging(q), b.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*sdk.Customer
	for rows.Next() {
		var c sdk.Customer
		if err := rows.Scan(&c.ID, &c.Email, &c.Username, &c.BillingAddressID, &c.ShippingAddressID, &c.Deleted, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// CustomerCount returns the number of customers matching the query
func (s *Source) CustomerCount(ctx context.Context, q sdk.SourceQuery) (int, error) {
	b := buildCustomerQuery(q)
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM customers"+b.clause(), b.args...).Scan(&count)
	return count, err
}

// CustomerAddresses batch loads addresses keyed by customer
func (s *Source) CustomerAddresses(ctx context.Context, customerIDs []int) (map[int][]sdk.Address, error) {
	out := make(map[int][]sdk.Address)
	if len(customerIDs) == 0 {
		return out, nil
	}
	in, args := intPlaceholders(customerIDs)
	rows, err := s.db.QueryContext(ctx,
		"SELECT c.id, a.id, a.name, a.street, a.city, a.zip, a.country FROM customers c JOIN addresses a ON a.id IN (c.billing_address_id, c.shipping_address_id) WHERE c.id IN ("+in+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var customerID int
		var a sdk.Address
		if err := rows.Scan(&customerID, &a.ID, &a.Name, &a.Street, &a.City, &a.Zip, &a.Country); err != nil {
			return nil, err
		}
		out[customerID] = append(out[customerID], a)
	}
	return out, rows.Err()
}

// CustomerAttributes batch loads generic attributes keyed by customer
func (s *Source) CustomerAttributes(ctx context.Context, customerIDs []int) (map[int]map[string]string, error) {
	out := make(map[int]map[string]string)
	if len(customerIDs) == 0 {
		return out, nil
	}
	in, args := intPlaceholders(customerIDs)
	rows, err := s.db.QueryContext(ctx, "SELECT customer_id, name, value FROM customer_attributes WHERE customer_id IN ("+in+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var customerID int
		var name, value string
		if err := rows.Scan(&customerID, &name, &value); err != nil {
			return nil, err
		}
		if out[customerID] == nil {
			out[customerID] = make(map[string]string)
		}
		out[customerID][name] = value
	}
	return out, rows.Err()
}

func buildSubscriptionQuery(q sdk.SourceQuery) *query {
	b := &query{}
	if q.StoreID > 0 {
		b.and("store_id = ?", q.StoreID)
	}
	if len(q.EntityIDs) > 0 {
		in, args := intPlaceholders(q.EntityIDs)
		b.and("id IN ("+in+")", args...)
	}
	if q.Filter.ActiveOnly {
		b.and("active = 1")
	}
	return b
}

// Subscriptions pages subscriptions ordered by store then email
func (s *Source) Subscriptions(ctx context.Context, q sdk.SourceQuery) ([]*sdk.Subscription, error) {
	b := buildSubscriptionQuery(q)
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, email, store_id, active, created_at FROM subscriptions"+
			b.clause()+" ORDER BY store_id, email, id"+paging(q), b.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*sdk.Subscription
	for rows.Next() {
		var sub sdk.Subscription
		if err := rows.Scan(&sub.ID, &sub.Email, &sub.StoreID, &sub.Active, &sub.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &sub)
	}
	return out, rows.Err()
}

// SubscriptionCount returns the number of subscriptions matching the query
func (s *Source) SubscriptionCount(ctx context.Context, q sdk.SourceQuery) (int, error) {
	b := buildSubscriptionQuery(q)
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM subscriptions"+b.clause(), b.args...).Scan(&count)
	return count, err
}

// ActiveSubscriberEmails returns the distinct active subscriber emails
func (s *Source) ActiveSubscriberEmails(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT email FROM subscriptions WHERE active = 1 ORDER BY email")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		out = append(out, email)
	}
	return out, rows.Err()
}

// Stores returns all stores ordered by id
func (s *Source) Stores(ctx context.Context) ([]*sdk.Store, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, url, seo_name FROM stores ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*sdk.Store
	for rows.Next() {
		var st sdk.Store
		if err := rows.Scan(&st.ID, &st.Name, &st.URL, &st.SeoName); err != nil {
			return nil, err
		}
		out = append(out, &st)
	}
	return out, rows.Err()
}

// Languages returns all languages
func (s *Source) Languages(ctx context.Context) ([]*sdk.Language, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, code, name FROM languages ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*sdk.Language
	for rows.Next() {
		var l sdk.Language
		if err := rows.Scan(&l.ID, &l.Code, &l.Name); err != nil {
			return nil, err
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}

// LanguageByID returns one language
func (s *Source) LanguageByID(ctx context.Context, id int) (*sdk.Language, error) {
	var l sdk.Language
	err := s.db.QueryRowContext(ctx, "SELECT id, code, name FROM languages WHERE id = ?", id).Scan(&l.ID, &l.Code, &l.Name)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// CurrencyByID returns one currency
func (s *Source) CurrencyByID(ctx context.Context, id int) (*sdk.Currency, error) {
	var c sdk.Currency
	err := s.db.QueryRowContext(ctx, "SELECT id, code, rate, name FROM currencies WHERE id = ?", id).Scan(&c.ID, &c.Code, &c.Rate, &c.Name)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CustomerByID returns one customer
func (s *Source) CustomerByID(ctx context.Context, id int) (*sdk.Customer, error) {
	var c sdk.Customer
	err := s.db.QueryRowContext(ctx, "SELECT id, email, username, billing_address_id, shipping_address_id, deleted, created_at FROM customers WHERE id = ?", id).
		Scan(&c.ID, &c.Email, &c.Username, &c.BillingAddressID, &c.ShippingAddressID, &c.Deleted, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// DeliveryTimes returns the delivery time lookup table
func (s *Source) DeliveryTimes(ctx context.Context) ([]*sdk.DeliveryTime, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM delivery_times ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*sdk.DeliveryTime
	for rows.Next() {
		var d sdk.DeliveryTime
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

// QuantityUnits returns the quantity unit lookup table
func (s *Source) QuantityUnits(ctx context.Context) ([]*sdk.QuantityUnit, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM quantity_units ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*sdk.QuantityUnit
	for rows.Next() {
		var u sdk.QuantityUnit
		if err := rows.Scan(&u.ID, &u.Name); err != nil {
			return nil, err
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}

// Templates returns the render template lookup table
func (s *Source) Templates(ctx context.Context) ([]*sdk.Template, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM templates ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*sdk.Template
	for rows.Next() {
		var t sdk.Template
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// Countries returns the country lookup table
func (s *Source) Countries(ctx context.Context) ([]*sdk.Country, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, two_code FROM countries ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*sdk.Country
	for rows.Next() {
		var c sdk.Country
		if err := rows.Scan(&c.ID, &c.Name, &c.TwoCode); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// AllCategories returns the full category tree
func (s *Source) AllCategories(ctx context.Context) ([]*sdk.Category, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, parent_id, display_order, picture_id, published, created_at FROM categories ORDER BY parent_id, display_order, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCategories(rows)
}
