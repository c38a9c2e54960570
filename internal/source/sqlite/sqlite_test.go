package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bedasa/dataport/sdk"
	"github.com/stretchr/testify/assert"
)

func newTestSource(t *testing.T) *Source {
	s, err := New(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s *Source, query string, args ...interface{}) {
	t.Helper()
	if _, err := s.DB().Exec(query, args...); err != nil {
		t.Fatal(err)
	}
}

func TestProductPaging(t *testing.T) {
	assert := assert.New(t)
	s := newTestSource(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 1; i <= 5; i++ {
		seed(t, s, "INSERT INTO products (id, name, sku, price, published, created_at) VALUES (?, ?, ?, ?, 1, ?)",
			i, "product", "sku", float64(i), base.Add(time.Duration(i)*time.Minute))
	}
	ctx := context.Background()
	all, err := s.Products(ctx, sdk.SourceQuery{})
	assert.NoError(err)
	assert.Len(all, 5)
	// newest first
	assert.Equal(5, all[0].ID)
	assert.Equal(1, all[4].ID)
	page, err := s.Products(ctx, sdk.SourceQuery{Skip: 2, Take: 2})
	assert.NoError(err)
	assert.Len(page, 2)
	assert.Equal(3, page[0].ID)
	assert.Equal(2, page[1].ID)
	count, err := s.ProductCount(ctx, sdk.SourceQuery{})
	assert.NoError(err)
	assert.Equal(5, count)
}

func TestProductFilters(t *testing.T) {
	assert := assert.New(t)
	s := newTestSource(t)
	now := time.Now().UTC()
	seed(t, s, "INSERT INTO products (id, name, price, published, store_id, created_at) VALUES (1, 'cheap', 5, 1, 0, ?)", now)
	seed(t, s, "INSERT INTO products (id, name, price, published, store_id, created_at) VALUES (2, 'dear', 50, 1, 0, ?)", now)
	seed(t, s, "INSERT INTO products (id, name, price, published, store_id, created_at) VALUES (3, 'hidden', 5, 0, 0, ?)", now)
	seed(t, s, "INSERT INTO products (id, name, price, published, store_id, created_at) VALUES (4, 'outlet only', 5, 1, 2, ?)", now)
	seed(t, s, "INSERT INTO products (id, name, price, published, parent_product_id, created_at) VALUES (5, 'member', 5, 1, 2, ?)", now)
	seed(t, s, "INSERT INTO product_categories (product_id, category_id) VALUES (1, 7)")
	seed(t, s, "INSERT INTO tags (id, name) VALUES (9, 'sale')")
	seed(t, s, "INSERT INTO product_tags (product_id, tag_id) VALUES (2, 9)")
	ctx := context.Background()

	published := true
	got, err := s.Products(ctx, sdk.SourceQuery{Filter: sdk.Filter{IsPublished: &published}})
	assert.NoError(err)
	assert.Len(got, 3)

	min := 10.0
	got, err = s.Products(ctx, sdk.SourceQuery{Filter: sdk.Filter{PriceMinimum: &min}})
	assert.NoError(err)
	assert.Len(got, 1)
	assert.Equal(2, got[0].ID)

	got, err = s.Products(ctx, sdk.SourceQuery{Filter: sdk.Filter{CategoryIDs: []int{7}}})
	assert.NoError(err)
	assert.Len(got, 1)
	assert.Equal(1, got[0].ID)

	got, err = s.Products(ctx, sdk.SourceQuery{Filter: sdk.Filter{ProductTagID: 9}})
	assert.NoError(err)
	assert.Len(got, 1)
	assert.Equal(2, got[0].ID)

	// a store scoped query sees shared rows plus its own
	got, err = s.Products(ctx, sdk.SourceQuery{StoreID: 2})
	assert.NoError(err)
	assert.Len(got, 4)
	got, err = s.Products(ctx, sdk.SourceQuery{StoreID: 1})
	assert.NoError(err)
	assert.Len(got, 3)

	got, err = s.Products(ctx, sdk.SourceQuery{EntityIDs: []int{1, 3}})
	assert.NoError(err)
	assert.Len(got, 2)
}

func TestAssociatedProducts(t *testing.T) {
	assert := assert.New(t)
	s := newTestSource(t)
	now := time.Now().UTC()
	seed(t, s, "INSERT INTO products (id, name, product_type, created_at) VALUES (1, 'parent', ?, ?)", int(sdk.GroupedProduct), now)
	seed(t, s, "INSERT INTO products (id, name, parent_product_id, created_at) VALUES (3, 'b', 1, ?)", now)
	seed(t, s, "INSERT INTO products (id, name, parent_product_id, created_at) VALUES (2, 'a', 1, ?)", now)
	ctx := context.Background()

	// members never page out directly
	got, err := s.Products(ctx, sdk.SourceQuery{})
	assert.NoError(err)
	assert.Len(got, 1)
	assert.Equal(sdk.GroupedProduct, got[0].Type)

	members, err := s.AssociatedProducts(ctx, 1, 0)
	assert.NoError(err)
	assert.Len(members, 2)
	assert.Equal(2, members[0].ID)
	assert.Equal(3, members[1].ID)
}

func TestProductSideData(t *testing.T) {
	assert := assert.New(t)
	s := newTestSource(t)
	now := time.Now().UTC()
	seed(t, s, "INSERT INTO products (id, name, created_at) VALUES (1, 'p', ?)", now)
	seed(t, s, "INSERT INTO product_attributes (product_id, name, value) VALUES (1, 'color', 'red')")
	seed(t, s, "INSERT INTO tier_prices (product_id, quantity, price, store_id) VALUES (1, 10, 4.5, 0)")
	seed(t, s, "INSERT INTO tier_prices (product_id, quantity, price, store_id) VALUES (1, 20, 4.0, 2)")
	seed(t, s, "INSERT INTO tier_prices (product_id, quantity, price, store_id) VALUES (1, 30, 3.5, 3)")
	seed(t, s, "INSERT INTO pictures (id, seo_name, mime_type, url) VALUES (8, 'p-front', 'image/png', 'http://img/p')")
	seed(t, s, "INSERT INTO product_pictures (product_id, picture_id) VALUES (1, 8)")
	seed(t, s, "INSERT INTO tags (id, name) VALUES (1, 'zeta')")
	seed(t, s, "INSERT INTO tags (id, name) VALUES (2, 'alpha')")
	seed(t, s, "INSERT INTO product_tags (product_id, tag_id) VALUES (1, 1)")
	seed(t, s, "INSERT INTO product_tags (product_id, tag_id) VALUES (1, 2)")
	seed(t, s, "INSERT INTO discounts (id, name, percentage) VALUES (4, 'spring', 10)")
	seed(t, s, "INSERT INTO product_discounts (product_id, discount_id) VALUES (1, 4)")
	ctx := context.Background()

	attrs, err := s.ProductAttributes(ctx, []int{1})
	assert.NoError(err)
	assert.Equal("red", attrs[1][0].Value)

	// tier prices are scoped to shared plus the requested store
	tiers, err := s.TierPrices(ctx, []int{1}, 0, 2)
	assert.NoError(err)
	assert.Len(tiers[1], 2)
	assert.Equal(10, tiers[1][0].Quantity)
	assert.Equal(20, tiers[1][1].Quantity)

	pics, err := s.ProductPictures(ctx, []int{1})
	assert.NoError(err)
	assert.Equal("p-front", pics[1][0].SeoName)

	tags, err := s.ProductTags(ctx, []int{1})
	assert.NoError(err)
	assert.Equal([]string{"alpha", "zeta"}, tags[1])

	discounts, err := s.AppliedDiscounts(ctx, []int{1})
	assert.NoError(err)
	assert.Equal("spring", discounts[1][0].Name)

	empty, err := s.ProductAttributes(ctx, nil)
	assert.NoError(err)
	assert.Empty(empty)
}

func TestOrderFiltersAndSideData(t *testing.T) {
	assert := assert.New(t)
	s := newTestSource(t)
	now := time.Now().UTC()
	seed(t, s, "INSERT INTO orders (id, number, store_id, customer_id, status, billing_address_id, created_at) VALUES (1, 'A-1', 1, 10, ?, 5, ?)", int(sdk.OrderStatusPending), now)
	seed(t, s, "INSERT INTO orders (id, number, store_id, customer_id, status, created_at) VALUES (2, 'A-2', 2, 10, ?, ?)", int(sdk.OrderStatusComplete), now.Add(time.Minute))
	seed(t, s, "INSERT INTO customers (id, email, created_at) VALUES (10, 'a@b.c', ?)", now)
	seed(t, s, "INSERT INTO addresses (id, name, city) VALUES (5, 'Home', 'Berlin')")
	seed(t, s, "INSERT INTO order_items (id, order_id, product_id, quantity, unit_price) VALUES (1, 1, 99, 2, 9.5)")
	seed(t, s, "INSERT INTO shipments (id, order_id, tracking_number, shipped_at) VALUES (1, 1, 'TRACK-1', ?)", now)
	seed(t, s, "INSERT INTO reward_points (customer_id, points) VALUES (10, 25)")
	seed(t, s, "INSERT INTO reward_points (customer_id, points) VALUES (10, 15)")
	ctx := context.Background()

	got, err := s.Orders(ctx, sdk.SourceQuery{})
	assert.NoError(err)
	assert.Len(got, 2)
	assert.Equal(2, got[0].ID)

	got, err = s.Orders(ctx, sdk.SourceQuery{StoreID: 1})
	assert.NoError(err)
	assert.Len(got, 1)

	got, err = s.Orders(ctx, sdk.SourceQuery{Filter: sdk.Filter{OrderStatusIDs: []int{int(sdk.OrderStatusComplete)}}})
	assert.NoError(err)
	assert.Len(got, 1)
	assert.Equal(2, got[0].ID)

	customers, err := s.CustomersByIDs(ctx, []int{10})
	assert.NoError(err)
	assert.Equal("a@b.c", customers[10].Email)

	addresses, err := s.AddressesByIDs(ctx, []int{5})
	assert.NoError(err)
	assert.Equal("Berlin", addresses[5].City)

	items, err := s.OrderItems(ctx, []int{1})
	assert.NoError(err)
	assert.Equal(99, items[1][0].ProductID)

	shipments, err := s.Shipments(ctx, []int{1})
	assert.NoError(err)
	assert.Equal("TRACK-1", shipments[1][0].TrackingNumber)

	points, err := s.RewardPoints(ctx, []int{10})
	assert.NoError(err)
	assert.Equal(40, points[10])
}

func TestSetOrderStatus(t *testing.T) {
	assert := assert.New(t)
	s := newTestSource(t)
	now := time.Now().UTC()
	for i := 1; i <= 3; i++ {
		seed(t, s, "INSERT INTO orders (id, number, status, created_at) VALUES (?, 'n', ?, ?)", i, int(sdk.OrderStatusPending), now)
	}
	ctx := context.Background()
	n, err := s.SetOrderStatus(ctx, []int{1, 3}, sdk.OrderStatusComplete)
	assert.NoError(err)
	assert.Equal(2, n)
	got, err := s.Orders(ctx, sdk.SourceQuery{Filter: sdk.Filter{OrderStatusIDs: []int{int(sdk.OrderStatusComplete)}}})
	assert.NoError(err)
	assert.Len(got, 2)
	n, err = s.SetOrderStatus(ctx, nil, sdk.OrderStatusComplete)
	assert.NoError(err)
	assert.Zero(n)
}

func TestCategoryOrdering(t *testing.T) {
	assert := assert.New(t)
	s := newTestSource(t)
	now := time.Now().UTC()
	seed(t, s, "INSERT INTO categories (id, name, parent_id, display_order, created_at) VALUES (3, 'child b', 1, 2, ?)", now)
	seed(t, s, "INSERT INTO categories (id, name, parent_id, display_order, created_at) VALUES (2, 'child a', 1, 1, ?)", now)
	seed(t, s, "INSERT INTO categories (id, name, parent_id, display_order, created_at) VALUES (1, 'root', 0, 1, ?)", now)
	seed(t, s, "INSERT INTO product_categories (product_id, category_id) VALUES (7, 2)")
	ctx := context.Background()

	got, err := s.Categories(ctx, sdk.SourceQuery{})
	assert.NoError(err)
	assert.Len(got, 3)
	assert.Equal(1, got[0].ID)
	assert.Equal(2, got[1].ID)
	assert.Equal(3, got[2].ID)

	tree, err := s.AllCategories(ctx)
	assert.NoError(err)
	assert.Len(tree, 3)

	links, err := s.CategoryProducts(ctx, []int{2})
	assert.NoError(err)
	assert.Equal(7, links[2][0].ProductID)
}

func TestManufacturerOrdering(t *testing.T) {
	assert := assert.New(t)
	s := newTestSource(t)
	now := time.Now().UTC()
	seed(t, s, "INSERT INTO manufacturers (id, name, display_order, picture_id, created_at) VALUES (1, 'last', 5, 3, ?)", now)
	seed(t, s, "INSERT INTO manufacturers (id, name, display_order, created_at) VALUES (2, 'first', 1, ?)", now)
	seed(t, s, "INSERT INTO pictures (id, seo_name, mime_type, url) VALUES (3, 'logo', 'image/png', 'http://img/logo')")
	seed(t, s, "INSERT INTO product_manufacturers (product_id, manufacturer_id) VALUES (9, 1)")
	ctx := context.Background()

	got, err := s.Manufacturers(ctx, sdk.SourceQuery{})
	assert.NoError(err)
	assert.Equal(2, got[0].ID)
	assert.Equal(1, got[1].ID)

	links, err := s.ManufacturerProducts(ctx, []int{1})
	assert.NoError(err)
	assert.Equal(9, links[1][0].ProductID)

	pics, err := s.ManufacturerPictures(ctx, []int{3})
	assert.NoError(err)
	assert.Equal("logo", pics[3].SeoName)
}

func TestCustomersExcludeDeleted(t *testing.T) {
	assert := assert.New(t)
	s := newTestSource(t)
	now := time.Now().UTC()
	seed(t, s, "INSERT INTO customers (id, email, billing_address_id, deleted, created_at) VALUES (1, 'live@x.y', 5, 0, ?)", now)
	seed(t, s, "INSERT INTO customers (id, email, deleted, created_at) VALUES (2, 'gone@x.y', 1, ?)", now)
	seed(t, s, "INSERT INTO addresses (id, name, city) VALUES (5, 'Home', 'Hamburg')")
	seed(t, s, "INSERT INTO customer_attributes (customer_id, name, value) VALUES (1, 'vat_number', 'DE123')")
	ctx := context.Background()

	got, err := s.Customers(ctx, sdk.SourceQuery{})
	assert.NoError(err)
	assert.Len(got, 1)
	assert.Equal("live@x.y", got[0].Email)

	count, err := s.CustomerCount(ctx, sdk.SourceQuery{})
	assert.NoError(err)
	assert.Equal(1, count)

	addresses, err := s.CustomerAddresses(ctx, []int{1})
	assert.NoError(err)
	assert.Equal("Hamburg", addresses[1][0].City)

	attrs, err := s.CustomerAttributes(ctx, []int{1})
	assert.NoError(err)
	assert.Equal("DE123", attrs[1]["vat_number"])
}

func TestSubscriptions(t *testing.T) {
	assert := assert.New(t)
	s := newTestSource(t)
	now := time.Now().UTC()
	seed(t, s, "INSERT INTO subscriptions (id, email, store_id, active, created_at) VALUES (1, 'z@x.y', 2, 1, ?)", now)
	seed(t, s, "INSERT INTO subscriptions (id, email, store_id, active, created_at) VALUES (2, 'a@x.y', 1, 1, ?)", now)
	seed(t, s, "INSERT INTO subscriptions (id, email, store_id, active, created_at) VALUES (3, 'b@x.y', 1, 0, ?)", now)
	seed(t, s, "INSERT INTO subscriptions (id, email, store_id, active, created_at) VALUES (4, 'a@x.y', 2, 1, ?)", now)
	ctx := context.Background()

	got, err := s.Subscriptions(ctx, sdk.SourceQuery{})
	assert.NoError(err)
	assert.Len(got, 4)
	// store then email
	assert.Equal(2, got[0].ID)
	assert.Equal(3, got[1].ID)
	assert.Equal(4, got[2].ID)
	assert.Equal(1, got[3].ID)

	got, err = s.Subscriptions(ctx, sdk.SourceQuery{Filter: sdk.Filter{ActiveOnly: true}})
	assert.NoError(err)
	assert.Len(got, 3)

	emails, err := s.ActiveSubscriberEmails(ctx)
	assert.NoError(err)
	assert.Equal([]string{"a@x.y", "z@x.y"}, emails)
}

func TestLookups(t *testing.T) {
	assert := assert.New(t)
	s := newTestSource(t)
	seed(t, s, "INSERT INTO stores (id, name, url, seo_name) VALUES (1, 'Main', 'http://main', 'main')")
	seed(t, s, "INSERT INTO languages (id, code, name) VALUES (1, 'de', 'German')")
	seed(t, s, "INSERT INTO currencies (id, code, rate, name) VALUES (1, 'EUR', 1.0, 'Euro')")
	seed(t, s, "INSERT INTO delivery_times (id, name) VALUES (1, '2-3 days')")
	seed(t, s, "INSERT INTO quantity_units (id, name) VALUES (1, 'piece')")
	seed(t, s, "INSERT INTO templates (id, name) VALUES (1, 'default')")
	seed(t, s, "INSERT INTO countries (id, name, two_code) VALUES (1, 'Germany', 'DE')")
	ctx := context.Background()

	stores, err := s.Stores(ctx)
	assert.NoError(err)
	assert.Equal("main", stores[0].SeoName)

	lang, err := s.LanguageByID(ctx, 1)
	assert.NoError(err)
	assert.Equal("de", lang.Code)

	_, err = s.LanguageByID(ctx, 99)
	assert.Error(err)

	cur, err := s.CurrencyByID(ctx, 1)
	assert.NoError(err)
	assert.Equal(1.0, cur.Rate)

	times, err := s.DeliveryTimes(ctx)
	assert.NoError(err)
	assert.Equal("2-3 days", times[0].Name)

	units, err := s.QuantityUnits(ctx)
	assert.NoError(err)
	assert.Len(units, 1)

	templates, err := s.Templates(ctx)
	assert.NoError(err)
	assert.Len(templates, 1)

	countries, err := s.Countries(ctx)
	assert.NoError(err)
	assert.Equal("DE", countries[0].TwoCode)
}
