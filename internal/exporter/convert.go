package exporter

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bedasa/dataport/sdk"
)

// The converters project source entities into flat provider records,
// resolving side data from the current page buckets and global context from
// the run scoped lookup cache. A converter never hits the data source.

func (rc *runContext) deliveryTimes() map[int]*sdk.DeliveryTime {
	if v, ok := rc.lookups.Get(lookupDeliveryTimes); ok {
		return v.(map[int]*sdk.DeliveryTime)
	}
	return nil
}

func (rc *runContext) quantityUnits() map[int]*sdk.QuantityUnit {
	if v, ok := rc.lookups.Get(lookupQuantityUnits); ok {
		return v.(map[int]*sdk.QuantityUnit)
	}
	return nil
}

func (rc *runContext) templates() map[int]*sdk.Template {
	if v, ok := rc.lookups.Get(lookupTemplates); ok {
		return v.(map[int]*sdk.Template)
	}
	return nil
}

func (rc *runContext) countries() map[int]*sdk.Country {
	if v, ok := rc.lookups.Get(lookupCountries); ok {
		return v.(map[int]*sdk.Country)
	}
	return nil
}

func (rc *runContext) categoryTree() map[int]*sdk.Category {
	if v, ok := rc.lookups.Get(lookupCategories); ok {
		return v.(map[int]*sdk.Category)
	}
	return nil
}

func (rc *runContext) subscriberEmails() map[string]struct{} {
	if v, ok := rc.lookups.Get(lookupSubscribers); ok {
		return v.(map[string]struct{})
	}
	return nil
}

// categoryPath builds the breadcrumb of a category from the cached tree,
// memoized per run
func (rc *runContext) categoryPath(id int) string {
	key := lookupCategoryPath + strconv.Itoa(id)
	if v, ok := rc.lookups.Get(key); ok {
		return v.(string)
	}
	tree := rc.categoryTree()
	var names []string
	for cur := id; cur > 0; {
		c, ok := tree[cur]
		if !ok {
			break
		}
		names = append(names, c.Name)
		if c.ParentID == cur {
			break
		}
		cur = c.ParentID
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	path := strings.Join(names, " > ")
	rc.lookups.SetDefault(key, path)
	return path
}

// convertedPrice applies the resolved currency rate, rounded to cents
func (rc *runContext) convertedPrice(amount float64) float64 {
	if rc.currency != nil && rc.currency.Rate > 0 {
		amount = amount * rc.currency.Rate
	}
	return math.Round(amount*100) / 100
}

func (rc *runContext) currencyCode() string {
	if rc.currency != nil {
		return rc.currency.Code
	}
	return ""
}

func (rc *runContext) languageCode() string {
	if rc.language != nil {
		return rc.language.Code
	}
	return ""
}

func (rc *runContext) convertProduct(p *sdk.Product) (sdk.Record, error) {
	rec := sdk.Record{
		"id":             p.ID,
		"name":           p.Name,
		"sku":            p.SKU,
		"product_type":   int(p.Type),
		"price":          rc.convertedPrice(p.Price),
		"currency_code":  rc.currencyCode(),
		"language_code":  rc.languageCode(),
		"stock_quantity": p.StockQuantity,
		"published":      p.Published,
		"created_at":     p.CreatedAt.Format(time.RFC3339),
	}
	if p.ParentProduct > 0 {
		rec["parent_product_id"] = p.ParentProduct
	}
	if d := rc.deliveryTimes(); d != nil && p.DeliveryTimeID > 0 {
		if dt, ok := d[p.DeliveryTimeID]; ok {
			rec["delivery_time"] = dt.Name
		}
	}
	if u := rc.quantityUnits(); u != nil && p.QuantityUnitID > 0 {
		if qu, ok := u[p.QuantityUnitID]; ok {
			rec["quantity_unit"] = qu.Name
		}
	}
	if t := rc.templates(); t != nil && p.TemplateID > 0 {
		if tpl, ok := t[p.TemplateID]; ok {
			rec["template"] = tpl.Name
		}
	}
	d := rc.segment.pages.product
	if d == nil {
		return rec, nil
	}
	if attrs := d.attributes[p.ID]; len(attrs) > 0 {
		out := make([]map[string]interface{}, len(attrs))
		for i, a := range attrs {
			out[i] = map[string]interface{}{"name": a.Name, "value": a.Value}
		}
		rec["attributes"] = out
	}
	if prices := d.tierPrices[p.ID]; len(prices) > 0 {
		out := make([]map[string]interface{}, len(prices))
		for i, tp := range prices {
			out[i] = map[string]interface{}{
				"quantity": tp.Quantity,
				"price":    rc.convertedPrice(tp.Price),
			}
		}
		rec["tier_prices"] = out
	}
	if cats := d.categories[p.ID]; len(cats) > 0 {
		paths := make([]string, len(cats))
		for i, pc := range cats {
			paths[i] = rc.categoryPath(pc.CategoryID)
		}
		rec["category_paths"] = paths
	}
	if mans := d.manufacturers[p.ID]; len(mans) > 0 {
		ids := make([]int, len(mans))
		for i, pm := range mans {
			ids[i] = pm.ManufacturerID
		}
		rec["manufacturer_ids"] = ids
	}
	if pics := d.pictures[p.ID]; len(pics) > 0 {
		urls := make([]string, len(pics))
		for i, pic := range pics {
			urls[i] = pic.URL
		}
		rec["picture_urls"] = urls
	}
	if tags := d.tags[p.ID]; len(tags) > 0 {
		rec["tags"] = tags
	}
	if discounts := d.discounts[p.ID]; len(discounts) > 0 {
		out := make([]map[string]interface{}, len(discounts))
		for i, disc := range discounts {
			out[i] = map[string]interface{}{"name": disc.Name, "percentage": disc.Percentage}
		}
		rec["discounts"] = out
	}
	return rec, nil
}

func (rc *runContext) convertOrder(o *sdk.Order) (sdk.Record, error) {
	rec := sdk.Record{
		"id":            o.ID,
		"number":        o.Number,
		"store_id":      o.StoreID,
		"status":        int(o.Status),
		"total":         rc.convertedPrice(o.Total),
		"currency_code": rc.currencyCode(),
		"created_at":    o.CreatedAt.Format(time.RFC3339),
	}
	d := rc.segment.pages.order
	if d == nil {
		return rec, nil
	}
	if c, ok := d.customers[o.CustomerID]; ok && c != nil {
		rec["customer_id"] = c.ID
		rec["customer_email"] = c.Email
		if points, ok := d.rewardPoints[c.ID]; ok {
			rec["reward_points"] = points
		}
	}
	if a, ok := d.addresses[o.BillingAddressID]; ok && a != nil {
		rec["billing_address"] = rc.convertAddress(a)
	}
	if a, ok := d.addresses[o.ShippingAddressID]; ok && a != nil {
		rec["shipping_address"] = rc.convertAddress(a)
	}
	if items := d.items[o.ID]; len(items) > 0 {
		out := make([]map[string]interface{}, len(items))
		for i, it := range items {
			out[i] = map[string]interface{}{
				"product_id": it.ProductID,
				"quantity":   it.Quantity,
				"unit_price": rc.convertedPrice(it.UnitPrice),
			}
		}
		rec["items"] = out
	}
	if shipments := d.shipments[o.ID]; len(shipments) > 0 {
		out := make([]map[string]interface{}, len(shipments))
		for i, s := range shipments {
			out[i] = map[string]interface{}{
				"tracking_number": s.TrackingNumber,
				"shipped_at":      s.ShippedAt.Format(time.RFC3339),
			}
		}
		rec["shipments"] = out
	}
	return rec, nil
}

func (rc *runContext) convertAddress(a *sdk.Address) map[string]interface{} {
	out := map[string]interface{}{
		"name":   a.Name,
		"street": a.Street,
		"city":   a.City,
		"zip":    a.Zip,
	}
	if a.Country != "" {
		out["country"] = a.Country
	}
	return out
}

func (rc *runContext) convertCategory(c *sdk.Category) (sdk.Record, error) {
	rec := sdk.Record{
		"id":            c.ID,
		"name":          c.Name,
		"display_order": c.DisplayOrder,
		"published":     c.Published,
		"path":          rc.categoryPath(c.ID),
		"created_at":    c.CreatedAt.Format(time.RFC3339),
	}
	if c.ParentID > 0 {
		rec["parent_id"] = c.ParentID
	}
	d := rc.segment.pages.category
	if d == nil {
		return rec, nil
	}
	if pic, ok := d.pictures[c.PictureID]; ok && pic != nil {
		rec["picture_url"] = pic.URL
	}
	if links := d.products[c.ID]; len(links) > 0 {
		ids := make([]int, len(links))
		for i, pc := range links {
			ids[i] = pc.ProductID
		}
		rec["product_ids"] = ids
	}
	return rec, nil
}

func (rc *runContext) convertManufacturer(m *sdk.Manufacturer) (sdk.Record, error) {
	rec := sdk.Record{
		"id":            m.ID,
		"name":          m.Name,
		"display_order": m.DisplayOrder,
		"published":     m.Published,
		"created_at":    m.CreatedAt.Format(time.RFC3339),
	}
	d := rc.segment.pages.manufacturer
	if d == nil {
		return rec, nil
	}
	if pic, ok := d.pictures[m.PictureID]; ok && pic != nil {
		rec["picture_url"] = pic.URL
	}
	if links := d.products[m.ID]; len(links) > 0 {
		ids := make([]int, len(links))
		for i, pm := range links {
			ids[i] = pm.ProductID
		}
		rec["product_ids"] = ids
	}
	return rec, nil
}

func (rc *runContext) convertCustomer(c *sdk.Customer) (sdk.Record, error) {
	rec := sdk.Record{
		"id":         c.ID,
		"email":      c.Email,
		"username":   c.Username,
		"created_at": c.CreatedAt.Format(time.RFC3339),
	}
	if subs := rc.subscriberEmails(); subs != nil {
		_, subscribed := subs[strings.ToLower(c.Email)]
		rec["newsletter_subscriber"] = subscribed
	}
	d := rc.segment.pages.customer
	if d == nil {
		return rec, nil
	}
	if addrs := d.addresses[c.ID]; len(addrs) > 0 {
		out := make([]map[string]interface{}, len(addrs))
		for i := range addrs {
			out[i] = rc.convertAddress(&addrs[i])
		}
		rec["addresses"] = out
	}
	if attrs := d.attributes[c.ID]; len(attrs) > 0 {
		rec["attributes"] = attrs
	}
	return rec, nil
}

func (rc *runContext) convertSubscription(s *sdk.Subscription) (sdk.Record, error) {
	rec := sdk.Record{
		"id":         s.ID,
		"email":      s.Email,
		"store_id":   s.StoreID,
		"active":     s.Active,
		"created_at": s.CreatedAt.Format(time.RFC3339),
	}
	return rec, nil
}
