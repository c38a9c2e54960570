package exporter

import (
	"fmt"

	"github.com/bedasa/dataport/sdk"
)

// scopeStoreID returns the store scope for queries: the active store for per
// store profiles, otherwise the filter's store
func (rc *runContext) scopeStoreID(store *sdk.Store) int {
	if rc.request.Profile.PerStore {
		return store.ID
	}
	return rc.request.Filter.StoreID
}

func (rc *runContext) query(store *sdk.Store, skip, take int) sdk.SourceQuery {
	return sdk.SourceQuery{
		StoreID:   rc.scopeStoreID(store),
		EntityIDs: rc.request.EntityIDs,
		Filter:    rc.request.Filter,
		Skip:      skip,
		Take:      take,
	}
}

// fetchProducts pulls one product page. Grouped products are expanded into
// their associated products when the projection asks for it; the per segment
// dedup set keeps shared associated products from being emitted twice within
// one segment.
func (e *Exporter) fetchProducts(rc *runContext, store *sdk.Store) pageFetch[*sdk.Product] {
	return func(skip int) ([]*sdk.Product, int, error) {
		page, err := e.source.Products(rc.ctx, rc.query(store, skip, PageSize))
		if err != nil {
			return nil, 0, fmt.Errorf("error fetching products: %w", err)
		}
		result := make([]*sdk.Product, 0, len(page))
		for _, p := range page {
			if p.Type == sdk.GroupedProduct && rc.request.Projection.NoGroupedProducts && !rc.preview {
				associated, err := e.source.AssociatedProducts(rc.ctx, p.ID, rc.scopeStoreID(store))
				if err != nil {
					return nil, 0, fmt.Errorf("error fetching associated products of %d: %w", p.ID, err)
				}
				for _, a := range associated {
					if !rc.segment.seen(a.ID) {
						rc.segment.mark(a.ID)
						result = append(result, a)
					}
				}
				continue
			}
			if !rc.segment.seen(p.ID) {
				rc.segment.mark(p.ID)
				result = append(result, p)
			}
		}
		rc.setProgress(len(page))
		return result, len(page), nil
	}
}

// fetchOrders pulls one order page and records the loaded ids when a post run
// status change is requested
func (e *Exporter) fetchOrders(rc *runContext, store *sdk.Store) pageFetch[*sdk.Order] {
	return func(skip int) ([]*sdk.Order, int, error) {
		page, err := e.source.Orders(rc.ctx, rc.query(store, skip, PageSize))
		if err != nil {
			return nil, 0, fmt.Errorf("error fetching orders: %w", err)
		}
		if rc.request.Projection.OrderStatusChange != "" && rc.request.Projection.OrderStatusChange != sdk.OrderStatusChangeNone {
			ids := make([]int, len(page))
			for i, o := range page {
				ids[i] = o.ID
			}
			rc.markLoaded(ids)
		}
		rc.setProgress(len(page))
		return page, len(page), nil
	}
}

func (e *Exporter) fetchCategories(rc *runContext, store *sdk.Store) pageFetch[*sdk.Category] {
	return func(skip int) ([]*sdk.Category, int, error) {
		page, err := e.source.Categories(rc.ctx, rc.query(store, skip, PageSize))
		if err != nil {
			return nil, 0, fmt.Errorf("error fetching categories: %w", err)
		}
		rc.setProgress(len(page))
		return page, len(page), nil
	}
}

func (e *Exporter) fetchManufacturers(rc *runContext, store *sdk.Store) pageFetch[*sdk.Manufacturer] {
	return func(skip int) ([]*sdk.Manufacturer, int, error) {
		page, err := e.source.Manufacturers(rc.ctx, rc.query(store, skip, PageSize))
		if err != nil {
			return nil, 0, fmt.Errorf("error fetching manufacturers: %w", err)
		}
		rc.setProgress(len(page))
		return page, len(page), nil
	}
}

func (e *Exporter) fetchCustomers(rc *runContext, store *sdk.Store) pageFetch[*sdk.Customer] {
	return func(skip int) ([]*sdk.Customer, int, error) {
		page, err := e.source.Customers(rc.ctx, rc.query(store, skip, PageSize))
		if err != nil {
			return nil, 0, fmt.Errorf("error fetching customers: %w", err)
		}
		rc.setProgress(len(page))
		return page, len(page), nil
	}
}

func (e *Exporter) fetchSubscriptions(rc *runContext, store *sdk.Store) pageFetch[*sdk.Subscription] {
	return func(skip int) ([]*sdk.Subscription, int, error) {
		page, err := e.source.Subscriptions(rc.ctx, rc.query(store, skip, PageSize))
		if err != nil {
			return nil, 0, fmt.Errorf("error fetching subscriptions: %w", err)
		}
		rc.setProgress(len(page))
		return page, len(page), nil
	}
}

// countRecords returns the pre run total for one store's pipeline
func (e *Exporter) countRecords(rc *runContext, store *sdk.Store) (int, error) {
	q := rc.query(store, 0, 0)
	switch rc.request.Provider.EntityType() {
	case sdk.EntityTypeProduct:
		return e.source.ProductCount(rc.ctx, q)
	case sdk.EntityTypeOrder:
		return e.source.OrderCount(rc.ctx, q)
	case sdk.EntityTypeCategory:
		return e.source.CategoryCount(rc.ctx, q)
	case sdk.EntityTypeManufacturer:
		return e.source.ManufacturerCount(rc.ctx, q)
	case sdk.EntityTypeCustomer:
		return e.source.CustomerCount(rc.ctx, q)
	case sdk.EntityTypeSubscription:
		return e.source.SubscriptionCount(rc.ctx, q)
	}
	return 0, fmt.Errorf("unsupported entity type %q", rc.request.Provider.EntityType())
}
