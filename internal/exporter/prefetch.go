package exporter

import (
	"fmt"

	"github.com/bedasa/dataport/sdk"
)

// The prefetchers batch load all side data for one page in a fixed number of
// round trips and park it on the segment state. Converters then resolve per
// record side data from memory only. The fetcher list per entity type is
// fixed; providers cannot subscribe to subsets.

func (e *Exporter) enrichProducts(rc *runContext, store *sdk.Store) pageEnrich[*sdk.Product] {
	return func(page []*sdk.Product) error {
		rc.segment.pages.product = nil
		if len(page) == 0 {
			return nil
		}
		ids := make([]int, len(page))
		for i, p := range page {
			ids[i] = p.ID
		}
		d := &productPageData{}
		var err error
		if d.attributes, err = e.source.ProductAttributes(rc.ctx, ids); err != nil {
			return fmt.Errorf("error fetching product attributes: %w", err)
		}
		if d.tierPrices, err = e.source.TierPrices(rc.ctx, ids, rc.request.Projection.CustomerID, rc.scopeStoreID(store)); err != nil {
			return fmt.Errorf("error fetching tier prices: %w", err)
		}
		if d.categories, err = e.source.ProductCategories(rc.ctx, ids); err != nil {
			return fmt.Errorf("error fetching product categories: %w", err)
		}
		if d.manufacturers, err = e.source.ProductManufacturers(rc.ctx, ids); err != nil {
			return fmt.Errorf("error fetching product manufacturers: %w", err)
		}
		if d.pictures, err = e.source.ProductPictures(rc.ctx, ids); err != nil {
			return fmt.Errorf("error fetching product pictures: %w", err)
		}
		if d.tags, err = e.source.ProductTags(rc.ctx, ids); err != nil {
			return fmt.Errorf("error fetching product tags: %w", err)
		}
		if d.discounts, err = e.source.AppliedDiscounts(rc.ctx, ids); err != nil {
			return fmt.Errorf("error fetching product discounts: %w", err)
		}
		rc.segment.pages.product = d
		return nil
	}
}

func (e *Exporter) enrichOrders(rc *runContext) pageEnrich[*sdk.Order] {
	return func(page []*sdk.Order) error {
		rc.segment.pages.order = nil
		if len(page) == 0 {
			return nil
		}
		orderIDs := make([]int, len(page))
		customerIDs := make([]int, 0, len(page))
		addressIDs := make([]int, 0, len(page)*2)
		seenCustomer := make(map[int]struct{}, len(page))
		seenAddress := make(map[int]struct{}, len(page)*2)
		for i, o := range page {
			orderIDs[i] = o.ID
			if _, ok := seenCustomer[o.CustomerID]; !ok && o.CustomerID > 0 {
				seenCustomer[o.CustomerID] = struct{}{}
				customerIDs = append(customerIDs, o.CustomerID)
			}
			for _, id := range []int{o.BillingAddressID, o.ShippingAddressID} {
				if _, ok := seenAddress[id]; !ok && id > 0 {
					seenAddress[id] = struct{}{}
					addressIDs = append(addressIDs, id)
				}
			}
		}
		d := &orderPageData{}
		var err error
		if d.customers, err = e.source.CustomersByIDs(rc.ctx, customerIDs); err != nil {
			return fmt.Errorf("error fetching order customers: %w", err)
		}
		if d.rewardPoints, err = e.source.RewardPoints(rc.ctx, customerIDs); err != nil {
			return fmt.Errorf("error fetching reward points: %w", err)
		}
		if d.addresses, err = e.source.AddressesByIDs(rc.ctx, addressIDs); err != nil {
			return fmt.Errorf("error fetching order addresses: %w", err)
		}
		if d.items, err = e.source.OrderItems(rc.ctx, orderIDs); err != nil {
			return fmt.Errorf("error fetching order items: %w", err)
		}
		if d.shipments, err = e.source.Shipments(rc.ctx, orderIDs); err != nil {
			return fmt.Errorf("error fetching shipments: %w", err)
		}
		rc.segment.pages.order = d
		return nil
	}
}

func (e *Exporter) enrichCategories(rc *runContext) pageEnrich[*sdk.Category] {
	return func(page []*sdk.Category) error {
		rc.segment.pages.category = nil
		if len(page) == 0 {
			return nil
		}
		ids := make([]int, len(page))
		pictureIDs := make([]int, 0, len(page))
		for i, c := range page {
			ids[i] = c.ID
			if c.PictureID > 0 {
				pictureIDs = append(pictureIDs, c.PictureID)
			}
		}
		d := &categoryPageData{}
		var err error
		if d.products, err = e.source.CategoryProducts(rc.ctx, ids); err != nil {
			return fmt.Errorf("error fetching category products: %w", err)
		}
		if d.pictures, err = e.source.CategoryPictures(rc.ctx, pictureIDs); err != nil {
			return fmt.Errorf("error fetching category pictures: %w", err)
		}
		rc.segment.pages.category = d
		return nil
	}
}

func (e *Exporter) enrichManufacturers(rc *runContext) pageEnrich[*sdk.Manufacturer] {
	return func(page []*sdk.Manufacturer) error {
		rc.segment.pages.manufacturer = nil
		if len(page) == 0 {
			return nil
		}
		ids := make([]int, len(page))
		pictureIDs := make([]int, 0, len(page))
		for i, m := range page {
			ids[i] = m.ID
			if m.PictureID > 0 {
				pictureIDs = append(pictureIDs, m.PictureID)
			}
		}
		d := &manufacturerPageData{}
		var err error
		if d.products, err = e.source.ManufacturerProducts(rc.ctx, ids); err != nil {
			return fmt.Errorf("error fetching manufacturer products: %w", err)
		}
		if d.pictures, err = e.source.ManufacturerPictures(rc.ctx, pictureIDs); err != nil {
			return fmt.Errorf("error fetching manufacturer pictures: %w", err)
		}
		rc.segment.pages.manufacturer = d
		return nil
	}
}

func (e *Exporter) enrichCustomers(rc *runContext) pageEnrich[*sdk.Customer] {
	return func(page []*sdk.Customer) error {
		rc.segment.pages.customer = nil
		if len(page) == 0 {
			return nil
		}
		ids := make([]int, len(page))
		for i, c := range page {
			ids[i] = c.ID
		}
		d := &customerPageData{}
		var err error
		if d.addresses, err = e.source.CustomerAddresses(rc.ctx, ids); err != nil {
			return fmt.Errorf("error fetching customer addresses: %w", err)
		}
		if d.attributes, err = e.source.CustomerAttributes(rc.ctx, ids); err != nil {
			return fmt.Errorf("error fetching customer attributes: %w", err)
		}
		rc.segment.pages.customer = d
		return nil
	}
}
