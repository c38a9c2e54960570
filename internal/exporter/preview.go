package exporter

import (
	"context"
	"fmt"
	"time"

	"github.com/bedasa/dataport/sdk"
)

// previewTimeout bounds a preview run; previews are interactive and must not
// hang on a slow source
const previewTimeout = 5 * time.Minute

// Preview reads one page of converted records without touching files,
// deployments or notifications. pageIndex selects the page after the
// profile's offset; totalRecordsHint skips the count query when the caller
// already knows the total (pass a negative hint to force counting).
func (e *Exporter) Preview(ctx context.Context, request *sdk.ExportRequest, pageIndex int, totalRecordsHint int) ([]sdk.Record, error) {
	if err := e.validateRequest(request); err != nil {
		return nil, err
	}
	if pageIndex < 0 {
		pageIndex = 0
	}
	ctx, cancel := context.WithTimeout(ctx, previewTimeout)
	defer cancel()
	rc := newRunContext(ctx, request, true)
	rc.logger = e.logger
	rc.execute.Logger = rc.logger
	cfg, err := sdk.DeserializeProviderConfig(request.Provider, request.Profile.ProviderConfig)
	if err != nil {
		return nil, fmt.Errorf("invalid provider config for profile %d: %w", request.Profile.ID, err)
	}
	rc.execute.Config = cfg
	if err := e.loadLookups(rc); err != nil {
		return nil, fmt.Errorf("error loading lookups: %w", err)
	}
	if err := e.initRun(rc); err != nil {
		return nil, err
	}
	store := storeList(rc.stores)[0]
	rc.execute.Store = storeRecord(store)

	total := totalRecordsHint
	if total < 0 {
		count, err := e.countRecords(rc, store)
		if err != nil {
			return nil, fmt.Errorf("error counting records: %w", err)
		}
		total = count
	} else {
		total += request.Profile.Offset
	}

	p := request.Profile
	offset := p.Offset + pageIndex*PageSize
	fetch, enrich, convert := e.previewClosures(rc, store)
	seg := newSegmenter[interface{}](fetch, enrich, convert, offset, PageSize, PageSize, 0, total)
	defer seg.Dispose()

	records := make([]sdk.Record, 0, PageSize)
	for seg.HasData() {
		ok, err := seg.ReadNextSegment()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		records = append(records, seg.CurrentSegment()...)
	}
	return records, nil
}

// previewClosures adapts the typed closures of the entity type to a single
// untyped pipeline, since a preview only drains one page
func (e *Exporter) previewClosures(rc *runContext, store *sdk.Store) (pageFetch[interface{}], pageEnrich[interface{}], entityConvert[interface{}]) {
	switch rc.request.Provider.EntityType() {
	case sdk.EntityTypeProduct:
		return adaptClosures(e.fetchProducts(rc, store), e.enrichProducts(rc, store), rc.convertProduct)
	case sdk.EntityTypeOrder:
		return adaptClosures(e.fetchOrders(rc, store), e.enrichOrders(rc), rc.convertOrder)
	case sdk.EntityTypeCategory:
		return adaptClosures(e.fetchCategories(rc, store), e.enrichCategories(rc), rc.convertCategory)
	case sdk.EntityTypeManufacturer:
		return adaptClosures(e.fetchManufacturers(rc, store), e.enrichManufacturers(rc), rc.convertManufacturer)
	case sdk.EntityTypeCustomer:
		return adaptClosures(e.fetchCustomers(rc, store), e.enrichCustomers(rc), rc.convertCustomer)
	default:
		return adaptClosures(e.fetchSubscriptions(rc, store), nil, rc.convertSubscription)
	}
}

func adaptClosures[T any](fetch pageFetch[T], enrich pageEnrich[T], convert entityConvert[T]) (pageFetch[interface{}], pageEnrich[interface{}], entityConvert[interface{}]) {
	f := func(skip int) ([]interface{}, int, error) {
		items, raw, err := fetch(skip)
		if err != nil {
			return nil, 0, err
		}
		out := make([]interface{}, len(items))
		for i, item := range items {
			out[i] = item
		}
		return out, raw, nil
	}
	var en pageEnrich[interface{}]
	if enrich != nil {
		en = func(items []interface{}) error {
			typed := make([]T, len(items))
			for i, item := range items {
				typed[i] = item.(T)
			}
			return enrich(typed)
		}
	}
	c := func(item interface{}) (sdk.Record, error) {
		return convert(item.(T))
	}
	return f, en, c
}

// DataCount returns the total number of records the request would export,
// after the profile's offset and limit
func (e *Exporter) DataCount(ctx context.Context, request *sdk.ExportRequest) (int, error) {
	if err := e.validateRequest(request); err != nil {
		return 0, err
	}
	rc := newRunContext(ctx, request, true)
	rc.logger = e.logger
	if err := e.initRun(rc); err != nil {
		return 0, err
	}
	total := 0
	for _, n := range rc.recordsPerStore {
		total += n
	}
	if limit := request.Profile.Limit; limit > 0 && total > limit {
		total = limit
	}
	return total, nil
}
