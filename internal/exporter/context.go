package exporter

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bedasa/dataport/sdk"
	cache "github.com/patrickmn/go-cache"
	"github.com/pinpt/go-common/v10/log"
)

// lookup cache keys, all run scoped
const (
	lookupDeliveryTimes = "deliverytimes"
	lookupQuantityUnits = "quantityunits"
	lookupTemplates     = "templates"
	lookupCountries     = "countries"
	lookupCategories    = "categories"
	lookupSubscribers   = "subscribers"
	lookupCategoryPath  = "categorypath:"
)

// pageData holds the side data prefetched for the current page, one bucket
// per entity type. A run never holds side data for more than one page; the
// bucket is released at every segment boundary.
type pageData struct {
	product      *productPageData
	order        *orderPageData
	category     *categoryPageData
	manufacturer *manufacturerPageData
	customer     *customerPageData
}

func (d *pageData) clear() {
	d.product = nil
	d.order = nil
	d.category = nil
	d.manufacturer = nil
	d.customer = nil
}

type productPageData struct {
	attributes    map[int][]sdk.ProductAttribute
	tierPrices    map[int][]sdk.TierPrice
	categories    map[int][]sdk.ProductCategory
	manufacturers map[int][]sdk.ProductManufacturer
	pictures      map[int][]sdk.Picture
	tags          map[int][]string
	discounts     map[int][]sdk.Discount
}

type orderPageData struct {
	customers    map[int]*sdk.Customer
	rewardPoints map[int]int
	addresses    map[int]*sdk.Address
	items        map[int][]sdk.OrderItem
	shipments    map[int][]sdk.Shipment
}

type categoryPageData struct {
	products map[int][]sdk.ProductCategory
	pictures map[int]*sdk.Picture
}

type manufacturerPageData struct {
	products map[int][]sdk.ProductManufacturer
	pictures map[int]*sdk.Picture
}

type customerPageData struct {
	addresses  map[int][]sdk.Address
	attributes map[int]map[string]string
}

// segmentState is the segment scoped slice of the run: the dedup set of
// entity ids already emitted within the current segment plus the current
// page's side data. Dropped and reinitialized at every segment boundary.
type segmentState struct {
	entityIDs map[int]struct{}
	pages     pageData
}

func newSegmentState() *segmentState {
	return &segmentState{entityIDs: make(map[int]struct{})}
}

func (s *segmentState) seen(id int) bool {
	_, ok := s.entityIDs[id]
	return ok
}

func (s *segmentState) mark(id int) {
	s.entityIDs[id] = struct{}{}
}

// runContext owns all mutable state of one export or preview invocation. It
// is exclusively owned by the pipeline for the duration of the call.
type runContext struct {
	ctx     context.Context
	request *sdk.ExportRequest
	logger  sdk.Logger
	result  *sdk.ExportResult
	execute *sdk.ExecuteContext
	preview bool

	stores    map[int]*sdk.Store
	languages map[int]*sdk.Language
	language  *sdk.Language
	currency  *sdk.Currency
	customer  *sdk.Customer

	// recordsPerStore holds the pre run total per resolved store, after the
	// profile offset, used only for progress reporting
	recordsPerStore map[int]int
	recordCount     int

	// loadedIDs is the cumulative, append-only set of entity ids read across
	// the whole run; populated only when a post run status mutation is
	// requested
	loadedIDs    map[int]struct{}
	loadedIDList []int

	// lookups caches the run scoped global tables (templates, delivery
	// times, quantity units, category tree, countries, subscriber emails)
	lookups *cache.Cache

	// segment is the segment scoped state, reset at every segment boundary
	segment *segmentState

	folderRoot    string
	folderContent string
	fileExtension string
	publicBaseURL string
}

// publicFileURL returns the public URL of a produced file when a public
// filesystem deployment is configured
func (rc *runContext) publicFileURL(fname string) string {
	if !rc.execute.HasPublicDeployment || rc.publicBaseURL == "" || fname == "" {
		return ""
	}
	return strings.TrimRight(rc.publicBaseURL, "/") + "/" + fname
}

func newRunContext(ctx context.Context, req *sdk.ExportRequest, preview bool) *runContext {
	rc := &runContext{
		ctx:             ctx,
		request:         req,
		result:          &sdk.ExportResult{},
		preview:         preview,
		recordsPerStore: make(map[int]int),
		loadedIDs:       make(map[int]struct{}),
		lookups:         cache.New(cache.NoExpiration, 0),
		segment:         newSegmentState(),
	}
	rc.execute = &sdk.ExecuteContext{
		ProfileID:        req.Profile.ID,
		ProfileName:      req.Profile.Name,
		MaxFailures:      req.Profile.MaxFailures,
		CustomProperties: make(map[string]interface{}),
		Preview:          preview,
		Abort:            &sdk.AbortState{},
	}
	return rc
}

func (rc *runContext) abortLevel() sdk.Abortion {
	return rc.execute.Abort.Level()
}

// abortHard escalates to a hard abort and records err as the run's last error
func (rc *runContext) abortHard(err error) {
	rc.execute.Abort.Raise(sdk.AbortHard)
	rc.result.LastError = err.Error()
	if rc.logger != nil {
		log.Error(rc.logger, "export aborted", "err", err)
	}
}

// markLoaded records entity ids into the cumulative loaded set, append-only
// for the run's duration
func (rc *runContext) markLoaded(ids []int) {
	for _, id := range ids {
		if _, ok := rc.loadedIDs[id]; !ok {
			rc.loadedIDs[id] = struct{}{}
			rc.loadedIDList = append(rc.loadedIDList, id)
		}
	}
}

// beginSegment drops the segment scoped state: the per segment dedup set is
// cleared exactly once per segment boundary and the retained page side data
// is released with it
func (rc *runContext) beginSegment() {
	rc.segment = newSegmentState()
	rc.execute.RecordsSucceeded = 0
}

// setProgress reports loaded records to the request's progress callback. A
// panicking callback never aborts the run; the failure is routed to the log
// sink instead.
func (rc *runContext) setProgress(loaded int) {
	if rc.preview || loaded <= 0 || rc.request.Progress == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil && rc.logger != nil {
			log.Warn(rc.logger, "progress callback failed", "err", r)
		}
	}()
	total := 0
	for _, n := range rc.recordsPerStore {
		total += n
	}
	if limit := rc.request.Profile.Limit; limit > 0 && total > limit {
		total = limit
	}
	rc.recordCount += loaded
	if rc.recordCount > total {
		rc.recordCount = total
	}
	msg := fmt.Sprintf("processed %d of %d records", rc.recordCount, total)
	rc.request.Progress(rc.recordCount, total, msg)
}

// setProgressMessage reports a stage description without counts
func (rc *runContext) setProgressMessage(msg string) {
	if rc.preview || msg == "" || rc.request.Progress == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil && rc.logger != nil {
			log.Warn(rc.logger, "progress callback failed", "err", r)
		}
	}()
	rc.request.Progress(0, 0, msg)
}

// storeList returns the resolved stores in a stable, deterministic order
func storeList(stores map[int]*sdk.Store) []*sdk.Store {
	out := make([]*sdk.Store, 0, len(stores))
	for _, s := range stores {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// cleanupFunc receives best-effort cleanup failures; they are logged and
// never abort the run
type cleanupFunc func(stage string, err error)

// cleanup releases everything the run cached: lookup tables, segment state,
// request scoped custom data and the logger handle. Failures go to sink.
func (rc *runContext) cleanup(sink cleanupFunc) {
	func() {
		defer func() {
			if r := recover(); r != nil {
				sink("lookups", fmt.Errorf("%v", r))
			}
		}()
		rc.lookups.Flush()
	}()
	rc.segment = newSegmentState()
	for k := range rc.execute.CustomProperties {
		delete(rc.execute.CustomProperties, k)
	}
	rc.execute.Logger = nil
	rc.logger = nil
}
