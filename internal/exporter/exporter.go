package exporter

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/bedasa/dataport/internal/deploy"
	"github.com/bedasa/dataport/internal/notify"
	"github.com/bedasa/dataport/internal/profile"
	"github.com/bedasa/dataport/sdk"
	"github.com/pinpt/go-common/v10/fileutil"
	"github.com/pinpt/go-common/v10/log"
)

// DefaultMaxFileNameLength caps resolved file names when the config declares
// no other value
const DefaultMaxFileNameLength = 50

const orderStatusChunkSize = 128

// fileLock guards the export folders. One writer at a time; readers (zip,
// deployment) share.
var fileLock sync.RWMutex

// Config is the exporter configuration
type Config struct {
	// Logger is the base logger, required
	Logger sdk.Logger
	// Source is the data source all entity reads go through, required
	Source sdk.DataSource
	// Profiles persists run results back to the profile, optional
	Profiles profile.Store
	// Publishers are the available deployment publishers, optional
	Publishers []deploy.Publisher
	// Notifier sends completion notifications, optional
	Notifier *notify.CompletionNotifier
	// ExportRoot is the folder all profile folders live under, required
	ExportRoot string
	// MaxFileNameLength caps resolved file names, 0 for the default
	MaxFileNameLength int
}

// Exporter drives segmented entity export runs
type Exporter struct {
	logger            sdk.Logger
	source            sdk.DataSource
	profiles          profile.Store
	publishers        map[sdk.DeploymentType]deploy.Publisher
	notifier          *notify.CompletionNotifier
	exportRoot        string
	maxFileNameLength int
}

// New returns an exporter for the given configuration
func New(config Config) *Exporter {
	maxLen := config.MaxFileNameLength
	if maxLen <= 0 {
		maxLen = DefaultMaxFileNameLength
	}
	publishers := make(map[sdk.DeploymentType]deploy.Publisher)
	for _, p := range config.Publishers {
		publishers[p.Type()] = p
	}
	return &Exporter{
		logger:            config.Logger,
		source:            config.Source,
		profiles:          config.Profiles,
		publishers:        publishers,
		notifier:          config.Notifier,
		exportRoot:        config.ExportRoot,
		maxFileNameLength: maxLen,
	}
}

// validateRequest rejects a request before any data is touched
func (e *Exporter) validateRequest(request *sdk.ExportRequest) error {
	if request == nil || request.Profile == nil {
		return fmt.Errorf("no profile in request")
	}
	if request.Provider == nil {
		return fmt.Errorf("profile %d has no provider", request.Profile.ID)
	}
	if !request.HasPermission {
		return fmt.Errorf("permission denied for profile %d", request.Profile.ID)
	}
	if !request.Provider.EntityType().Valid() {
		return fmt.Errorf("provider %q has unsupported entity type %q", request.Provider.SystemName(), request.Provider.EntityType())
	}
	if err := request.Provider.Validate(); err != nil {
		return fmt.Errorf("provider %q validation failed: %w", request.Provider.SystemName(), err)
	}
	return nil
}

// Export runs a full export for the request and returns the run result. A
// cancelled context is re-raised as the error after bookkeeping completes, so
// the caller still receives the partial result.
func (e *Exporter) Export(ctx context.Context, request *sdk.ExportRequest) (*sdk.ExportResult, error) {
	if err := e.validateRequest(request); err != nil {
		return nil, err
	}
	if !request.Profile.Enabled {
		return nil, fmt.Errorf("profile %d is disabled", request.Profile.ID)
	}
	cfg, err := sdk.DeserializeProviderConfig(request.Provider, request.Profile.ProviderConfig)
	if err != nil {
		return nil, fmt.Errorf("invalid provider config for profile %d: %w", request.Profile.ID, err)
	}
	rc := newRunContext(ctx, request, false)
	rc.execute.Config = cfg
	rc.execute.MaxFileNameLength = e.maxFileNameLength
	if err := e.prepareFolders(rc); err != nil {
		return nil, err
	}
	runLogger, closer, err := newRunLogger(e.logger, filepath.Join(rc.folderRoot, "log.txt"))
	if err != nil {
		return nil, err
	}
	rc.logger = log.With(runLogger, "profile", request.Profile.ID)
	rc.execute.Logger = rc.logger
	for k, v := range request.CustomData {
		rc.execute.CustomProperties[k] = v
	}

	e.exportCoreOuter(rc)

	// best effort teardown, failures are logged and never returned
	rc.cleanup(func(stage string, err error) {
		log.Warn(runLogger, "cleanup failed", "stage", stage, "err", err)
	})
	closer.Close()

	// persist the result before the status mutation runs; a mutation failure
	// is reported on the in memory result only
	if e.profiles != nil {
		request.Profile.ResultInfo = rc.result.Stringify()
		if err := e.profiles.Update(request.Profile); err != nil {
			log.Error(e.logger, "error persisting export result", "profile", request.Profile.ID, "err", err)
		}
	}
	e.applyOrderStatusChange(rc)

	if err := ctx.Err(); err != nil {
		return rc.result, err
	}
	return rc.result, nil
}

// prepareFolders resets the profile's folder layout: stale log and archive
// are deleted and the content folder is cleared
func (e *Exporter) prepareFolders(rc *runContext) error {
	p := rc.request.Profile
	folder := p.FolderName
	if folder == "" {
		folder = fmt.Sprintf("profile-%d", p.ID)
	}
	rc.folderRoot = filepath.Join(e.exportRoot, folder)
	rc.folderContent = filepath.Join(rc.folderRoot, "content")
	rc.fileExtension = rc.request.Provider.FileExtension()
	fileLock.Lock()
	defer fileLock.Unlock()
	os.Remove(filepath.Join(rc.folderRoot, "log.txt"))
	os.Remove(e.zipPath(rc))
	if err := os.RemoveAll(rc.folderContent); err != nil {
		return fmt.Errorf("error clearing content folder: %w", err)
	}
	if err := os.MkdirAll(rc.folderContent, 0700); err != nil {
		return fmt.Errorf("error creating content folder: %w", err)
	}
	return nil
}

func (e *Exporter) zipPath(rc *runContext) string {
	return filepath.Join(rc.folderRoot, filepath.Base(rc.folderRoot)+".zip")
}

// exportCoreOuter drives the whole run: init, the per store pipelines and the
// post run fan out. It never returns an error; failures escalate the abort
// state and are reported through the result.
func (e *Exporter) exportCoreOuter(rc *runContext) {
	p := rc.request.Profile
	log.Info(rc.logger, "starting export",
		"profile", p.Name,
		"provider", rc.request.Provider.SystemName(),
		"entity", rc.request.Provider.EntityType().String(),
		"batch_size", p.BatchSize,
		"per_store", p.PerStore,
	)
	if err := e.loadLookups(rc); err != nil {
		rc.abortHard(fmt.Errorf("error loading lookups: %w", err))
		return
	}
	if err := e.initRun(rc); err != nil {
		rc.abortHard(err)
		return
	}
	fileIndex := 0
	// every store runs its pipeline even after a soft abort, so completion
	// hooks still fire per store; only a hard abort stops the iteration
	for _, store := range storeList(rc.stores) {
		if rc.abortLevel() == sdk.AbortHard {
			break
		}
		e.exportCoreInner(rc, store, &fileIndex)
	}
	if rc.abortLevel() != sdk.AbortHard {
		e.fanOut(rc)
	}
	rc.result.DownloadFileName = downloadName(rc)
	log.Info(rc.logger, "export finished",
		"files", len(rc.result.Files),
		"abort", rc.abortLevel().String(),
		"succeeded", rc.result.Succeeded(),
	)
}

// initRun resolves the store list, the projection context and the per store
// record counts
func (e *Exporter) initRun(rc *runContext) error {
	req := rc.request
	stores, err := e.source.Stores(rc.ctx)
	if err != nil {
		return fmt.Errorf("error fetching stores: %w", err)
	}
	rc.stores = make(map[int]*sdk.Store)
	if req.Profile.PerStore {
		for _, s := range stores {
			if req.Filter.StoreID > 0 && s.ID != req.Filter.StoreID {
				continue
			}
			rc.stores[s.ID] = s
		}
	} else {
		want := req.Projection.StoreID
		if want == 0 {
			want = req.Filter.StoreID
		}
		var picked *sdk.Store
		for _, s := range stores {
			if want > 0 && s.ID == want {
				picked = s
				break
			}
		}
		if picked == nil && want == 0 {
			if req.Ambient.Store != nil {
				picked = req.Ambient.Store
			} else if len(stores) > 0 {
				picked = stores[0]
			}
		}
		if picked == nil {
			return fmt.Errorf("store %d not found", want)
		}
		rc.stores[picked.ID] = picked
	}
	if len(rc.stores) == 0 {
		return fmt.Errorf("no stores resolved")
	}

	if id := req.Projection.LanguageID; id > 0 {
		lang, err := e.source.LanguageByID(rc.ctx, id)
		if err != nil {
			return fmt.Errorf("error fetching language %d: %w", id, err)
		}
		rc.language = lang
	} else {
		rc.language = req.Ambient.Language
	}
	if id := req.Projection.CurrencyID; id > 0 {
		cur, err := e.source.CurrencyByID(rc.ctx, id)
		if err != nil {
			return fmt.Errorf("error fetching currency %d: %w", id, err)
		}
		rc.currency = cur
	} else {
		rc.currency = req.Ambient.Currency
	}
	if id := req.Projection.CustomerID; id > 0 {
		cust, err := e.source.CustomerByID(rc.ctx, id)
		if err != nil {
			return fmt.Errorf("error fetching customer %d: %w", id, err)
		}
		rc.customer = cust
	} else {
		rc.customer = req.Ambient.Customer
	}
	rc.execute.Language = languageRecord(rc.language)
	rc.execute.Currency = currencyRecord(rc.currency)
	rc.execute.Customer = customerRecord(rc.customer)

	for _, store := range rc.stores {
		count, err := e.countRecords(rc, store)
		if err != nil {
			return fmt.Errorf("error counting records for store %d: %w", store.ID, err)
		}
		count -= req.Profile.Offset
		if count < 0 {
			count = 0
		}
		rc.recordsPerStore[store.ID] = count
	}

	// a public filesystem deployment exposes produced files under a public URL
	for _, d := range req.Profile.Deployments {
		if d.Enabled && d.Type == sdk.DeploymentFileSystem && d.IsPublic {
			rc.execute.HasPublicDeployment = true
			rc.publicBaseURL = d.URL
			break
		}
	}
	return nil
}

// loadLookups populates the run scoped lookup cache for the entity type
func (e *Exporter) loadLookups(rc *runContext) error {
	switch rc.request.Provider.EntityType() {
	case sdk.EntityTypeProduct:
		times, err := e.source.DeliveryTimes(rc.ctx)
		if err != nil {
			return err
		}
		byTime := make(map[int]*sdk.DeliveryTime, len(times))
		for _, t := range times {
			byTime[t.ID] = t
		}
		rc.lookups.SetDefault(lookupDeliveryTimes, byTime)
		units, err := e.source.QuantityUnits(rc.ctx)
		if err != nil {
			return err
		}
		byUnit := make(map[int]*sdk.QuantityUnit, len(units))
		for _, u := range units {
			byUnit[u.ID] = u
		}
		rc.lookups.SetDefault(lookupQuantityUnits, byUnit)
		templates, err := e.source.Templates(rc.ctx)
		if err != nil {
			return err
		}
		byTemplate := make(map[int]*sdk.Template, len(templates))
		for _, t := range templates {
			byTemplate[t.ID] = t
		}
		rc.lookups.SetDefault(lookupTemplates, byTemplate)
		if err := e.loadCategoryTree(rc); err != nil {
			return err
		}
	case sdk.EntityTypeCategory:
		if err := e.loadCategoryTree(rc); err != nil {
			return err
		}
	case sdk.EntityTypeOrder:
		countries, err := e.source.Countries(rc.ctx)
		if err != nil {
			return err
		}
		byCountry := make(map[int]*sdk.Country, len(countries))
		for _, c := range countries {
			byCountry[c.ID] = c
		}
		rc.lookups.SetDefault(lookupCountries, byCountry)
	case sdk.EntityTypeCustomer:
		emails, err := e.source.ActiveSubscriberEmails(rc.ctx)
		if err != nil {
			return err
		}
		set := make(map[string]struct{}, len(emails))
		for _, em := range emails {
			set[strings.ToLower(em)] = struct{}{}
		}
		rc.lookups.SetDefault(lookupSubscribers, set)
	}
	return nil
}

func (e *Exporter) loadCategoryTree(rc *runContext) error {
	categories, err := e.source.AllCategories(rc.ctx)
	if err != nil {
		return err
	}
	tree := make(map[int]*sdk.Category, len(categories))
	for _, c := range categories {
		tree[c.ID] = c
	}
	rc.lookups.SetDefault(lookupCategories, tree)
	return nil
}

// exportCoreInner runs one store's pipeline: the segment loop followed by the
// provider's completion hook
func (e *Exporter) exportCoreInner(rc *runContext, store *sdk.Store, fileIndex *int) {
	p := rc.request.Profile
	logger := log.With(rc.logger, "store", store.ID)
	log.Info(logger, "store pipeline starting",
		"store", store.Name,
		"records", rc.recordsPerStore[store.ID],
	)
	rc.execute.Store = storeRecord(store)
	seg, err := e.newSegmenter(rc, store)
	if err != nil {
		rc.abortHard(err)
		return
	}
	defer seg.Dispose()
	rc.execute.Segmenter = seg
	fileBased := rc.fileExtension != ""

	for rc.abortLevel() == sdk.AbortNone && seg.HasData() {
		seg.BeginSegment()
		rc.beginSegment()
		var fname, path string
		if fileBased {
			fname = p.ResolveFileNamePattern(store, *fileIndex, e.maxFileNameLength) + "." + rc.fileExtension
			path = filepath.Join(rc.folderContent, fname)
		}
		rc.execute.FileName = fname
		rc.execute.PublicFileURL = rc.publicFileURL(fname)
		if e.callProvider(rc, logger, "execute", "", path) {
			*fileIndex++
			if fileBased && fileutil.FileExists(path) {
				rc.result.Files = append(rc.result.Files, sdk.ExportFileInfo{StoreID: store.ID, FileName: fname})
			}
		}
		if rc.execute.IsMaxFailures() {
			rc.execute.Abort.Raise(sdk.AbortSoft)
			log.Warn(logger, "max failures reached", "failed", rc.execute.RecordsFailed)
		}
		if rc.ctx.Err() != nil {
			rc.execute.Abort.Raise(sdk.AbortSoft)
		}
	}

	// completion hooks run unless the run aborted hard
	if rc.abortLevel() != sdk.AbortHard {
		streams := rc.execute.ExtraStreams
		if len(streams) == 0 {
			streams = []sdk.ExtraStream{{}}
		}
		for _, s := range streams {
			var fname, path string
			if s.FileName != "" {
				fname = s.FileName
				path = filepath.Join(rc.folderContent, fname)
			}
			rc.execute.FileName = fname
			rc.execute.PublicFileURL = rc.publicFileURL(fname)
			if e.callProvider(rc, logger, "onexecuted", s.ID, path) && s.FileName != "" && fileutil.FileExists(path) {
				rc.result.Files = append(rc.result.Files, sdk.ExportFileInfo{StoreID: store.ID, FileName: fname})
			}
		}
		rc.execute.ExtraStreams = nil
	}
	log.Info(logger, "store pipeline finished", "succeeded", rc.execute.RecordsSucceeded, "failed", rc.execute.RecordsFailed)
}

// callProvider invokes one provider operation against a fresh data sink and
// persists the sink to path on success. Provider panics and errors escalate
// to a hard abort; the sink is always released.
func (e *Exporter) callProvider(rc *runContext, logger sdk.Logger, method string, streamID string, path string) bool {
	sink := new(bytes.Buffer)
	rc.execute.DataStream = sink
	rc.execute.DataStreamID = streamID
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("provider panic in %s: %v", method, r)
			}
		}()
		switch method {
		case "execute":
			err = rc.request.Provider.Execute(rc.ctx, rc.execute)
		default:
			err = rc.request.Provider.OnExecuted(rc.ctx, rc.execute)
		}
	}()
	if err != nil {
		rc.abortHard(fmt.Errorf("provider %s failed: %w", method, err))
	} else if !rc.preview && path != "" && sink.Len() > 0 {
		fileLock.Lock()
		werr := ioutil.WriteFile(path, sink.Bytes(), 0644)
		fileLock.Unlock()
		if werr != nil {
			err = fmt.Errorf("error writing %s: %w", filepath.Base(path), werr)
			rc.abortHard(err)
		} else {
			log.Debug(logger, "wrote data file", "file", filepath.Base(path), "bytes", sink.Len())
		}
	}
	rc.execute.DataStream = nil
	sink.Reset()
	return err == nil
}

// newSegmenter wires the entity specific fetch, enrich and convert closures
// for one store
func (e *Exporter) newSegmenter(rc *runContext, store *sdk.Store) (segmenterProvider, error) {
	p := rc.request.Profile
	total := p.Offset + rc.recordsPerStore[store.ID]
	switch rc.request.Provider.EntityType() {
	case sdk.EntityTypeProduct:
		return newSegmenter[*sdk.Product](e.fetchProducts(rc, store), e.enrichProducts(rc, store), rc.convertProduct, p.Offset, PageSize, p.Limit, p.BatchSize, total), nil
	case sdk.EntityTypeOrder:
		return newSegmenter[*sdk.Order](e.fetchOrders(rc, store), e.enrichOrders(rc), rc.convertOrder, p.Offset, PageSize, p.Limit, p.BatchSize, total), nil
	case sdk.EntityTypeCategory:
		return newSegmenter[*sdk.Category](e.fetchCategories(rc, store), e.enrichCategories(rc), rc.convertCategory, p.Offset, PageSize, p.Limit, p.BatchSize, total), nil
	case sdk.EntityTypeManufacturer:
		return newSegmenter[*sdk.Manufacturer](e.fetchManufacturers(rc, store), e.enrichManufacturers(rc), rc.convertManufacturer, p.Offset, PageSize, p.Limit, p.BatchSize, total), nil
	case sdk.EntityTypeCustomer:
		return newSegmenter[*sdk.Customer](e.fetchCustomers(rc, store), e.enrichCustomers(rc), rc.convertCustomer, p.Offset, PageSize, p.Limit, p.BatchSize, total), nil
	case sdk.EntityTypeSubscription:
		return newSegmenter[*sdk.Subscription](e.fetchSubscriptions(rc, store), nil, rc.convertSubscription, p.Offset, PageSize, p.Limit, p.BatchSize, total), nil
	}
	return nil, fmt.Errorf("unsupported entity type %q", rc.request.Provider.EntityType())
}

// applyOrderStatusChange bulk updates the status of every order the run
// loaded. Runs only for completed order exports; a failure keeps the produced
// files and is reported through the in memory result.
func (e *Exporter) applyOrderStatusChange(rc *runContext) {
	req := rc.request
	if req.Provider.EntityType() != sdk.EntityTypeOrder {
		return
	}
	change := req.Projection.OrderStatusChange
	if change == "" || change == sdk.OrderStatusChangeNone {
		return
	}
	if rc.abortLevel() == sdk.AbortHard || len(rc.loadedIDList) == 0 {
		return
	}
	var status sdk.OrderStatus
	switch change {
	case sdk.OrderStatusChangeProcessing:
		status = sdk.OrderStatusProcessing
	case sdk.OrderStatusChangeComplete:
		status = sdk.OrderStatusComplete
	default:
		log.Warn(e.logger, "unknown order status change", "change", string(change))
		return
	}
	var updated int
	ids := rc.loadedIDList
	for len(ids) > 0 {
		n := orderStatusChunkSize
		if n > len(ids) {
			n = len(ids)
		}
		count, err := e.source.SetOrderStatus(rc.ctx, ids[:n], status)
		if err != nil {
			rc.result.LastError = fmt.Sprintf("error updating order status: %v", err)
			log.Error(e.logger, "error updating order status", "err", err, "updated", updated)
			return
		}
		updated += count
		ids = ids[n:]
	}
	log.Info(e.logger, "updated order status", "status", int(status), "count", updated)
}

// downloadName suggests a download file name for a clean run: the plural
// entity name plus the selection suffix, with the extension of the first
// produced file. Empty when the run failed or produced nothing.
func downloadName(rc *runContext) string {
	if !rc.result.Succeeded() || len(rc.result.Files) == 0 {
		return ""
	}
	var prefix string
	switch rc.request.Provider.EntityType() {
	case sdk.EntityTypeProduct:
		prefix = "products"
	case sdk.EntityTypeOrder:
		prefix = "orders"
	case sdk.EntityTypeCategory:
		prefix = "categories"
	case sdk.EntityTypeManufacturer:
		prefix = "manufacturers"
	case sdk.EntityTypeCustomer:
		prefix = "customers"
	case sdk.EntityTypeSubscription:
		prefix = "newsletter-subscriptions"
	default:
		prefix = rc.request.Provider.EntityType().String()
	}
	suffix := "all"
	switch n := len(rc.request.EntityIDs); {
	case n == 1:
		suffix = strconv.Itoa(rc.request.EntityIDs[0])
	case n > 1:
		suffix = "selected"
	}
	return prefix + "-" + suffix + filepath.Ext(rc.result.Files[0].FileName)
}

func storeRecord(s *sdk.Store) sdk.Record {
	if s == nil {
		return nil
	}
	return sdk.Record{"id": s.ID, "name": s.Name, "url": s.URL, "seo_name": s.SeoName}
}

func languageRecord(l *sdk.Language) sdk.Record {
	if l == nil {
		return nil
	}
	return sdk.Record{"id": l.ID, "code": l.Code, "name": l.Name}
}

func currencyRecord(c *sdk.Currency) sdk.Record {
	if c == nil {
		return nil
	}
	return sdk.Record{"id": c.ID, "code": c.Code, "rate": c.Rate, "name": c.Name}
}

func customerRecord(c *sdk.Customer) sdk.Record {
	if c == nil {
		return nil
	}
	return sdk.Record{"id": c.ID, "email": c.Email, "username": c.Username}
}
