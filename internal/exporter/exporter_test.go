package exporter

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bedasa/dataport/internal/deploy"
	"github.com/bedasa/dataport/sdk"
	"github.com/pinpt/go-common/v10/log"
	"github.com/stretchr/testify/assert"
)

// fakeSource is an in memory data source producing synthetic entities with
// sequential ids per store
type fakeSource struct {
	productsPerStore map[int]int
	ordersPerStore   map[int]int
	stores           []*sdk.Store
	productFetches   int
	orderFetches     int
	statusCalls      [][]int
	statusErr        error
	setStatus        sdk.OrderStatus
	grouped          map[int]bool
	associated       map[int][]*sdk.Product
}

var _ sdk.DataSource = (*fakeSource)(nil)

func newFakeSource() *fakeSource {
	return &fakeSource{
		productsPerStore: map[int]int{},
		ordersPerStore:   map[int]int{},
		stores: []*sdk.Store{
			{ID: 1, Name: "main", SeoName: "main", URL: "https://shop.example.com"},
		},
		grouped:    map[int]bool{},
		associated: map[int][]*sdk.Product{},
	}
}

func pageWindow(count, skip, take int) (int, int) {
	if skip >= count {
		return 0, 0
	}
	n := count - skip
	if take > 0 && n > take {
		n = take
	}
	return skip, n
}

func (s *fakeSource) Products(ctx context.Context, q sdk.SourceQuery) ([]*sdk.Product, error) {
	s.productFetches++
	start, n := pageWindow(s.productsPerStore[q.StoreID], q.Skip, q.Take)
	out := make([]*sdk.Product, 0, n)
	for i := 0; i < n; i++ {
		p := &sdk.Product{ID: start + i + 1, Name: fmt.Sprintf("product-%d", start+i+1), Price: 10}
		if s.grouped[p.ID] {
			p.Type = sdk.GroupedProduct
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *fakeSource) ProductCount(ctx context.Context, q sdk.SourceQuery) (int, error) {
	return s.productsPerStore[q.StoreID], nil
}

func (s *fakeSource) AssociatedProducts(ctx context.Context, parentID, storeID int) ([]*sdk.Product, error) {
	return s.associated[parentID], nil
}

func (s *fakeSource) ProductAttributes(ctx context.Context, ids []int) (map[int][]sdk.ProductAttribute, error) {
	return map[int][]sdk.ProductAttribute{}, nil
}

func (s *fakeSource) TierPrices(ctx context.Context, ids []int, customerID, storeID int) (map[int][]sdk.TierPrice, error) {
	return map[int][]sdk.TierPrice{}, nil
}

func (s *fakeSource) ProductCategories(ctx context.Context, ids []int) (map[int][]sdk.ProductCategory, error) {
	return map[int][]sdk.ProductCategory{}, nil
}

func (s *fakeSource) ProductManufacturers(ctx context.Context, ids []int) (map[int][]sdk.ProductManufacturer, error) {
	return map[int][]sdk.ProductManufacturer{}, nil
}

func (s *fakeSource) ProductPictures(ctx context.Context, ids []int) (map[int][]sdk.Picture, error) {
	return map[int][]sdk.Picture{}, nil
}

func (s *fakeSource) ProductTags(ctx context.Context, ids []int) (map[int][]string, error) {
	return map[int][]string{}, nil
}

func (s *fakeSource) AppliedDiscounts(ctx context.Context, ids []int) (map[int][]sdk.Discount, error) {
	return map[int][]sdk.Discount{}, nil
}

func (s *fakeSource) Orders(ctx context.Context, q sdk.SourceQuery) ([]*sdk.Order, error) {
	s.orderFetches++
	start, n := pageWindow(s.ordersPerStore[q.StoreID], q.Skip, q.Take)
	out := make([]*sdk.Order, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &sdk.Order{ID: start + i + 1, Number: fmt.Sprintf("ORD-%d", start+i+1), Status: sdk.OrderStatusPending, Total: 99})
	}
	return out, nil
}

func (s *fakeSource) OrderCount(ctx context.Context, q sdk.SourceQuery) (int, error) {
	return s.ordersPerStore[q.StoreID], nil
}

func (s *fakeSource) CustomersByIDs(ctx context.Context, ids []int) (map[int]*sdk.Customer, error) {
	return map[int]*sdk.Customer{}, nil
}

func (s *fakeSource) AddressesByIDs(ctx context.Context, ids []int) (map[int]*sdk.Address, error) {
	return map[int]*sdk.Address{}, nil
}

func (s *fakeSource) OrderItems(ctx context.Context, ids []int) (map[int][]sdk.OrderItem, error) {
	return map[int][]sdk.OrderItem{}, nil
}

func (s *fakeSource) Shipments(ctx context.Context, ids []int) (map[int][]sdk.Shipment, error) {
	return map[int][]sdk.Shipment{}, nil
}

func (s *fakeSource) RewardPoints(ctx context.Context, ids []int) (map[int]int, error) {
	return map[int]int{}, nil
}

func (s *fakeSource) SetOrderStatus(ctx context.Context, ids []int, status sdk.OrderStatus) (int, error) {
	if s.statusErr != nil {
		return 0, s.statusErr
	}
	cp := make([]int, len(ids))
	copy(cp, ids)
	s.statusCalls = append(s.statusCalls, cp)
	s.setStatus = status
	return len(ids), nil
}

func (s *fakeSource) Categories(ctx context.Context, q sdk.SourceQuery) ([]*sdk.Category, error) {
	return nil, nil
}

func (s *fakeSource) CategoryCount(ctx context.Context, q sdk.SourceQuery) (int, error) {
	return 0, nil
}

func (s *fakeSource) CategoryProducts(ctx context.Context, ids []int) (map[int][]sdk.ProductCategory, error) {
	return map[int][]sdk.ProductCategory{}, nil
}

func (s *fakeSource) CategoryPictures(ctx context.Context, ids []int) (map[int]*sdk.Picture, error) {
	return map[int]*sdk.Picture{}, nil
}

func (s *fakeSource) Manufacturers(ctx context.Context, q sdk.SourceQuery) ([]*sdk.Manufacturer, error) {
	return nil, nil
}

func (s *fakeSource) ManufacturerCount(ctx context.Context, q sdk.SourceQuery) (int, error) {
	return 0, nil
}

func (s *fakeSource) ManufacturerProducts(ctx context.Context, ids []int) (map[int][]sdk.ProductManufacturer, error) {
	return map[int][]sdk.ProductManufacturer{}, nil
}

func (s *fakeSource) ManufacturerPictures(ctx context.Context, ids []int) (map[int]*sdk.Picture, error) {
	return map[int]*sdk.Picture{}, nil
}

func (s *fakeSource) Customers(ctx context.Context, q sdk.SourceQuery) ([]*sdk.Customer, error) {
	return nil, nil
}

func (s *fakeSource) CustomerCount(ctx context.Context, q sdk.SourceQuery) (int, error) {
	return 0, nil
}

func (s *fakeSource) CustomerAddresses(ctx context.Context, ids []int) (map[int][]sdk.Address, error) {
	return map[int][]sdk.Address{}, nil
}

func (s *fakeSource) CustomerAttributes(ctx context.Context, ids []int) (map[int]map[string]string, error) {
	return map[int]map[string]string{}, nil
}

func (s *fakeSource) Subscriptions(ctx context.Context, q sdk.SourceQuery) ([]*sdk.Subscription, error) {
	return nil, nil
}

func (s *fakeSource) SubscriptionCount(ctx context.Context, q sdk.SourceQuery) (int, error) {
	return 0, nil
}

func (s *fakeSource) ActiveSubscriberEmails(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (s *fakeSource) Stores(ctx context.Context) ([]*sdk.Store, error) {
	return s.stores, nil
}

func (s *fakeSource) Languages(ctx context.Context) ([]*sdk.Language, error) {
	return nil, nil
}

func (s *fakeSource) LanguageByID(ctx context.Context, id int) (*sdk.Language, error) {
	return &sdk.Language{ID: id, Code: "en"}, nil
}

func (s *fakeSource) CurrencyByID(ctx context.Context, id int) (*sdk.Currency, error) {
	return &sdk.Currency{ID: id, Code: "EUR", Rate: 2}, nil
}

func (s *fakeSource) CustomerByID(ctx context.Context, id int) (*sdk.Customer, error) {
	return &sdk.Customer{ID: id}, nil
}

func (s *fakeSource) DeliveryTimes(ctx context.Context) ([]*sdk.DeliveryTime, error) {
	return nil, nil
}

func (s *fakeSource) QuantityUnits(ctx context.Context) ([]*sdk.QuantityUnit, error) {
	return nil, nil
}

func (s *fakeSource) Templates(ctx context.Context) ([]*sdk.Template, error) {
	return nil, nil
}

func (s *fakeSource) Countries(ctx context.Context) ([]*sdk.Country, error) {
	return nil, nil
}

func (s *fakeSource) AllCategories(ctx context.Context) ([]*sdk.Category, error) {
	return nil, nil
}

// fakeProvider serializes each record as one line and tracks invocations
type fakeProvider struct {
	entity       sdk.EntityType
	extension    string
	features     sdk.Feature
	executes     int
	onExecuted   int
	records      int
	segmentSizes []int
	failOnCall   int
	panicOnCall  int
	failRecords  int
	extraStream  bool
	cancelAfter  context.CancelFunc
	lastConfig   interface{}
}

var _ sdk.Provider = (*fakeProvider)(nil)

func (p *fakeProvider) SystemName() string { return "fake" }

func (p *fakeProvider) EntityType() sdk.EntityType { return p.entity }

func (p *fakeProvider) FileExtension() string { return p.extension }

func (p *fakeProvider) Features() sdk.Feature { return p.features }

func (p *fakeProvider) ConfigSchema() interface{} { return nil }

func (p *fakeProvider) Validate() error { return nil }

func (p *fakeProvider) Execute(ctx context.Context, ec *sdk.ExecuteContext) error {
	p.executes++
	p.lastConfig = ec.Config
	if p.failOnCall == p.executes {
		return errors.New("serialization failed")
	}
	if p.panicOnCall == p.executes {
		panic("kaput")
	}
	segment := 0
	for {
		ok, err := ec.Segmenter.ReadNextSegment()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		for _, rec := range ec.Segmenter.CurrentSegment() {
			fmt.Fprintf(ec.DataStream, "%d\n", rec.EntityID())
			ec.RecordsSucceeded++
			p.records++
			segment++
		}
	}
	p.segmentSizes = append(p.segmentSizes, segment)
	if p.failRecords > 0 {
		ec.RecordsFailed += p.failRecords
	}
	if p.extraStream && len(ec.ExtraStreams) == 0 {
		ec.ExtraStreams = append(ec.ExtraStreams, sdk.ExtraStream{ID: "manifest", FileName: "manifest.txt"})
	}
	if p.cancelAfter != nil {
		p.cancelAfter()
	}
	return nil
}

func (p *fakeProvider) OnExecuted(ctx context.Context, ec *sdk.ExecuteContext) error {
	p.onExecuted++
	if ec.DataStreamID == "manifest" {
		fmt.Fprintf(ec.DataStream, "records=%d\n", p.records)
	}
	return nil
}

// fakePublisher records publish calls and optionally fails
type fakePublisher struct {
	typ    sdk.DeploymentType
	calls  int
	files  []string
	failed bool
	err    error
}

var _ deploy.Publisher = (*fakePublisher)(nil)

func (p *fakePublisher) Type() sdk.DeploymentType { return p.typ }

func (p *fakePublisher) Publish(ctx context.Context, dc *deploy.Context) error {
	p.calls++
	for _, fn := range dc.Files {
		p.files = append(p.files, filepath.Base(fn))
	}
	if p.err != nil {
		p.failed = true
		return p.err
	}
	return nil
}

func newTestExporter(t *testing.T, source *fakeSource, publishers ...deploy.Publisher) *Exporter {
	t.Helper()
	return New(Config{
		Logger:     log.NewNoOpTestLogger(),
		Source:     source,
		Publishers: publishers,
		ExportRoot: t.TempDir(),
	})
}

func newTestRequest(provider sdk.Provider, p *sdk.Profile) *sdk.ExportRequest {
	if p.FolderName == "" {
		p.FolderName = "test-profile"
	}
	if p.SeoName == "" {
		p.SeoName = "test"
	}
	p.Enabled = true
	return &sdk.ExportRequest{
		Provider:      provider,
		Profile:       p,
		HasPermission: true,
	}
}

func TestExportSingleSegment(t *testing.T) {
	assert := assert.New(t)
	source := newFakeSource()
	source.productsPerStore[0] = 250
	provider := &fakeProvider{entity: sdk.EntityTypeProduct, extension: "csv"}
	e := newTestExporter(t, source)
	request := newTestRequest(provider, &sdk.Profile{ID: 1, Name: "products"})
	result, err := e.Export(context.Background(), request)
	assert.NoError(err)
	assert.True(result.Succeeded())
	// batch size 0 means the whole run is one provider invocation
	assert.Equal(1, provider.executes)
	assert.Equal(1, provider.onExecuted)
	assert.Equal(250, provider.records)
	assert.Equal(3, source.productFetches)
	assert.Len(result.Files, 1)
	buf, err := ioutil.ReadFile(filepath.Join(e.exportRoot, "test-profile", "content", result.Files[0].FileName))
	assert.NoError(err)
	assert.Equal(250, strings.Count(string(buf), "\n"))
}

func TestExportSegmented(t *testing.T) {
	assert := assert.New(t)
	source := newFakeSource()
	source.productsPerStore[0] = 250
	provider := &fakeProvider{entity: sdk.EntityTypeProduct, extension: "csv"}
	e := newTestExporter(t, source)
	request := newTestRequest(provider, &sdk.Profile{ID: 1, BatchSize: 100})
	result, err := e.Export(context.Background(), request)
	assert.NoError(err)
	assert.True(result.Succeeded())
	assert.Equal(3, provider.executes)
	assert.Equal([]int{100, 100, 50}, provider.segmentSizes)
	assert.Len(result.Files, 3)
	assert.Equal(1, provider.onExecuted)
}

func TestExportOffsetAndLimit(t *testing.T) {
	assert := assert.New(t)
	source := newFakeSource()
	source.productsPerStore[0] = 250
	provider := &fakeProvider{entity: sdk.EntityTypeProduct, extension: "csv"}
	e := newTestExporter(t, source)
	request := newTestRequest(provider, &sdk.Profile{ID: 1, Offset: 20, Limit: 30})
	result, err := e.Export(context.Background(), request)
	assert.NoError(err)
	assert.True(result.Succeeded())
	assert.Equal(30, provider.records)
	assert.Len(result.Files, 1)
}

func TestExportProviderErrorAbortsHard(t *testing.T) {
	assert := assert.New(t)
	source := newFakeSource()
	source.productsPerStore[0] = 250
	provider := &fakeProvider{entity: sdk.EntityTypeProduct, extension: "csv", failOnCall: 2}
	pub := &fakePublisher{typ: sdk.DeploymentFileSystem}
	e := newTestExporter(t, source, pub)
	request := newTestRequest(provider, &sdk.Profile{
		ID:        1,
		BatchSize: 100,
		Deployments: []sdk.Deployment{
			{Name: "drop", Type: sdk.DeploymentFileSystem, Enabled: true, Path: t.TempDir()},
		},
	})
	result, err := e.Export(context.Background(), request)
	assert.NoError(err)
	assert.False(result.Succeeded())
	assert.Contains(result.LastError, "serialization failed")
	// first segment produced a file before the abort
	assert.Len(result.Files, 1)
	// hard abort skips completion hooks and fan out
	assert.Equal(0, provider.onExecuted)
	assert.Equal(0, pub.calls)
}

func TestExportProviderPanicAbortsHard(t *testing.T) {
	assert := assert.New(t)
	source := newFakeSource()
	source.productsPerStore[0] = 50
	provider := &fakeProvider{entity: sdk.EntityTypeProduct, extension: "csv", panicOnCall: 1}
	e := newTestExporter(t, source)
	request := newTestRequest(provider, &sdk.Profile{ID: 1})
	result, err := e.Export(context.Background(), request)
	assert.NoError(err)
	assert.False(result.Succeeded())
	assert.Contains(result.LastError, "panic")
	assert.Equal(0, provider.onExecuted)
	assert.Empty(result.Files)
}

func TestExportMaxFailuresAbortsSoft(t *testing.T) {
	assert := assert.New(t)
	source := newFakeSource()
	source.productsPerStore[0] = 250
	provider := &fakeProvider{entity: sdk.EntityTypeProduct, extension: "csv", failRecords: 2}
	e := newTestExporter(t, source)
	request := newTestRequest(provider, &sdk.Profile{ID: 1, BatchSize: 100, MaxFailures: 2})
	result, err := e.Export(context.Background(), request)
	assert.NoError(err)
	// soft abort: no further segments, but completion hooks still run
	assert.Equal(1, provider.executes)
	assert.Equal(1, provider.onExecuted)
	assert.True(result.Succeeded())
	assert.Len(result.Files, 1)
}

func TestExportCancellationAbortsSoft(t *testing.T) {
	assert := assert.New(t)
	source := newFakeSource()
	source.productsPerStore[0] = 250
	ctx, cancel := context.WithCancel(context.Background())
	provider := &fakeProvider{entity: sdk.EntityTypeProduct, extension: "csv", cancelAfter: cancel}
	e := newTestExporter(t, source)
	request := newTestRequest(provider, &sdk.Profile{ID: 1, BatchSize: 100})
	result, err := e.Export(ctx, request)
	// cancellation is re-raised after bookkeeping, with the partial result
	assert.Equal(context.Canceled, err)
	assert.NotNil(result)
	assert.Equal(1, provider.executes)
	assert.Len(result.Files, 1)
	assert.Equal(1, provider.onExecuted)
}

func TestExportPerStore(t *testing.T) {
	assert := assert.New(t)
	source := newFakeSource()
	source.stores = []*sdk.Store{
		{ID: 1, Name: "main", SeoName: "main"},
		{ID: 2, Name: "outlet", SeoName: "outlet"},
	}
	source.productsPerStore[1] = 120
	source.productsPerStore[2] = 30
	provider := &fakeProvider{entity: sdk.EntityTypeProduct, extension: "csv"}
	e := newTestExporter(t, source)
	request := newTestRequest(provider, &sdk.Profile{ID: 1, PerStore: true, FileNamePattern: "%Store.SeoName%-%File.Index%"})
	result, err := e.Export(context.Background(), request)
	assert.NoError(err)
	assert.True(result.Succeeded())
	assert.Equal(150, provider.records)
	assert.Len(result.Files, 2)
	assert.Equal(1, result.Files[0].StoreID)
	assert.Equal("main-0.csv", result.Files[0].FileName)
	assert.Equal(2, result.Files[1].StoreID)
	assert.Equal("outlet-1.csv", result.Files[1].FileName)
}

func TestExportZipAndDeploymentIsolation(t *testing.T) {
	assert := assert.New(t)
	source := newFakeSource()
	source.productsPerStore[0] = 50
	provider := &fakeProvider{entity: sdk.EntityTypeProduct, extension: "csv"}
	failing := &fakePublisher{typ: sdk.DeploymentFileSystem, err: errors.New("disk full")}
	working := &fakePublisher{typ: sdk.DeploymentHTTP}
	e := newTestExporter(t, source, failing, working)
	request := newTestRequest(provider, &sdk.Profile{
		ID:               1,
		CreateZipArchive: true,
		Deployments: []sdk.Deployment{
			{Name: "endpoint", Type: sdk.DeploymentHTTP, Enabled: true, URL: "https://example.com", CreateZip: true},
			{Name: "drop", Type: sdk.DeploymentFileSystem, Enabled: true, Path: t.TempDir()},
		},
	})
	result, err := e.Export(context.Background(), request)
	assert.NoError(err)
	// a failing deployment never fails the run or the other targets
	assert.True(result.Succeeded())
	assert.True(failing.failed)
	assert.Equal(1, working.calls)
	// filesystem runs before http regardless of declaration order
	assert.Equal("products-all.csv", result.DownloadFileName)
	assert.Equal([]string{"test-profile.zip"}, working.files)
	assert.True(len(failing.files) == 1)
	assert.NotEqual("test-profile.zip", failing.files[0])
}

func TestExportMissingPublisherSkipped(t *testing.T) {
	assert := assert.New(t)
	source := newFakeSource()
	source.productsPerStore[0] = 10
	provider := &fakeProvider{entity: sdk.EntityTypeProduct, extension: "csv"}
	e := newTestExporter(t, source)
	request := newTestRequest(provider, &sdk.Profile{
		ID: 1,
		Deployments: []sdk.Deployment{
			{Name: "ftp", Type: sdk.DeploymentFTP, Enabled: true},
		},
	})
	result, err := e.Export(context.Background(), request)
	assert.NoError(err)
	assert.True(result.Succeeded())
}

func TestExportOrderStatusMutation(t *testing.T) {
	assert := assert.New(t)
	source := newFakeSource()
	source.ordersPerStore[0] = 300
	provider := &fakeProvider{entity: sdk.EntityTypeOrder, extension: "csv"}
	e := newTestExporter(t, source)
	request := newTestRequest(provider, &sdk.Profile{ID: 1})
	request.Projection.OrderStatusChange = sdk.OrderStatusChangeComplete
	result, err := e.Export(context.Background(), request)
	assert.NoError(err)
	assert.True(result.Succeeded())
	assert.Equal(sdk.OrderStatusComplete, source.setStatus)
	var total int
	for _, chunk := range source.statusCalls {
		assert.LessOrEqual(len(chunk), orderStatusChunkSize)
		total += len(chunk)
	}
	assert.Equal(300, total)
}

func TestExportOrderStatusMutationFailureKeepsFiles(t *testing.T) {
	assert := assert.New(t)
	source := newFakeSource()
	source.ordersPerStore[0] = 50
	source.statusErr = errors.New("db gone")
	provider := &fakeProvider{entity: sdk.EntityTypeOrder, extension: "csv"}
	e := newTestExporter(t, source)
	request := newTestRequest(provider, &sdk.Profile{ID: 1})
	request.Projection.OrderStatusChange = sdk.OrderStatusChangeProcessing
	result, err := e.Export(context.Background(), request)
	assert.NoError(err)
	assert.False(result.Succeeded())
	assert.Contains(result.LastError, "db gone")
	assert.Len(result.Files, 1)
}

func TestExportNoStatusMutationWithoutDirective(t *testing.T) {
	assert := assert.New(t)
	source := newFakeSource()
	source.ordersPerStore[0] = 50
	provider := &fakeProvider{entity: sdk.EntityTypeOrder, extension: "csv"}
	e := newTestExporter(t, source)
	request := newTestRequest(provider, &sdk.Profile{ID: 1})
	_, err := e.Export(context.Background(), request)
	assert.NoError(err)
	assert.Empty(source.statusCalls)
}

func TestExportExtraStreams(t *testing.T) {
	assert := assert.New(t)
	source := newFakeSource()
	source.productsPerStore[0] = 10
	provider := &fakeProvider{entity: sdk.EntityTypeProduct, extension: "csv", extraStream: true}
	e := newTestExporter(t, source)
	request := newTestRequest(provider, &sdk.Profile{ID: 1})
	result, err := e.Export(context.Background(), request)
	assert.NoError(err)
	assert.Equal(1, provider.onExecuted)
	assert.Len(result.Files, 2)
	assert.Equal("manifest.txt", result.Files[1].FileName)
	buf, err := ioutil.ReadFile(filepath.Join(e.exportRoot, "test-profile", "content", "manifest.txt"))
	assert.NoError(err)
	assert.Equal("records=10\n", string(buf))
}

func TestExportNoData(t *testing.T) {
	assert := assert.New(t)
	source := newFakeSource()
	provider := &fakeProvider{entity: sdk.EntityTypeProduct, extension: "csv"}
	e := newTestExporter(t, source)
	request := newTestRequest(provider, &sdk.Profile{ID: 1})
	result, err := e.Export(context.Background(), request)
	assert.NoError(err)
	assert.True(result.Succeeded())
	assert.Equal(0, provider.executes)
	// the completion hook still runs on an empty run
	assert.Equal(1, provider.onExecuted)
	assert.Empty(result.Files)
}

func TestExportPermissionDenied(t *testing.T) {
	assert := assert.New(t)
	source := newFakeSource()
	provider := &fakeProvider{entity: sdk.EntityTypeProduct, extension: "csv"}
	e := newTestExporter(t, source)
	request := newTestRequest(provider, &sdk.Profile{ID: 1})
	request.HasPermission = false
	_, err := e.Export(context.Background(), request)
	assert.Error(err)
	assert.Equal(0, provider.executes)
}

func TestExportDisabledProfile(t *testing.T) {
	assert := assert.New(t)
	source := newFakeSource()
	provider := &fakeProvider{entity: sdk.EntityTypeProduct, extension: "csv"}
	e := newTestExporter(t, source)
	request := newTestRequest(provider, &sdk.Profile{ID: 1})
	request.Profile.Enabled = false
	_, err := e.Export(context.Background(), request)
	assert.Error(err)
}

func TestExportCurrencyProjection(t *testing.T) {
	assert := assert.New(t)
	source := newFakeSource()
	source.productsPerStore[0] = 1
	provider := &fakeProvider{entity: sdk.EntityTypeProduct, extension: "csv"}
	e := newTestExporter(t, source)
	request := newTestRequest(provider, &sdk.Profile{ID: 1})
	request.Projection.CurrencyID = 7
	result, err := e.Export(context.Background(), request)
	assert.NoError(err)
	assert.True(result.Succeeded())
	assert.Equal(1, provider.records)
}

func TestPreview(t *testing.T) {
	assert := assert.New(t)
	source := newFakeSource()
	source.productsPerStore[0] = 250
	provider := &fakeProvider{entity: sdk.EntityTypeProduct, extension: "csv"}
	e := newTestExporter(t, source)
	request := newTestRequest(provider, &sdk.Profile{ID: 1})
	records, err := e.Preview(context.Background(), request, 0, -1)
	assert.NoError(err)
	assert.Len(records, PageSize)
	assert.Equal(1, records[0].EntityID())
	// the provider is never invoked during preview
	assert.Equal(0, provider.executes)
	assert.Equal(0, provider.onExecuted)
}

func TestPreviewSecondPage(t *testing.T) {
	assert := assert.New(t)
	source := newFakeSource()
	source.productsPerStore[0] = 250
	provider := &fakeProvider{entity: sdk.EntityTypeProduct, extension: "csv"}
	e := newTestExporter(t, source)
	request := newTestRequest(provider, &sdk.Profile{ID: 1})
	records, err := e.Preview(context.Background(), request, 2, 250)
	assert.NoError(err)
	assert.Len(records, 50)
	assert.Equal(201, records[0].EntityID())
}

func TestDataCount(t *testing.T) {
	assert := assert.New(t)
	source := newFakeSource()
	source.productsPerStore[0] = 250
	provider := &fakeProvider{entity: sdk.EntityTypeProduct, extension: "csv"}
	e := newTestExporter(t, source)

	request := newTestRequest(provider, &sdk.Profile{ID: 1})
	count, err := e.DataCount(context.Background(), request)
	assert.NoError(err)
	assert.Equal(250, count)

	request = newTestRequest(provider, &sdk.Profile{ID: 1, Offset: 20, Limit: 100})
	count, err = e.DataCount(context.Background(), request)
	assert.NoError(err)
	assert.Equal(100, count)

	request = newTestRequest(provider, &sdk.Profile{ID: 1, Offset: 240})
	count, err = e.DataCount(context.Background(), request)
	assert.NoError(err)
	assert.Equal(10, count)
}

func TestExportGroupedProductExpansion(t *testing.T) {
	assert := assert.New(t)
	source := newFakeSource()
	source.productsPerStore[0] = 2
	source.grouped[1] = true
	source.grouped[2] = true
	source.associated[1] = []*sdk.Product{
		{ID: 100, Name: "member-a", ParentProduct: 1},
		{ID: 101, Name: "member-b", ParentProduct: 1},
	}
	source.associated[2] = []*sdk.Product{
		{ID: 101, Name: "member-b", ParentProduct: 2},
		{ID: 102, Name: "member-c", ParentProduct: 2},
	}
	provider := &fakeProvider{entity: sdk.EntityTypeProduct, extension: "csv"}
	e := newTestExporter(t, source)
	request := newTestRequest(provider, &sdk.Profile{ID: 1})
	request.Projection.NoGroupedProducts = true
	result, err := e.Export(context.Background(), request)
	assert.NoError(err)
	assert.True(result.Succeeded())
	// both parents expand; the shared member is deduplicated in the segment
	assert.Equal(3, provider.records)
	buf, err := ioutil.ReadFile(filepath.Join(e.exportRoot, "test-profile", "content", result.Files[0].FileName))
	assert.NoError(err)
	assert.Equal("100\n101\n102\n", string(buf))
}

func TestPreviewKeepsGroupedProducts(t *testing.T) {
	assert := assert.New(t)
	source := newFakeSource()
	source.productsPerStore[0] = 2
	source.grouped[1] = true
	source.associated[1] = []*sdk.Product{{ID: 100, ParentProduct: 1}}
	provider := &fakeProvider{entity: sdk.EntityTypeProduct, extension: "csv"}
	e := newTestExporter(t, source)
	request := newTestRequest(provider, &sdk.Profile{ID: 1})
	request.Projection.NoGroupedProducts = true
	records, err := e.Preview(context.Background(), request, 0, -1)
	assert.NoError(err)
	// previews keep grouped parents in place
	assert.Len(records, 2)
	assert.Equal(1, records[0].EntityID())
}

func TestExportCancellationRunsRemainingStoreHooks(t *testing.T) {
	assert := assert.New(t)
	source := newFakeSource()
	source.stores = []*sdk.Store{
		{ID: 1, Name: "main", SeoName: "main"},
		{ID: 2, Name: "outlet", SeoName: "outlet"},
	}
	source.productsPerStore[1] = 50
	source.productsPerStore[2] = 50
	ctx, cancel := context.WithCancel(context.Background())
	provider := &fakeProvider{entity: sdk.EntityTypeProduct, extension: "csv", cancelAfter: cancel}
	e := newTestExporter(t, source)
	request := newTestRequest(provider, &sdk.Profile{ID: 1, PerStore: true, FileNamePattern: "%Store.SeoName%-%File.Index%"})
	result, err := e.Export(ctx, request)
	assert.Equal(context.Canceled, err)
	assert.NotNil(result)
	// the first store's run cancels the context, so the second store reads
	// nothing, but its completion hook still fires
	assert.Equal(1, provider.executes)
	assert.Len(result.Files, 1)
	assert.Equal(1, result.Files[0].StoreID)
	assert.Equal(2, provider.onExecuted)
}

func TestExportDownloadName(t *testing.T) {
	assert := assert.New(t)
	source := newFakeSource()
	source.productsPerStore[0] = 10
	provider := &fakeProvider{entity: sdk.EntityTypeProduct, extension: "csv"}
	e := newTestExporter(t, source)

	request := newTestRequest(provider, &sdk.Profile{ID: 1})
	result, err := e.Export(context.Background(), request)
	assert.NoError(err)
	assert.Equal("products-all.csv", result.DownloadFileName)

	request = newTestRequest(provider, &sdk.Profile{ID: 1})
	request.EntityIDs = []int{7}
	result, err = e.Export(context.Background(), request)
	assert.NoError(err)
	assert.Equal("products-7.csv", result.DownloadFileName)

	request = newTestRequest(provider, &sdk.Profile{ID: 1})
	request.EntityIDs = []int{3, 4}
	result, err = e.Export(context.Background(), request)
	assert.NoError(err)
	assert.Equal("products-selected.csv", result.DownloadFileName)
}

func TestExportDownloadNameEmptyOnFailure(t *testing.T) {
	assert := assert.New(t)
	source := newFakeSource()
	source.productsPerStore[0] = 10
	provider := &fakeProvider{entity: sdk.EntityTypeProduct, extension: "csv", failOnCall: 1}
	e := newTestExporter(t, source)
	request := newTestRequest(provider, &sdk.Profile{ID: 1})
	result, err := e.Export(context.Background(), request)
	assert.NoError(err)
	assert.False(result.Succeeded())
	assert.Empty(result.DownloadFileName)
}

func TestPreviewZeroHintIsAuthoritative(t *testing.T) {
	assert := assert.New(t)
	source := newFakeSource()
	source.productsPerStore[0] = 250
	provider := &fakeProvider{entity: sdk.EntityTypeProduct, extension: "csv"}
	e := newTestExporter(t, source)
	request := newTestRequest(provider, &sdk.Profile{ID: 1})
	// a non negative hint is taken as the known total, zero means empty
	records, err := e.Preview(context.Background(), request, 0, 0)
	assert.NoError(err)
	assert.Empty(records)
	assert.Zero(source.productFetches)
}
