package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xiaopang/insight/internal/logger"
	"github.com/xiaopang/insight/internal/model"
	"github.com/xiaopang/insight/internal/view"
)

// TimeRanges are the selectable analytics windows in days.
var TimeRanges = []int{7, 14, 30, 90}

// ErrInvalidRange is returned for a days value outside TimeRanges.
var ErrInvalidRange = errors.New("unsupported time range")

// ValidRange reports whether days is one of TimeRanges.
func ValidRange(days int) bool {
	for _, d := range TimeRanges {
		if d == days {
			return true
		}
	}
	return false
}

// PageOptions are shared by the page controllers.
type PageOptions struct {
	Days int // dashboard performance window
	TopN int
	Log  *logger.Logger
}

func (o PageOptions) withDefaults() PageOptions {
	if o.Days <= 0 {
		o.Days = 7
	}
	if o.TopN <= 0 {
		o.TopN = view.DefaultTopN
	}
	if o.Log == nil {
		o.Log = logger.Default()
	}
	return o
}

// loadAggregates fetches stats and performance concurrently. A failure of
// one does not cancel the other; each records its own state.
func loadAggregates(ctx context.Context, f *Fetcher, stats *Resource[*model.QueryStats], perf *Resource[model.PerformanceSeries], days int) error {
	var g errgroup.Group
	g.Go(func() error {
		_, err := stats.Load(ctx, CacheKey(ResourceStats), f.Stats)
		return err
	})
	g.Go(func() error {
		key := CacheKey(ResourcePerformance, "days="+strconv.Itoa(days))
		_, err := perf.Load(ctx, key, func(ctx context.Context) (model.PerformanceSeries, error) {
			return f.Performance(ctx, days)
		})
		return err
	})
	return g.Wait()
}

func aggregateStatus(stats *Resource[*model.QueryStats], perf *Resource[model.PerformanceSeries]) PageStatus {
	s, p := stats.Snapshot(), perf.Snapshot()
	return combineStatus([]FetchState{s.State, p.State}, []error{s.Err, p.Err})
}

// DashboardPage is the landing page: stats plus recent performance.
type DashboardPage struct {
	fetcher *Fetcher
	opts    PageOptions
	stats   *Resource[*model.QueryStats]
	perf    *Resource[model.PerformanceSeries]
}

// NewDashboardPage creates an idle dashboard.
func NewDashboardPage(f *Fetcher, opts PageOptions) *DashboardPage {
	opts = opts.withDefaults()
	return &DashboardPage{
		fetcher: f,
		opts:    opts,
		stats:   NewResource[*model.QueryStats]("dashboard.stats", opts.Log),
		perf:    NewResource[model.PerformanceSeries]("dashboard.performance", opts.Log),
	}
}

// Refresh loads both resources concurrently.
func (p *DashboardPage) Refresh(ctx context.Context) error {
	return loadAggregates(ctx, p.fetcher, p.stats, p.perf, p.opts.Days)
}

// Status is the combined fetch state.
func (p *DashboardPage) Status() PageStatus { return aggregateStatus(p.stats, p.perf) }

// View renders whatever data has been loaded so far.
func (p *DashboardPage) View() view.DashboardView {
	return view.BuildDashboard(p.stats.Snapshot().Data, p.perf.Snapshot().Data, p.opts.TopN)
}

// Discard cancels in-flight fetches and forgets loaded data.
func (p *DashboardPage) Discard() {
	p.stats.Discard()
	p.perf.Discard()
}

// AnalyticsPage shows stats and performance over a selectable range.
type AnalyticsPage struct {
	fetcher *Fetcher
	opts    PageOptions
	stats   *Resource[*model.QueryStats]
	perf    *Resource[model.PerformanceSeries]

	mu   sync.Mutex
	days int
}

// NewAnalyticsPage creates an idle analytics page on the 7 day range.
func NewAnalyticsPage(f *Fetcher, opts PageOptions) *AnalyticsPage {
	opts = opts.withDefaults()
	days := opts.Days
	if !ValidRange(days) {
		days = TimeRanges[0]
	}
	return &AnalyticsPage{
		fetcher: f,
		opts:    opts,
		stats:   NewResource[*model.QueryStats]("analytics.stats", opts.Log),
		perf:    NewResource[model.PerformanceSeries]("analytics.performance", opts.Log),
		days:    days,
	}
}

// Days returns the selected range.
func (p *AnalyticsPage) Days() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.days
}

// SetDays selects a range. The caller refreshes afterwards.
func (p *AnalyticsPage) SetDays(days int) error {
	if !ValidRange(days) {
		return fmt.Errorf("%w: %d", ErrInvalidRange, days)
	}
	p.mu.Lock()
	p.days = days
	p.mu.Unlock()
	return nil
}

// Refresh loads stats and the selected range. Switching ranges while a load
// is in flight drops the older result.
func (p *AnalyticsPage) Refresh(ctx context.Context) error {
	return loadAggregates(ctx, p.fetcher, p.stats, p.perf, p.Days())
}

// Status is the combined fetch state.
func (p *AnalyticsPage) Status() PageStatus { return aggregateStatus(p.stats, p.perf) }

// View renders the analytics page.
func (p *AnalyticsPage) View() view.AnalyticsView {
	return view.BuildAnalytics(p.stats.Snapshot().Data, p.perf.Snapshot().Data, p.Days(), p.opts.TopN)
}

// Export renders the loaded performance series as CSV with its download name.
func (p *AnalyticsPage) Export(now time.Time) (doc, filename string, err error) {
	doc, err = view.ExportCSV(p.perf.Snapshot().Data)
	if err != nil {
		return "", "", err
	}
	return doc, view.ExportFilename(now), nil
}

// Discard cancels in-flight fetches and forgets loaded data.
func (p *AnalyticsPage) Discard() {
	p.stats.Discard()
	p.perf.Discard()
}

// HistoryPage is the paginated query log with local search.
type HistoryPage struct {
	fetcher *Fetcher
	log     *logger.Logger
	res     *Resource[*model.QueryHistory]

	mu       sync.Mutex
	pag      *Pagination
	search   string
	selected string
}

// NewHistoryPage creates an idle history page on page 0.
func NewHistoryPage(f *Fetcher, opts PageOptions) *HistoryPage {
	opts = opts.withDefaults()
	return &HistoryPage{
		fetcher: f,
		log:     opts.Log,
		res:     NewResource[*model.QueryHistory]("history", opts.Log),
		pag:     NewPagination(DefaultPageSize),
	}
}

// Refresh loads the current page. When the backend total shows the page is
// past the end, the page is clamped and loaded once more.
func (p *HistoryPage) Refresh(ctx context.Context) error {
	for attempt := 0; ; attempt++ {
		p.mu.Lock()
		limit, offset := p.pag.PageSize(), p.pag.Offset()
		p.mu.Unlock()

		key := CacheKey(ResourceHistory, "limit="+strconv.Itoa(limit), "offset="+strconv.Itoa(offset))
		snap, err := p.res.Load(ctx, key, func(ctx context.Context) (*model.QueryHistory, error) {
			return p.fetcher.History(ctx, limit, offset)
		})
		if err != nil {
			return err
		}

		p.mu.Lock()
		moved := p.pag.SetTotal(snap.Data.Total)
		p.mu.Unlock()
		if !moved || attempt > 0 {
			return nil
		}
		p.log.Debug("history page clamped", "offset", offset, "total", snap.Data.Total)
	}
}

// Page returns the 0-based current page.
func (p *HistoryPage) Page() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pag.Page()
}

// SetPage selects a page, clamped to the known range.
func (p *HistoryPage) SetPage(page int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.selected = ""
	return p.pag.SetPage(page)
}

// Next moves forward one page. It reports whether the page changed.
func (p *HistoryPage) Next() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.pag.Next() {
		return false
	}
	p.selected = ""
	return true
}

// Prev moves back one page. It reports whether the page changed.
func (p *HistoryPage) Prev() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.pag.Prev() {
		return false
	}
	p.selected = ""
	return true
}

// SetSearch changes the filter and returns to the first page. It reports
// whether the page changed and needs a refresh.
func (p *HistoryPage) SetSearch(term string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.search = NormalizeSearch(term)
	before := p.pag.Page()
	p.pag.Reset()
	return before != 0
}

// Search returns the active filter.
func (p *HistoryPage) Search() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.search
}

// Select opens the detail of a record on the current page.
func (p *HistoryPage) Select(id string) bool {
	snap := p.res.Snapshot()
	if snap.Data == nil {
		return false
	}
	for _, r := range snap.Data.Records {
		if r.ID == id {
			p.mu.Lock()
			p.selected = id
			p.mu.Unlock()
			return true
		}
	}
	return false
}

// ClearSelection closes the detail view.
func (p *HistoryPage) ClearSelection() {
	p.mu.Lock()
	p.selected = ""
	p.mu.Unlock()
}

// Records returns the filtered records of the current page.
func (p *HistoryPage) Records() []model.QueryRecord {
	snap := p.res.Snapshot()
	if snap.Data == nil {
		return []model.QueryRecord{}
	}
	return FilterHistory(snap.Data.Records, p.Search())
}

// Status is the fetch state.
func (p *HistoryPage) Status() PageStatus {
	s := p.res.Snapshot()
	return combineStatus([]FetchState{s.State}, []error{s.Err})
}

// View renders the current page.
func (p *HistoryPage) View() view.HistoryView {
	records := p.Records()
	p.mu.Lock()
	search, info, selected := p.search, p.pag.Info(), p.selected
	p.mu.Unlock()
	return view.BuildHistory(records, search, info, selected)
}

// Discard cancels in-flight fetches and forgets loaded data.
func (p *HistoryPage) Discard() {
	p.res.Discard()
	p.mu.Lock()
	p.selected = ""
	p.mu.Unlock()
}

// DocumentsPage lists queried documents with local search.
type DocumentsPage struct {
	fetcher *Fetcher
	stats   *Resource[*model.QueryStats]

	mu     sync.Mutex
	search string
}

// NewDocumentsPage creates an idle document library.
func NewDocumentsPage(f *Fetcher, opts PageOptions) *DocumentsPage {
	opts = opts.withDefaults()
	return &DocumentsPage{
		fetcher: f,
		stats:   NewResource[*model.QueryStats]("documents.stats", opts.Log),
	}
}

// Refresh loads the stats snapshot the library is derived from.
func (p *DocumentsPage) Refresh(ctx context.Context) error {
	_, err := p.stats.Load(ctx, CacheKey(ResourceStats), p.fetcher.Stats)
	return err
}

// SetSearch changes the filter.
func (p *DocumentsPage) SetSearch(term string) {
	p.mu.Lock()
	p.search = NormalizeSearch(term)
	p.mu.Unlock()
}

// ClearSearch removes the filter.
func (p *DocumentsPage) ClearSearch() { p.SetSearch("") }

// Search returns the active filter.
func (p *DocumentsPage) Search() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.search
}

// Status is the fetch state.
func (p *DocumentsPage) Status() PageStatus {
	s := p.stats.Snapshot()
	return combineStatus([]FetchState{s.State}, []error{s.Err})
}

// View renders the library.
func (p *DocumentsPage) View() view.DocumentsView {
	var sources []model.SourceCount
	if stats := p.stats.Snapshot().Data; stats != nil {
		sources = stats.TopSources
	}
	search := p.Search()
	return view.BuildDocuments(FilterSources(sources, search), search, len(sources))
}

// Discard cancels in-flight fetches and forgets loaded data.
func (p *DocumentsPage) Discard() { p.stats.Discard() }
