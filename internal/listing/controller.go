// Package listing drives paginated, searchable resource collections for the
// console. Each controller owns the browse state of one resource within one
// console session: current page, page size, committed search query, and the
// last delivered page of rows.
package listing

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/utafrali/adminconsole/internal/upstream"
	"github.com/utafrali/adminconsole/pkg/pagination"
)

// Mode selects where pagination and search happen.
type Mode string

const (
	// ModeServer delegates paging and search to the commerce backend.
	ModeServer Mode = "server"
	// ModeClient pulls the full collection once and pages and searches it
	// locally. Suited to small, slow-moving collections.
	ModeClient Mode = "client"
	// ModeHybrid pages on the server while browsing, but runs an active
	// search as one server-side query and pages the hits locally.
	ModeHybrid Mode = "hybrid"
)

// Fetcher is the slice of the commerce API the controller needs.
type Fetcher interface {
	List(ctx context.Context, sid, resource string, params pagination.Params, filters url.Values) (upstream.ListPage, error)
	ListAll(ctx context.Context, sid, resource, search string, filters url.Values) (upstream.ListPage, error)
}

// Snapshot is one delivered page.
type Snapshot struct {
	Rows       []json.RawMessage `json:"rows"`
	Page       int               `json:"page"`
	PerPage    int               `json:"per_page"`
	TotalItems int               `json:"total_items"`
	TotalPages int               `json:"total_pages"`
	Query      string            `json:"query,omitempty"`
}

// Controller owns the browse state of one (session, resource) pair. All
// methods are safe for concurrent use. Responses are applied in issue order:
// a fetch that returns after a later-issued fetch has already delivered is
// discarded, so the shown page can never go backwards in time.
type Controller struct {
	fetcher  Fetcher
	sid      string
	resource string
	mode     Mode
	debounce time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	page     int
	perPage  int
	query    string
	ordering string
	filters  url.Values

	// seq numbers outgoing fetches; applied is the highest seq whose result
	// has been delivered. Both are guarded by mu.
	seq     uint64
	applied uint64

	snapshot *Snapshot

	pendingQuery string
	timer        *time.Timer

	// cache holds the full collection in client mode.
	cache      []json.RawMessage
	cacheValid bool
}

// Options configures a controller.
type Options struct {
	Mode     Mode
	Debounce time.Duration
	PerPage  int
	Ordering string
	Filters  url.Values
}

func NewController(fetcher Fetcher, sid, resource string, opts Options, logger *slog.Logger) *Controller {
	if opts.PerPage <= 0 {
		opts.PerPage = 20
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	if opts.Mode == "" {
		opts.Mode = ModeServer
	}
	return &Controller{
		fetcher:  fetcher,
		sid:      sid,
		resource: resource,
		mode:     opts.Mode,
		debounce: opts.Debounce,
		logger:   logger,
		page:     1,
		perPage:  opts.PerPage,
		ordering: opts.Ordering,
		filters:  opts.Filters,
	}
}

// SetPage moves to page n. Values below 1 snap to 1; values past the end are
// clamped when the next fetch learns the real total.
func (c *Controller) SetPage(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n < 1 {
		n = 1
	}
	c.page = n
}

// SetPerPage changes the page size and returns to the first page, because the
// old page number is meaningless under a new page geometry.
func (c *Controller) SetPerPage(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n < 1 {
		n = 1
	}
	if n > pagination.MaxPerPage {
		n = pagination.MaxPerPage
	}
	if n != c.perPage {
		c.perPage = n
		c.page = 1
	}
}

// SetFilters replaces the resource-specific filters and returns to the first
// page when they changed. A nil value keeps the current filters.
func (c *Controller) SetFilters(filters url.Values) {
	if filters == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if filters.Encode() != c.filters.Encode() {
		c.filters = filters
		c.page = 1
		c.cacheValid = false
		c.cache = nil
	}
}

// SetOrdering changes the sort order for server-backed fetches.
func (c *Controller) SetOrdering(ordering string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ordering = ordering
}

// SetQuery records a search query but does not commit it until the debounce
// window passes without another call, so a typing admin costs one request,
// not one per keystroke. Committing resets to page 1. An already-committed
// identical query is a no-op.
func (c *Controller) SetQuery(q string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if q == c.query {
		c.pendingQuery = q
		return
	}

	c.pendingQuery = q
	c.timer = time.AfterFunc(c.debounce, func() {
		c.commitQuery(q)
	})
}

func (c *Controller) commitQuery(q string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// A newer keystroke superseded this commit while the timer was firing.
	if c.pendingQuery != q {
		return
	}
	if q != c.query {
		c.query = q
		c.page = 1
	}
	c.timer = nil
}

// FlushQuery commits any pending query immediately. Explicit submit (the
// admin pressed enter) bypasses the debounce.
func (c *Controller) FlushQuery() {
	c.mu.Lock()
	q := c.pendingQuery
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()
	c.commitQuery(q)
}

// Query returns the committed query.
func (c *Controller) Query() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// Snapshot returns the last delivered page, or nil before the first fetch.
func (c *Controller) Snapshot() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// Fetch loads the current page and delivers it, unless a later-issued fetch
// has already delivered, in which case the result is discarded and the newer
// snapshot is returned instead.
func (c *Controller) Fetch(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	c.seq++
	token := c.seq
	page := c.page
	perPage := c.perPage
	query := c.query
	ordering := c.ordering
	filters := c.filters
	mode := c.mode
	c.mu.Unlock()

	snap, err := c.load(ctx, mode, page, perPage, query, ordering, filters)
	if err != nil {
		return Snapshot{}, err
	}

	// The requested page may have fallen off the end (rows deleted, query
	// narrowed). Clamp and refetch the real last page.
	if clamped := pagination.ClampPage(snap.Page, snap.TotalItems, snap.PerPage); clamped != snap.Page {
		snap, err = c.load(ctx, mode, clamped, perPage, query, ordering, filters)
		if err != nil {
			return Snapshot{}, err
		}
	}
	if snap.Page != page {
		c.mu.Lock()
		if c.page == page {
			c.page = snap.Page
		}
		c.mu.Unlock()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if token <= c.applied {
		// A later fetch already delivered; this result is stale.
		staleResponsesTotal.Inc()
		c.logger.DebugContext(ctx, "discarded stale page",
			slog.String("resource", c.resource),
			slog.Uint64("token", token),
			slog.Uint64("applied", c.applied))
		if c.snapshot != nil {
			return *c.snapshot, nil
		}
		return snap, nil
	}
	c.applied = token
	c.snapshot = &snap
	return snap, nil
}

// Refresh invalidates the client-mode cache and fetches the current page.
func (c *Controller) Refresh(ctx context.Context) (Snapshot, error) {
	c.Invalidate()
	return c.Fetch(ctx)
}

// Invalidate drops the cached collection so the next Fetch goes to the
// backend. Called after a mutation on the resource.
func (c *Controller) Invalidate() {
	c.mu.Lock()
	c.cacheValid = false
	c.cache = nil
	c.mu.Unlock()
}

// Close stops any pending debounce timer.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) load(ctx context.Context, mode Mode, page, perPage int, query, ordering string, filters url.Values) (Snapshot, error) {
	switch mode {
	case ModeClient:
		return c.loadClient(ctx, page, perPage, query, filters)
	case ModeHybrid:
		if query != "" {
			return c.loadHybridSearch(ctx, page, perPage, query, filters)
		}
		return c.loadServer(ctx, page, perPage, "", ordering, filters)
	default:
		return c.loadServer(ctx, page, perPage, query, ordering, filters)
	}
}

func (c *Controller) loadServer(ctx context.Context, page, perPage int, query, ordering string, filters url.Values) (Snapshot, error) {
	params := pagination.Params{Page: page, PerPage: perPage, Search: query, Ordering: ordering}
	result, err := c.fetcher.List(ctx, c.sid, c.resource, params, filters)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Rows:       result.Rows,
		Page:       page,
		PerPage:    perPage,
		TotalItems: result.Total,
		TotalPages: pagination.TotalPages(result.Total, perPage),
		Query:      query,
	}, nil
}

func (c *Controller) loadClient(ctx context.Context, page, perPage int, query string, filters url.Values) (Snapshot, error) {
	rows, err := c.clientRows(ctx, filters)
	if err != nil {
		return Snapshot{}, err
	}
	if query != "" {
		rows = filterRows(rows, query)
	}
	return paginate(rows, page, perPage, query), nil
}

// loadHybridSearch runs the search on the server in one unpaginated query and
// pages the hits locally. The hit set is capped at MaxPerPage rows per page
// regardless of the configured page size, to bound what one request hauls
// back through the console.
func (c *Controller) loadHybridSearch(ctx context.Context, page, perPage int, query string, filters url.Values) (Snapshot, error) {
	if perPage > pagination.MaxPerPage {
		perPage = pagination.MaxPerPage
	}
	result, err := c.fetcher.ListAll(ctx, c.sid, c.resource, query, filters)
	if err != nil {
		return Snapshot{}, err
	}
	return paginate(result.Rows, page, perPage, query), nil
}

// clientRows returns the cached full collection, fetching it on first use.
func (c *Controller) clientRows(ctx context.Context, filters url.Values) ([]json.RawMessage, error) {
	c.mu.Lock()
	if c.cacheValid {
		rows := c.cache
		c.mu.Unlock()
		return rows, nil
	}
	c.mu.Unlock()

	result, err := c.fetcher.ListAll(ctx, c.sid, c.resource, "", filters)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache = result.Rows
	c.cacheValid = true
	c.mu.Unlock()
	return result.Rows, nil
}

// paginate slices rows into the requested page, clamping past-the-end pages
// to the last page.
func paginate(rows []json.RawMessage, page, perPage int, query string) Snapshot {
	total := len(rows)
	page = pagination.ClampPage(page, total, perPage)

	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	return Snapshot{
		Rows:       rows[start:end],
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: pagination.TotalPages(total, perPage),
		Query:      query,
	}
}

// filterRows keeps rows where any top-level string value contains the query,
// case-insensitively. Rows that fail to decode are kept so a malformed row is
// visible rather than silently unfindable.
func filterRows(rows []json.RawMessage, query string) []json.RawMessage {
	needle := strings.ToLower(query)
	matched := make([]json.RawMessage, 0, len(rows))
	for _, row := range rows {
		var fields map[string]any
		if err := json.Unmarshal(row, &fields); err != nil {
			matched = append(matched, row)
			continue
		}
		if rowMatches(fields, needle) {
			matched = append(matched, row)
		}
	}
	return matched
}

func rowMatches(fields map[string]any, needle string) bool {
	for _, v := range fields {
		if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}
