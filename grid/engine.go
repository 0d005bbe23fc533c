package grid

import (
	"fmt"
	"log/slog"
	"time"
)

// Pipeline stage names, as reported to OnRecompute and by Stats.
const (
	StageSearch = "search"
	StageFilter = "filter"
	StageSort   = "sort"
	StagePage   = "page"
	StageKeys   = "keys"
)

// Callbacks are fired after user driven state changes. Nil callbacks are
// skipped.
type Callbacks struct {
	OnSearchChange    func(query string)
	OnFilterChange    func(clauses []FilterClause)
	OnSortChange      func(sort SortState)
	OnPageChange      func(page, pageSize int)
	OnSelectionChange func(keys []string, rows []Row)
	OnExportRequest   func(rows []Row, format string)
}

// Options configure a new engine. Only Columns is required.
type Options struct {
	Columns []ColumnDescriptor
	// RowKeyField and RowKeyFunc identify rows, see RowKeyResolver.
	RowKeyField string
	RowKeyFunc  RowKeyFunc
	// SearchFields defaults to every column without SearchDisabled.
	SearchFields  []string
	Search        string
	Filters       []FilterClause
	Sort          SortState
	Page          int
	PageSize      int
	SelectionMode SelectionMode
	// PruneStaleSelection drops selected keys that are missing from the rows
	// passed to SetRows. By default they are kept.
	PruneStaleSelection bool
	// Location is used for dates without a zone and for calendar days.
	// Defaults to UTC.
	Location  *time.Location
	Logger    *slog.Logger
	Callbacks Callbacks
	// OnRecompute is called with the stage name whenever a stage runs.
	OnRecompute func(stage string)
}

// View is everything a renderer needs for one paint of the grid.
type View struct {
	Columns    []ColumnDescriptor `json:"columns"`
	Rows       []Row              `json:"rows"`
	Keys       []string           `json:"keys"`
	Search     string             `json:"search"`
	Filters    []ClauseSpec       `json:"filters"`
	Sort       SortState          `json:"sort"`
	Pagination PaginationState    `json:"pagination"`
	PageCount  int                `json:"page_count"`
	Selection  SelectionState     `json:"selection"`
	Err        error              `json:"-"`
	Error      string             `json:"error,omitempty"`
}

// stage caches the output of one pipeline step. It recomputes only when the
// revision of its input or of its own configuration moved.
type stage struct {
	name     string
	upstream uint64
	config   uint64
	rev      uint64
	rows     []Row
	computed bool
	runs     int
}

func (s *stage) resolve(upstream, config uint64, compute func() []Row) ([]Row, uint64, bool) {
	if s.computed && s.upstream == upstream && s.config == config {
		return s.rows, s.rev, false
	}
	s.rows = compute()
	s.upstream = upstream
	s.config = config
	s.rev++
	s.computed = true
	s.runs++
	return s.rows, s.rev, true
}

type keyCache struct {
	upstream uint64
	computed bool
	keys     []string
	index    map[string]int
	runs     int
}

// Engine turns an in-memory collection into a searched, filtered, sorted and
// paged view with selection, column visibility and CSV export. An engine is
// owned by one view and is not safe for concurrent use.
type Engine struct {
	columns  []ColumnDescriptor
	resolver RowKeyResolver
	loc      *time.Location
	logger   *slog.Logger
	cb       Callbacks
	onRun    func(stage string)
	prune    bool

	rows    []Row
	rowsRev uint64
	err     error

	search       string
	searchFields []string
	searchRev    uint64

	filters   []FilterClause
	filterRev uint64

	sort    SortState
	sortRev uint64

	page     int
	pageSize int
	pageRev  uint64

	searched stage
	filtered stage
	sorted   stage
	paged    stage
	keys     keyCache

	selection  *SelectionTracker
	visibility *ColumnVisibility
}

// New creates an engine over rows. An invalid initial sort is dropped.
func New(rows []Row, opts Options) *Engine {
	e := &Engine{
		columns:    opts.Columns,
		resolver:   RowKeyResolver{Field: opts.RowKeyField, Func: opts.RowKeyFunc},
		loc:        opts.Location,
		logger:     opts.Logger,
		cb:         opts.Callbacks,
		onRun:      opts.OnRecompute,
		prune:      opts.PruneStaleSelection,
		search:     opts.Search,
		page:       opts.Page,
		pageSize:   opts.PageSize,
		searched:   stage{name: StageSearch},
		filtered:   stage{name: StageFilter},
		sorted:     stage{name: StageSort},
		paged:      stage{name: StagePage},
		selection:  NewSelectionTracker(opts.SelectionMode),
		visibility: NewColumnVisibility(opts.Columns),
	}
	if e.loc == nil {
		e.loc = time.UTC
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.page < 1 {
		e.page = 1
	}
	if e.pageSize <= 0 {
		e.pageSize = DefaultPageSize
	}

	e.searchFields = opts.SearchFields
	if len(e.searchFields) == 0 {
		e.searchFields = defaultSearchFields(opts.Columns)
	}
	e.filters = e.checkFilters(opts.Filters)

	if opts.Sort.Active() {
		if err := e.checkSortable(opts.Sort.Key); err != nil {
			e.logger.Warn("Dropping initial sort", "key", opts.Sort.Key, "error", err)
		} else {
			e.sort = opts.Sort
		}
	}

	e.rows = copyRows(rows)
	e.rowsRev = 1
	e.searchRev, e.filterRev, e.sortRev, e.pageRev = 1, 1, 1, 1
	return e
}

// =======Input=======

// SetRows replaces the collection, e.g. after a refetch, and clears any
// error state. Selected keys are kept unless PruneStaleSelection is set.
func (e *Engine) SetRows(rows []Row) {
	e.rows = copyRows(rows)
	e.rowsRev++
	e.err = nil

	if e.prune && e.selection.Len() > 0 {
		keep := make(map[string]struct{}, len(e.rows))
		for i, row := range e.rows {
			key, _ := e.resolver.Key(row, i)
			keep[key] = struct{}{}
		}
		before := e.selection.Len()
		e.selection.Retain(keep)
		if dropped := before - e.selection.Len(); dropped > 0 {
			e.logger.Debug("Pruned stale selection", "dropped", dropped)
		}
	}
}

// SetError puts the engine into the terminal error state: the collaborator
// failed to supply rows. The next SetRows leaves it.
func (e *Engine) SetError(err error) {
	e.err = err
}

func (e *Engine) Err() error {
	return e.err
}

func (e *Engine) Columns() []ColumnDescriptor {
	return e.columns
}

// =======Search=======

func (e *Engine) Search() string {
	return e.search
}

// SetSearch sets the free text query and returns to the first page.
func (e *Engine) SetSearch(query string) {
	if query == e.search {
		return
	}
	e.search = query
	e.searchRev++
	if e.cb.OnSearchChange != nil {
		e.cb.OnSearchChange(query)
	}
	e.resetPage()
}

// SetSearchFields replaces the searched fields. Empty restores the default.
func (e *Engine) SetSearchFields(fields []string) {
	if len(fields) == 0 {
		fields = defaultSearchFields(e.columns)
	}
	e.searchFields = append([]string(nil), fields...)
	e.searchRev++
}

func (e *Engine) SearchFields() []string {
	return append([]string(nil), e.searchFields...)
}

// =======Filters=======

func (e *Engine) Filters() []FilterClause {
	return append([]FilterClause(nil), e.filters...)
}

// SetFilters replaces all clauses and returns to the first page.
func (e *Engine) SetFilters(clauses []FilterClause) {
	e.filters = e.checkFilters(clauses)
	e.filterRev++
	if e.cb.OnFilterChange != nil {
		e.cb.OnFilterChange(e.Filters())
	}
	e.resetPage()
}

// SetFilter replaces the clause on the same column or appends it.
func (e *Engine) SetFilter(clause FilterClause) {
	if clause == nil {
		return
	}
	key := clause.Spec().Key
	clauses := e.Filters()
	for i, existing := range clauses {
		if existing.Spec().Key == key {
			clauses[i] = clause
			e.SetFilters(clauses)
			return
		}
	}
	e.SetFilters(append(clauses, clause))
}

// ClearFilter removes the clause on key.
func (e *Engine) ClearFilter(key string) {
	clauses := make([]FilterClause, 0, len(e.filters))
	for _, clause := range e.filters {
		if clause.Spec().Key != key {
			clauses = append(clauses, clause)
		}
	}
	if len(clauses) == len(e.filters) {
		return
	}
	e.SetFilters(clauses)
}

func (e *Engine) checkFilters(clauses []FilterClause) []FilterClause {
	checked := make([]FilterClause, 0, len(clauses))
	for _, clause := range clauses {
		if clause == nil {
			continue
		}
		spec := clause.Spec()
		if malformed(clause) {
			e.logger.Warn("Ignoring malformed filter", "key", spec.Key, "type", spec.Type, "value", fmt.Sprintf("%v", spec.Value))
		}
		if _, ok := clause.(UnknownFilter); ok {
			e.logger.Debug("Unknown filter type passes all rows", "key", spec.Key, "type", spec.Type)
		}
		checked = append(checked, clause)
	}
	return checked
}

// =======Sort=======

func (e *Engine) Sort() SortState {
	return e.sort
}

// ToggleSort advances the sort of key through unset, asc and desc.
func (e *Engine) ToggleSort(key string) (SortState, error) {
	if err := e.checkSortable(key); err != nil {
		return e.sort, err
	}
	e.applySort(NextSort(e.sort, key))
	return e.sort, nil
}

// SetSort sets the sort directly. An inactive state clears it.
func (e *Engine) SetSort(state SortState) error {
	if !state.Active() {
		state = SortState{}
	} else if err := e.checkSortable(state.Key); err != nil {
		return err
	}
	if state == e.sort {
		return nil
	}
	e.applySort(state)
	return nil
}

func (e *Engine) applySort(state SortState) {
	e.sort = state
	e.sortRev++
	if e.cb.OnSortChange != nil {
		e.cb.OnSortChange(state)
	}
}

func (e *Engine) checkSortable(key string) error {
	column, ok := findColumn(e.columns, key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownColumn, key)
	}
	if !column.Sortable {
		return fmt.Errorf("%w: %s", ErrColumnNotSortable, key)
	}
	return nil
}

// =======Pagination=======

// SetPage moves to page. Pages past the end show no rows.
func (e *Engine) SetPage(page int) {
	if page == e.page {
		return
	}
	e.page = page
	e.pageRev++
	e.firePageChange()
}

// SetPageSize changes the page size and moves to the page that keeps the
// first visible row in view.
func (e *Engine) SetPageSize(pageSize int) error {
	if pageSize <= 0 {
		return ErrInvalidPageSize
	}
	if pageSize == e.pageSize {
		return nil
	}
	total := len(e.Rows())
	e.page = RepositionPage(e.page, e.pageSize, pageSize, total)
	e.pageSize = pageSize
	e.pageRev++
	e.firePageChange()
	return nil
}

func (e *Engine) Pagination() PaginationState {
	return PaginationState{
		Current:  e.page,
		PageSize: e.pageSize,
		Total:    len(e.Rows()),
	}
}

func (e *Engine) resetPage() {
	if e.page == 1 {
		return
	}
	e.page = 1
	e.pageRev++
	e.firePageChange()
}

func (e *Engine) firePageChange() {
	if e.cb.OnPageChange != nil {
		e.cb.OnPageChange(e.page, e.pageSize)
	}
}

// =======Pipeline=======

// Rows returns the searched, filtered and sorted collection. It is nil in
// the error state. Callers must not modify the returned slice.
func (e *Engine) Rows() []Row {
	if e.err != nil {
		return nil
	}
	rows, _ := e.processed()
	return rows
}

// PageRows returns the rows of the current page.
func (e *Engine) PageRows() []Row {
	if e.err != nil {
		return nil
	}
	sorted, rev := e.processed()
	rows, _, ran := e.paged.resolve(rev, e.pageRev, func() []Row {
		return Paginate(sorted, e.page, e.pageSize)
	})
	e.ran(&e.paged, ran)
	return rows
}

// PageKeys returns the keys of the rows of the current page.
func (e *Engine) PageKeys() []string {
	if e.err != nil {
		return nil
	}
	keys, _ := e.rowKeys()
	start, end := pageBounds(len(keys), e.page, e.pageSize)
	return append([]string(nil), keys[start:end]...)
}

// Stats returns how often each stage ran.
func (e *Engine) Stats() map[string]int {
	return map[string]int{
		StageSearch: e.searched.runs,
		StageFilter: e.filtered.runs,
		StageSort:   e.sorted.runs,
		StagePage:   e.paged.runs,
		StageKeys:   e.keys.runs,
	}
}

func (e *Engine) processed() ([]Row, uint64) {
	searched, rev, ran := e.searched.resolve(e.rowsRev, e.searchRev, func() []Row {
		return Search(e.rows, e.search, e.searchFields)
	})
	e.ran(&e.searched, ran)

	filtered, rev, ran := e.filtered.resolve(rev, e.filterRev, func() []Row {
		return ApplyFilters(searched, e.filters, e.loc)
	})
	e.ran(&e.filtered, ran)

	sorted, rev, ran := e.sorted.resolve(rev, e.sortRev, func() []Row {
		return SortRows(filtered, e.sort)
	})
	e.ran(&e.sorted, ran)

	return sorted, rev
}

func (e *Engine) rowKeys() ([]string, map[string]int) {
	sorted, rev := e.processed()
	if e.keys.computed && e.keys.upstream == rev {
		return e.keys.keys, e.keys.index
	}

	keys := e.resolver.Keys(sorted)
	index := make(map[string]int, len(keys))
	for i, key := range keys {
		if _, ok := index[key]; !ok {
			index[key] = i
		}
	}
	e.keys = keyCache{
		upstream: rev,
		computed: true,
		keys:     keys,
		index:    index,
		runs:     e.keys.runs + 1,
	}
	if e.onRun != nil {
		e.onRun(StageKeys)
	}
	return keys, index
}

func (e *Engine) ran(s *stage, ran bool) {
	if !ran {
		return
	}
	e.logger.Debug("Recomputed grid stage", "stage", s.name, "rows", len(s.rows))
	if e.onRun != nil {
		e.onRun(s.name)
	}
}

// =======Selection=======

// Selection returns the tracker owned by this engine.
func (e *Engine) Selection() *SelectionTracker {
	return e.selection
}

// Toggle flips the selection of key.
func (e *Engine) Toggle(key string) {
	e.selection.Toggle(key)
	e.fireSelectionChange()
}

// SelectAllOnPage selects the rows of the current page only.
func (e *Engine) SelectAllOnPage() {
	e.selection.SelectAll(e.PageKeys())
	e.fireSelectionChange()
}

// ToggleAllOnPage behaves like a header checkbox for the current page.
func (e *Engine) ToggleAllOnPage() {
	e.selection.ToggleAll(e.PageKeys())
	e.fireSelectionChange()
}

func (e *Engine) ClearSelection() {
	e.selection.Clear()
	e.fireSelectionChange()
}

func (e *Engine) SelectedKeys() []string {
	return e.selection.SelectedKeys()
}

// SelectedRows resolves the selected keys against the processed collection.
// Keys without a row there are skipped.
func (e *Engine) SelectedRows() []Row {
	if e.err != nil {
		return nil
	}
	sorted, _ := e.processed()
	_, index := e.rowKeys()
	rows := make([]Row, 0, e.selection.Len())
	for _, key := range e.selection.SelectedKeys() {
		if i, ok := index[key]; ok {
			rows = append(rows, sorted[i])
		}
	}
	return rows
}

func (e *Engine) fireSelectionChange() {
	if e.cb.OnSelectionChange != nil {
		e.cb.OnSelectionChange(e.SelectedKeys(), e.SelectedRows())
	}
}

// =======Columns=======

// Visibility returns the column visibility state owned by this engine.
func (e *Engine) Visibility() *ColumnVisibility {
	return e.visibility
}

func (e *Engine) ShowColumn(key string) error {
	return e.visibility.Show(key)
}

func (e *Engine) HideColumn(key string) error {
	return e.visibility.Hide(key)
}

func (e *Engine) ShowAllColumns() {
	e.visibility.ShowAll()
}

func (e *Engine) HideAllColumns() {
	e.visibility.HideAll()
}

func (e *Engine) ResetColumns() {
	e.visibility.Reset()
}

func (e *Engine) VisibleColumns() []ColumnDescriptor {
	return e.visibility.Visible()
}

// =======Export=======

// Export serializes the whole processed collection, not only the current
// page, with the visible columns.
func (e *Engine) Export(baseName string) (*Export, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.ExportRows(e.Rows(), baseName), nil
}

// ExportSelected serializes the selected rows.
func (e *Engine) ExportSelected(baseName string) (*Export, error) {
	if e.err != nil {
		return nil, e.err
	}
	rows := e.SelectedRows()
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	return e.ExportRows(rows, baseName), nil
}

// ExportRows serializes rows with the visible columns.
func (e *Engine) ExportRows(rows []Row, baseName string) *Export {
	if e.cb.OnExportRequest != nil {
		e.cb.OnExportRequest(rows, FormatCSV)
	}
	return ExportCSV(rows, e.VisibleColumns(), baseName)
}

// =======View=======

// View assembles the current state for rendering.
func (e *Engine) View() View {
	filters := make([]ClauseSpec, 0, len(e.filters))
	for _, clause := range e.filters {
		filters = append(filters, clause.Spec())
	}

	view := View{
		Columns:   e.VisibleColumns(),
		Search:    e.search,
		Filters:   filters,
		Sort:      e.sort,
		Selection: e.selection.State(),
	}

	if e.err != nil {
		view.Err = e.err
		view.Error = e.err.Error()
		view.Rows = []Row{}
		view.Keys = []string{}
		view.Pagination = PaginationState{Current: e.page, PageSize: e.pageSize}
		view.PageCount = view.Pagination.PageCount()
		return view
	}

	view.Rows = e.PageRows()
	view.Keys = e.PageKeys()
	view.Pagination = e.Pagination()
	view.PageCount = view.Pagination.PageCount()
	return view
}

func copyRows(rows []Row) []Row {
	copied := make([]Row, len(rows))
	copy(copied, rows)
	return copied
}
