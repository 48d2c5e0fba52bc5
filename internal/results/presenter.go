// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package results holds the latest batch of result records and presents it
// as a bounded preview and a full listing.
//
// Records are schema-free; presentation probes each record for whichever
// headline fields it has. Selecting a record hands it to the host through a
// callback and never navigates.
package results

import (
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/jeranaias/gazette-assist/internal/model"
)

// ErrNoSuchRecord is returned by SelectIndex for an out-of-range index.
var ErrNoSuchRecord = errors.New("results: no such record")

// DefaultPreviewLimit is the number of records shown inline.
const DefaultPreviewLimit = 3

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config configures a Presenter.
type Config struct {
	// PreviewLimit is the number of records in the preview (default: 3)
	PreviewLimit int

	// HeadlineFields are probed, in order, for the preview and the listing
	// columns (default: model.DefaultHeadlineFields)
	HeadlineFields []string

	// MaxCellWidth truncates table cells (default: 28)
	MaxCellWidth int
}

// DefaultConfig returns the default presentation configuration.
func DefaultConfig() Config {
	return Config{
		PreviewLimit:   DefaultPreviewLimit,
		HeadlineFields: model.DefaultHeadlineFields,
		MaxCellWidth:   28,
	}
}

// =============================================================================
// VIEWS
// =============================================================================

// PreviewItem is one record as shown in the preview.
type PreviewItem struct {
	Index  int
	Record model.ResultRecord
	Title  string
	Fields []model.Field
}

// Preview is the bounded inline view of the batch.
type Preview struct {
	Items     []PreviewItem
	Total     int
	Remaining int
}

// Empty reports whether there is nothing to show.
func (p Preview) Empty() bool {
	return p.Total == 0
}

// Listing is the full tabular view of the batch.
type Listing struct {
	Columns []string
	Rows    []model.ResultRecord
}

// =============================================================================
// PRESENTER
// =============================================================================

// Presenter holds the latest batch. It is safe for concurrent use.
type Presenter struct {
	cfg    Config
	logger *zap.Logger

	mu       sync.RWMutex
	batch    []model.ResultRecord
	expanded bool
	onSelect func(model.ResultRecord)
}

// New creates an empty presenter.
func New(cfg Config, logger *zap.Logger) *Presenter {
	def := DefaultConfig()
	if cfg.PreviewLimit <= 0 {
		cfg.PreviewLimit = def.PreviewLimit
	}
	if len(cfg.HeadlineFields) == 0 {
		cfg.HeadlineFields = def.HeadlineFields
	}
	if cfg.MaxCellWidth <= 0 {
		cfg.MaxCellWidth = def.MaxCellWidth
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Presenter{cfg: cfg, logger: logger.Named("results")}
}

// SetOnSelect sets the host callback for selected records.
func (p *Presenter) SetOnSelect(fn func(model.ResultRecord)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onSelect = fn
}

// SetPreviewLimit changes the preview size. Non-positive values are ignored.
func (p *Presenter) SetPreviewLimit(n int) {
	if n <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg.PreviewLimit = n
}

// Replace swaps in a new batch wholesale. An empty batch clears.
func (p *Presenter) Replace(batch []model.ResultRecord) {
	cloned := model.CloneBatch(batch)

	p.mu.Lock()
	p.batch = cloned
	p.mu.Unlock()

	p.logger.Debug("results replaced", zap.Int("count", len(cloned)))
}

// Clear drops the batch and closes the full listing.
func (p *Presenter) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batch = nil
	p.expanded = false
}

// Len returns the number of records in the batch.
func (p *Presenter) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.batch)
}

// Records returns a copy of the batch.
func (p *Presenter) Records() []model.ResultRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return model.CloneBatch(p.batch)
}

// Preview returns the first PreviewLimit records and the remaining count.
func (p *Presenter) Preview() Preview {
	p.mu.RLock()
	defer p.mu.RUnlock()

	n := len(p.batch)
	if n > p.cfg.PreviewLimit {
		n = p.cfg.PreviewLimit
	}

	pv := Preview{
		Items:     make([]PreviewItem, 0, n),
		Total:     len(p.batch),
		Remaining: len(p.batch) - n,
	}
	for i := 0; i < n; i++ {
		rec := p.batch[i]
		title := rec.Title(p.cfg.HeadlineFields)
		fields := rec.Headline(p.cfg.HeadlineFields)
		if len(fields) > 0 && fields[0].Value == title {
			fields = fields[1:]
		}
		pv.Items = append(pv.Items, PreviewItem{
			Index:  i,
			Record: rec,
			Title:  title,
			Fields: fields,
		})
	}
	return pv
}

// Listing returns every record with the columns present in at least one of
// them: headline fields first in configured order, then the rest sorted.
func (p *Presenter) Listing() Listing {
	p.mu.RLock()
	defer p.mu.RUnlock()

	present := make(map[string]bool)
	for _, rec := range p.batch {
		for k, v := range rec {
			if v != nil {
				present[k] = true
			}
		}
	}

	cols := make([]string, 0, len(present))
	seen := make(map[string]bool)
	for _, k := range p.cfg.HeadlineFields {
		if present[k] {
			cols = append(cols, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range present {
		if !seen[k] && !isIDKey(k) && k != "body" {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	cols = append(cols, rest...)

	return Listing{Columns: cols, Rows: model.CloneBatch(p.batch)}
}

// Expanded reports whether the full listing is open.
func (p *Presenter) Expanded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.expanded
}

// Expand opens the full listing.
func (p *Presenter) Expand() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expanded = true
}

// Collapse closes the full listing.
func (p *Presenter) Collapse() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expanded = false
}

// Toggle flips the full listing and returns the new state.
func (p *Presenter) Toggle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expanded = !p.expanded
	return p.expanded
}

// Select hands rec to the host callback.
func (p *Presenter) Select(rec model.ResultRecord) {
	p.mu.RLock()
	fn := p.onSelect
	p.mu.RUnlock()

	p.logger.Debug("result selected", zap.String("id", rec.ID()))
	if fn != nil {
		fn(rec)
	}
}

// SelectIndex selects the i-th record of the batch.
func (p *Presenter) SelectIndex(i int) error {
	p.mu.RLock()
	if i < 0 || i >= len(p.batch) {
		p.mu.RUnlock()
		return ErrNoSuchRecord
	}
	rec := p.batch[i]
	p.mu.RUnlock()

	p.Select(rec)
	return nil
}

func isIDKey(k string) bool {
	for _, id := range model.IDKeys {
		if k == id {
			return true
		}
	}
	return false
}
