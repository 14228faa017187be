// Package engine reconciles a CSV feed against the storefront catalog.
// It looks up every record by SKU, resolves and uploads local images,
// decides create/update/skip per the configured update mode, and
// executes the decisions one by one or through the batch endpoint.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mytua/wcsync/internal/csvfeed"
	"github.com/mytua/wcsync/internal/sftpstore"
	"github.com/mytua/wcsync/internal/woocommerce"
	"github.com/mytua/wcsync/pkg/models"
)

// Catalog is the storefront surface the engine drives. Implemented by
// woocommerce.Client; faked in tests.
type Catalog interface {
	FindBySKU(ctx context.Context, sku string) (*models.CatalogEntry, error)
	Create(ctx context.Context, rec *models.ProductRecord, urls []string) (int64, error)
	Update(ctx context.Context, remoteID int64, rec *models.ProductRecord, urls []string, imagesOnly, descriptionOnly bool) error
	CreateBatch(ctx context.Context, items []woocommerce.BatchItem) []woocommerce.BatchResult
	UpdateBatch(ctx context.Context, items []woocommerce.BatchItem) []woocommerce.BatchResult
}

// ImageSource finds and publishes local images for a SKU. Implemented
// by images.Resolver.
type ImageSource interface {
	Resolve(ctx context.Context, sku string) (models.ResolvedImage, error)
}

// Source yields feed rows one at a time; io.EOF ends the feed.
// Implemented by csvfeed.Reader.
type Source interface {
	Next() (csvfeed.Result, error)
}

// Options configures a run.
type Options struct {
	UpdateMode   UpdateMode
	SkipExisting bool
	UseBatch     bool
	BatchSize    int
	MaxCount     int // 0 means no limit
	DryRun       bool

	// ImageWorkers bounds concurrent image resolution; 0 means 4.
	ImageWorkers int

	// OnEvent receives progress events in emission order, on the run
	// goroutine. May be nil.
	OnEvent func(Event)
}

// Engine runs one synchronization pass. It owns no connections; the
// caller connects and closes the catalog client and image store.
type Engine struct {
	catalog Catalog
	images  ImageSource
	opts    Options
}

// New creates an engine.
func New(catalog Catalog, images ImageSource, opts Options) *Engine {
	if opts.UpdateMode == "" {
		opts.UpdateMode = ModeAll
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.ImageWorkers <= 0 {
		opts.ImageWorkers = 4
	}
	return &Engine{catalog: catalog, images: images, opts: opts}
}

// fatalError aborts the whole run instead of failing one record.
type fatalError struct {
	reason string
	err    error
}

func (e *fatalError) Error() string { return fmt.Sprintf("%s: %v", e.reason, e.err) }
func (e *fatalError) Unwrap() error { return e.err }

// Run consumes parsed feed rows. Callers that already drained the
// adapter use this; RunStream bounds memory on large feeds.
func (e *Engine) Run(ctx context.Context, rows []csvfeed.Result) (*models.RunSummary, error) {
	return e.RunStream(ctx, &sliceSource{rows: rows})
}

type sliceSource struct {
	rows []csvfeed.Result
	next int
}

func (s *sliceSource) Next() (csvfeed.Result, error) {
	if s.next >= len(s.rows) {
		return csvfeed.Result{}, io.EOF
	}
	row := s.rows[s.next]
	s.next++
	return row, nil
}

// RunStream reconciles the feed in windows of BatchSize records, so at
// most one window is held in memory. The summary holds exactly one
// outcome per input row, in input order. A returned error means the
// run aborted early; the summary still covers every row.
func (e *Engine) RunStream(ctx context.Context, src Source) (*models.RunSummary, error) {
	summary := &models.RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}

	accepted := 0
	var abortErr error

	for abortErr == nil {
		records, eof, err := e.fill(summary, src, &accepted)
		if err != nil {
			abortErr = err
			break
		}
		if len(records) > 0 {
			actions, err := e.plan(ctx, summary, records)
			if err == nil {
				err = e.execute(ctx, summary, actions)
			}
			abortErr = err
		}
		if eof {
			break
		}
	}
	if abortErr != nil {
		e.drain(summary, src, ctx.Err() != nil)
	}

	sort.SliceStable(summary.Outcomes, func(i, j int) bool {
		return summary.Outcomes[i].Row < summary.Outcomes[j].Row
	})

	summary.CompletedAt = time.Now()
	if abortErr != nil {
		summary.Aborted = true
		summary.AbortReason = abortErr.Error()
		return summary, abortErr
	}
	return summary, nil
}

// fill reads the next window of valid records. Row errors fail and
// rows past the record limit skip right here; neither takes a window
// slot.
func (e *Engine) fill(summary *models.RunSummary, src Source, accepted *int) ([]*models.ProductRecord, bool, error) {
	var records []*models.ProductRecord
	for len(records) < e.opts.BatchSize {
		row, err := src.Next()
		if err == io.EOF {
			return records, true, nil
		}
		if err != nil {
			return records, false, &fatalError{reason: "feed read failed", err: err}
		}
		if row.Err != nil {
			e.record(summary, models.Outcome{
				SKU:    row.Err.SKU,
				Row:    row.Err.Row,
				Action: models.ActionFail,
				Error:  row.Err.Error(),
			})
			continue
		}
		if e.opts.MaxCount > 0 && *accepted >= e.opts.MaxCount {
			e.record(summary, models.Outcome{
				SKU:    row.Record.SKU,
				Row:    row.Record.Row,
				Action: models.ActionSkip,
				Detail: "max count reached",
			})
			continue
		}
		records = append(records, row.Record)
		*accepted++
	}
	return records, false, nil
}

// drain gives every unread row its outcome after an abort. Row errors
// still fail on their own terms; valid rows skip with the abort
// reason.
func (e *Engine) drain(summary *models.RunSummary, src Source, cancelled bool) {
	reason := "run aborted"
	if cancelled {
		reason = "run cancelled"
	}
	for {
		row, err := src.Next()
		if err != nil {
			return
		}
		if row.Err != nil {
			e.record(summary, models.Outcome{
				SKU:    row.Err.SKU,
				Row:    row.Err.Row,
				Action: models.ActionFail,
				Error:  row.Err.Error(),
			})
			continue
		}
		e.record(summary, models.Outcome{
			SKU:    row.Record.SKU,
			Row:    row.Record.Row,
			Action: models.ActionSkip,
			Detail: reason,
		})
	}
}

// plan looks up and decides every record. Records that already failed
// get their outcome here; the rest come back as pending actions.
func (e *Engine) plan(ctx context.Context, summary *models.RunSummary, records []*models.ProductRecord) ([]models.SyncAction, error) {
	entries := make([]*models.CatalogEntry, len(records))
	failures := make([]error, len(records))

	// Lookup stage. Sequential on purpose; the client's rate limiter
	// paces these anyway.
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			e.failRemaining(summary, records, "run cancelled")
			return nil, err
		}
		e.emit(RecordStarted{Row: rec.Row, SKU: rec.SKU})
		entry, err := e.catalog.FindBySKU(ctx, rec.SKU)
		switch {
		case err == nil:
			entries[i] = entry
		case errors.Is(err, woocommerce.ErrNotFound):
			// stays nil, becomes a create
		case woocommerce.IsAuth(err):
			e.failRemaining(summary, records, "run aborted")
			return nil, &fatalError{reason: "storefront rejected credentials", err: err}
		default:
			failures[i] = err
		}
	}

	// Image stage. Bounded concurrency; each worker writes only its
	// own index.
	resolved := make([]models.ResolvedImage, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.ImageWorkers)
	for i, rec := range records {
		if failures[i] != nil || !e.needsImages(entries[i]) {
			continue
		}
		i, rec := i, rec
		g.Go(func() error {
			img, err := e.images.Resolve(gctx, rec.SKU)
			if err != nil {
				if sftpstore.Fatal(err) {
					return &fatalError{reason: "image host unusable", err: err}
				}
				failures[i] = err
				return nil
			}
			resolved[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.failRemaining(summary, records, "run aborted")
		return nil, err
	}

	actions := make([]models.SyncAction, 0, len(records))
	for i, rec := range records {
		if failures[i] != nil {
			actions = append(actions, models.SyncAction{
				Kind:   models.ActionFail,
				Record: rec,
				Err:    failures[i],
			})
			continue
		}
		actions = append(actions, e.decide(rec, entries[i], resolved[i]))
	}
	return actions, nil
}

// execute turns decided actions into API calls and outcomes. Order
// follows the feed; consecutive same-kind actions share a batch when
// batching is on.
func (e *Engine) execute(ctx context.Context, summary *models.RunSummary, actions []models.SyncAction) error {
	pending := make([]models.SyncAction, 0, e.opts.BatchSize)

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		err := e.executeBatch(ctx, summary, pending)
		pending = pending[:0]
		return err
	}

	for i, action := range actions {
		if err := ctx.Err(); err != nil {
			e.failRemainingActions(summary, actions[i:], "run cancelled")
			return err
		}

		switch action.Kind {
		case models.ActionSkip:
			if err := flush(); err != nil {
				e.failRemainingActions(summary, actions[i:], "run aborted")
				return err
			}
			e.record(summary, models.Outcome{
				SKU:    action.Record.SKU,
				Row:    action.Record.Row,
				Action: models.ActionSkip,
				Detail: action.Reason,
			})

		case models.ActionFail:
			if err := flush(); err != nil {
				e.failRemainingActions(summary, actions[i:], "run aborted")
				return err
			}
			e.record(summary, models.Outcome{
				SKU:    action.Record.SKU,
				Row:    action.Record.Row,
				Action: models.ActionFail,
				Error:  action.Err.Error(),
			})

		default:
			if e.opts.DryRun {
				e.record(summary, models.Outcome{
					SKU:    action.Record.SKU,
					Row:    action.Record.Row,
					Action: models.ActionSkip,
					Detail: fmt.Sprintf("dry run: would %s", action.Kind),
				})
				continue
			}
			if !e.opts.UseBatch {
				if err := e.executeOne(ctx, summary, action); err != nil {
					e.failRemainingActions(summary, actions[i+1:], "run aborted")
					return err
				}
				continue
			}
			if len(pending) > 0 && pending[0].Kind != action.Kind {
				if err := flush(); err != nil {
					e.failRemainingActions(summary, actions[i:], "run aborted")
					return err
				}
			}
			pending = append(pending, action)
			if len(pending) >= e.opts.BatchSize {
				if err := flush(); err != nil {
					e.failRemainingActions(summary, actions[i+1:], "run aborted")
					return err
				}
			}
		}
	}
	return flush()
}

// executeOne performs a single create or update, converting a
// duplicate-SKU create into an update against the existing product.
func (e *Engine) executeOne(ctx context.Context, summary *models.RunSummary, action models.SyncAction) error {
	rec := action.Record

	switch action.Kind {
	case models.ActionCreate:
		id, err := e.catalog.Create(ctx, rec, action.Images.URLs)
		if err != nil && woocommerce.IsDuplicateSKU(err) {
			id, err = e.convertToUpdate(ctx, action)
			if err == nil {
				e.record(summary, models.Outcome{
					SKU:    rec.SKU,
					Row:    rec.Row,
					Action: models.ActionUpdate,
					Detail: fmt.Sprintf("existed remotely, updated #%d", id),
				})
				return nil
			}
		}
		if err != nil {
			return e.recordFailure(summary, rec, err)
		}
		e.record(summary, models.Outcome{
			SKU:    rec.SKU,
			Row:    rec.Row,
			Action: models.ActionCreate,
			Detail: fmt.Sprintf("created #%d", id),
		})

	case models.ActionUpdate:
		err := e.catalog.Update(ctx, action.RemoteID, rec, action.Images.URLs, action.ImagesOnly, action.DescriptionOnly)
		if err != nil {
			return e.recordFailure(summary, rec, err)
		}
		e.record(summary, models.Outcome{
			SKU:    rec.SKU,
			Row:    rec.Row,
			Action: models.ActionUpdate,
			Detail: updateDetail(action),
		})
	}
	return nil
}

// executeBatch submits one same-kind batch and records per-item
// outcomes. Item failures never fail the batch.
func (e *Engine) executeBatch(ctx context.Context, summary *models.RunSummary, batch []models.SyncAction) error {
	items := make([]woocommerce.BatchItem, len(batch))
	for i, action := range batch {
		items[i] = woocommerce.BatchItem{
			Record:          action.Record,
			URLs:            action.Images.URLs,
			RemoteID:        action.RemoteID,
			ImagesOnly:      action.ImagesOnly,
			DescriptionOnly: action.DescriptionOnly,
		}
	}

	var results []woocommerce.BatchResult
	kind := batch[0].Kind
	if kind == models.ActionCreate {
		results = e.catalog.CreateBatch(ctx, items)
	} else {
		results = e.catalog.UpdateBatch(ctx, items)
	}

	for i, res := range results {
		action := batch[i]
		rec := action.Record

		if res.Err != nil && kind == models.ActionCreate && woocommerce.IsDuplicateSKU(res.Err) {
			if id, err := e.convertToUpdate(ctx, action); err == nil {
				e.record(summary, models.Outcome{
					SKU:    rec.SKU,
					Row:    rec.Row,
					Action: models.ActionUpdate,
					Detail: fmt.Sprintf("existed remotely, updated #%d", id),
				})
				continue
			} else {
				res.Err = err
			}
		}

		if res.Err != nil {
			if woocommerce.IsAuth(res.Err) {
				e.record(summary, models.Outcome{
					SKU: rec.SKU, Row: rec.Row, Action: models.ActionFail, Error: res.Err.Error(),
				})
				e.failRemainingActions(summary, batch[i+1:], "run aborted")
				return &fatalError{reason: "storefront rejected credentials", err: res.Err}
			}
			e.record(summary, models.Outcome{
				SKU: rec.SKU, Row: rec.Row, Action: models.ActionFail, Error: res.Err.Error(),
			})
			continue
		}

		outcome := models.Outcome{SKU: rec.SKU, Row: rec.Row, Action: kind}
		if kind == models.ActionCreate {
			outcome.Detail = fmt.Sprintf("created #%d", res.RemoteID)
		} else {
			outcome.Detail = updateDetail(action)
		}
		e.record(summary, outcome)
	}
	e.emit(BatchCompleted{Summary: *summary})
	return nil
}

// convertToUpdate resolves the remote ID for a SKU that turned out to
// exist and rewrites it in place.
func (e *Engine) convertToUpdate(ctx context.Context, action models.SyncAction) (int64, error) {
	entry, err := e.catalog.FindBySKU(ctx, action.Record.SKU)
	if err != nil {
		return 0, err
	}
	if err := e.catalog.Update(ctx, entry.RemoteID, action.Record, action.Images.URLs, false, false); err != nil {
		return 0, err
	}
	return entry.RemoteID, nil
}

func (e *Engine) recordFailure(summary *models.RunSummary, rec *models.ProductRecord, err error) error {
	e.record(summary, models.Outcome{
		SKU:    rec.SKU,
		Row:    rec.Row,
		Action: models.ActionFail,
		Error:  err.Error(),
	})
	if woocommerce.IsAuth(err) {
		return &fatalError{reason: "storefront rejected credentials", err: err}
	}
	return nil
}

func (e *Engine) failRemaining(summary *models.RunSummary, records []*models.ProductRecord, reason string) {
	for _, rec := range records {
		e.record(summary, models.Outcome{
			SKU:    rec.SKU,
			Row:    rec.Row,
			Action: models.ActionSkip,
			Detail: reason,
		})
	}
}

func (e *Engine) failRemainingActions(summary *models.RunSummary, actions []models.SyncAction, reason string) {
	for _, action := range actions {
		e.record(summary, models.Outcome{
			SKU:    action.Record.SKU,
			Row:    action.Record.Row,
			Action: models.ActionSkip,
			Detail: reason,
		})
	}
}

func (e *Engine) record(summary *models.RunSummary, outcome models.Outcome) {
	switch outcome.Action {
	case models.ActionCreate:
		summary.Created++
	case models.ActionUpdate:
		summary.Updated++
	case models.ActionSkip:
		summary.Skipped++
	case models.ActionFail:
		summary.Failed++
	}
	summary.Outcomes = append(summary.Outcomes, outcome)
	e.emit(RecordCompleted{Outcome: outcome})
}

func (e *Engine) emit(ev Event) {
	if e.opts.OnEvent != nil {
		e.opts.OnEvent(ev)
	}
}

func updateDetail(action models.SyncAction) string {
	switch {
	case action.ImagesOnly:
		return fmt.Sprintf("updated images of #%d", action.RemoteID)
	case action.DescriptionOnly:
		return fmt.Sprintf("updated description of #%d", action.RemoteID)
	default:
		return fmt.Sprintf("updated #%d", action.RemoteID)
	}
}
