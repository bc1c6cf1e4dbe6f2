package ingest

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lingocrowd/contribution_control/internal/apperr"
	"github.com/lingocrowd/contribution_control/internal/asset"
	"github.com/lingocrowd/contribution_control/internal/events"
	"github.com/lingocrowd/contribution_control/internal/store"
	"github.com/lingocrowd/contribution_control/internal/task"
)

const (
	DefaultChunkSize = 50

	defaultASRDescription = "Describe what you see in the image in your own words."
)

// Pipeline turns one uploaded file into many pending tasks.
type Pipeline interface {
	Ingest(ctx context.Context, src Source, t task.Type, defaults Defaults) (BatchResult, error)
}

type Option func(*pipeline)

func WithChunkSize(n int) Option {
	return func(p *pipeline) {
		if n > 0 {
			p.chunkSize = n
		}
	}
}

func WithGuard(g Guard) Option {
	return func(p *pipeline) { p.guard = g }
}

func WithDispatcher(d *events.Dispatcher) Option {
	return func(p *pipeline) { p.dispatcher = d }
}

type pipeline struct {
	store      store.Store
	uploader   asset.Uploader
	guard      Guard
	dispatcher *events.Dispatcher
	logger     zerolog.Logger
	chunkSize  int
}

// NewPipeline builds a Pipeline. uploader may be nil, archives are then rejected.
func NewPipeline(st store.Store, uploader asset.Uploader, logger zerolog.Logger, opts ...Option) Pipeline {
	p := &pipeline{
		store:     st,
		uploader:  uploader,
		logger:    logger,
		chunkSize: DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// item is one row or archive entry. prepare runs outside the chunk
// transaction so uploads never hold a database connection.
type item struct {
	label   string
	prepare func(ctx context.Context) (task.Task, error)
}

func (p *pipeline) Ingest(ctx context.Context, src Source, t task.Type, d Defaults) (BatchResult, error) {
	result := newResult(uuid.New())
	name := path.Base(strings.ReplaceAll(src.Name, "\\", "/"))
	if name == "" || name == "." || name == "/" {
		name = "batch"
	}

	items, mode, err := p.plan(ctx, result.BatchID, name, src.Data, t, &d)
	if err != nil {
		return p.reject(result, name, err)
	}

	if p.guard != nil {
		fingerprint := Fingerprint(t, mode, src.Data)
		claimed, err := p.guard.Claim(ctx, fingerprint)
		switch {
		case err != nil:
			p.logger.Warn().Err(err).Str("file", name).Msg("batch guard unavailable, ingesting without dedup")
		case !claimed:
			return p.reject(result, name, apperr.Conflict("batch %s was already ingested", name))
		default:
			defer func() {
				if len(result.Created) > 0 {
					return
				}
				if err := p.guard.Release(context.WithoutCancel(ctx), fingerprint); err != nil {
					p.logger.Warn().Err(err).Str("file", name).Msg("failed to release batch claim")
				}
			}()
		}
	}

	runErr := p.run(ctx, &result, items)

	p.logger.Info().
		Str("batch_id", result.BatchID.String()).
		Str("file", name).
		Str("type", string(t)).
		Int("created", len(result.Created)).
		Int("failed", len(result.Errors)).
		Msg("batch ingested")
	if len(result.Created) > 0 {
		p.dispatcher.Dispatch(events.LifecycleEvent{
			Kind:    events.KindBatchDone,
			BatchID: result.BatchID.String(),
			Created: len(result.Created),
			Failed:  len(result.Errors),
		})
	}
	return result, runErr
}

// reject records a structural failure as the single error of the batch.
func (p *pipeline) reject(result BatchResult, name string, err error) (BatchResult, error) {
	p.logger.Warn().
		Err(err).
		Str("batch_id", result.BatchID.String()).
		Str("file", name).
		Msg("batch rejected")
	item := name
	if errors.Is(err, apperr.ErrSchema) && err.Error() == errNoItems {
		item = "batch"
	}
	result.fail(item, err)
	return result, err
}

// plan runs every structural check and returns the items to create.
// Nothing is written before plan succeeds.
func (p *pipeline) plan(ctx context.Context, batchID uuid.UUID, name string, data []byte, t task.Type, d *Defaults) ([]item, Mode, error) {
	mode, err := normalizeMode(d.Mode)
	if err != nil {
		return nil, "", err
	}
	d.Mode = mode
	if t != task.TypeTranscription && mode == ModePipeline {
		return nil, "", apperr.Schema("pipeline mode applies to transcription batches only")
	}
	if d.CreatorID == uuid.Nil {
		return nil, "", apperr.Schema("missing required field: created_by")
	}
	if d.Priority != "" && !d.Priority.Valid() {
		return nil, "", apperr.Schema("invalid priority: %q", d.Priority)
	}
	kind, err := kindOf(name, t, mode)
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", apperr.Schema("empty file")
	}
	if d.ProjectID != nil {
		if _, err := p.store.Repositories().Tasks.GetProject(ctx, *d.ProjectID); err != nil {
			return nil, "", err
		}
	}

	var items []item
	if kind == KindArchive {
		items, err = p.archiveItems(batchID, data, t, *d)
	} else {
		items, err = p.tableItems(batchID, kind, data, t, *d)
	}
	if err != nil {
		return nil, "", err
	}
	if len(items) == 0 {
		return nil, "", apperr.Schema(errNoItems)
	}
	return items, mode, nil
}

func (p *pipeline) tableItems(batchID uuid.UUID, kind Kind, data []byte, t task.Type, d Defaults) ([]item, error) {
	l, err := layoutFor(t, d.Mode)
	if err != nil {
		return nil, err
	}
	tbl, err := readTable(kind, data)
	if err != nil {
		return nil, err
	}
	if err := checkHeaders(l, tbl.headers); err != nil {
		return nil, err
	}
	if strings.TrimSpace(d.Language) == "" && !tbl.has(languageColumn(t)) {
		return nil, apperr.Schema("missing required field: language")
	}

	items := make([]item, 0, len(tbl.rows))
	for i := range tbl.rows {
		r := tbl.row(i)
		if r.blank() {
			continue
		}
		items = append(items, item{
			label: fmt.Sprintf("row %d", i+2),
			prepare: func(context.Context) (task.Task, error) {
				taskType, language, content, err := rowTask(t, d.Mode, r, d)
				if err != nil {
					return task.Task{}, err
				}
				return task.NewTask(p.input(batchID, taskType, language, content, d))
			},
		})
	}
	return items, nil
}

func (p *pipeline) archiveItems(batchID uuid.UUID, data []byte, t task.Type, d Defaults) ([]item, error) {
	if p.uploader == nil {
		return nil, apperr.Storage(errors.New("no object storage configured"), "archive ingestion unavailable")
	}
	if strings.TrimSpace(d.Language) == "" {
		return nil, apperr.Schema("missing required field: language")
	}
	modality := archiveModality(t)
	entries, err := archiveEntries(data, modality)
	if err != nil {
		return nil, err
	}

	items := make([]item, 0, len(entries))
	for _, f := range entries {
		items = append(items, item{
			label: entryLabel(f),
			prepare: func(ctx context.Context) (task.Task, error) {
				return p.archiveTask(ctx, batchID, f, t, modality, d)
			},
		})
	}
	return items, nil
}

func (p *pipeline) archiveTask(ctx context.Context, batchID uuid.UUID, f *zip.File, t task.Type, m asset.Modality, d Defaults) (task.Task, error) {
	content, mediaType, err := readEntry(f, m)
	if err != nil {
		return task.Task{}, err
	}
	filename := asset.SanitizeFilename(f.Name)
	stored, err := p.uploader.Upload(ctx, asset.UploadInput{
		BatchID:     batchID.String(),
		UploadedBy:  d.CreatorID.String(),
		Filename:    filename,
		ContentType: mediaType,
		Content:     content,
	})
	if err != nil {
		return task.Task{}, err
	}

	var c task.Content
	switch t {
	case task.TypeASR:
		c = &task.ASRContent{
			TaskTitle:       orDefault(strings.TrimSpace(d.TaskTitle), titleFromFilename(filename)),
			TaskDescription: orDefault(strings.TrimSpace(d.TaskDescription), defaultASRDescription),
			ImageURL:        stored.URL,
			FileName:        filename,
		}
	default:
		c = &task.TranscriptionContent{
			AudioURL:        stored.URL,
			FileName:        filename,
			TaskTitle:       orDefault(strings.TrimSpace(d.TaskTitle), titleFromFilename(filename)),
			TaskDescription: strings.TrimSpace(d.TaskDescription),
		}
	}
	return task.NewTask(p.input(batchID, t, d.Language, c, d))
}

func (p *pipeline) input(batchID uuid.UUID, t task.Type, language string, c task.Content, d Defaults) task.CreateTaskInput {
	return task.CreateTaskInput{
		Type:      t,
		Language:  language,
		Priority:  d.Priority,
		Content:   c,
		CreatorID: d.CreatorID,
		ProjectID: d.ProjectID,
		BatchID:   &batchID,
	}
}

type prepared struct {
	label string
	task  task.Task
}

// run inserts items chunk by chunk. A failing item rolls back to its own
// savepoint; a broken chunk transaction fails every item of that chunk.
func (p *pipeline) run(ctx context.Context, result *BatchResult, items []item) error {
	for start := 0; start < len(items); start += p.chunkSize {
		end := min(start+p.chunkSize, len(items))

		ready := make([]prepared, 0, end-start)
		for _, it := range items[start:end] {
			if err := ctx.Err(); err != nil {
				return p.flush(ctx, result, ready, err)
			}
			t, err := it.prepare(ctx)
			if err != nil {
				p.logger.Debug().Err(err).Str("item", it.label).Msg("batch item rejected")
				result.fail(it.label, err)
				continue
			}
			ready = append(ready, prepared{label: it.label, task: t})
		}

		if err := p.flush(ctx, result, ready, nil); err != nil {
			return err
		}
	}
	return nil
}

// flush commits one chunk and returns cause, if any, once the chunk is settled.
func (p *pipeline) flush(ctx context.Context, result *BatchResult, ready []prepared, cause error) error {
	if len(ready) == 0 {
		return cause
	}
	// a canceled caller must not abort the commit of items already prepared
	commitCtx := ctx
	if cause != nil {
		commitCtx = context.WithoutCancel(ctx)
	}

	var created []uuid.UUID
	var failed []ItemError
	err := p.store.Chunk(commitCtx, func(r store.Repositories, sp store.Savepoint) error {
		created, failed = created[:0], failed[:0]
		for i := range ready {
			t := ready[i].task
			err := sp.Run(fmt.Sprintf("item_%d", i), func() error {
				return r.Tasks.CreateTask(commitCtx, &t)
			})
			if errors.Is(err, store.ErrSavepoint) {
				return err
			}
			if err != nil {
				failed = append(failed, ItemError{Item: ready[i].label, Reason: insertReason(err)})
				continue
			}
			created = append(created, t.ID)
		}
		return nil
	})
	if err != nil {
		p.logger.Error().Err(err).Int("items", len(ready)).Msg("batch chunk rolled back")
		for _, pr := range ready {
			result.fail(pr.label, apperr.Storage(err, "chunk rolled back"))
		}
		return cause
	}

	result.Created = append(result.Created, created...)
	result.Errors = append(result.Errors, failed...)
	return cause
}

func insertReason(err error) string {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr.Error()
	}
	return apperr.Storage(err, "insert task").Error()
}
