// Package upload stages files into their slots and forwards them to the
// server that owns each slot.
package upload

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/metrics"
	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/models"
)

// DefaultPreviewLines bounds the preview kept per slot.
const DefaultPreviewLines = 10

// Endpoint sends one file to the server endpoint of its slot.
type Endpoint interface {
	Upload(ctx context.Context, slot models.Slot, filename string, content io.Reader) (*models.UploadReceipt, error)
}

// Signal is emitted by a successful BOM upload and arms progress polling.
type Signal struct {
	Total int
	Chips []string
}

// Result is the outcome of one accepted upload.
type Result struct {
	Slot    models.FileSlot
	Receipt *models.UploadReceipt
	Signal  *Signal
}

// File is one file staged for a slot.
type File struct {
	Slot     models.Slot
	Filename string
	Content  io.Reader
}

// BatchResult pairs a staged file's slot with its outcome.
type BatchResult struct {
	Slot   models.Slot
	Result *Result
	Err    error
}

// Coordinator owns every FileSlot of a session.
type Coordinator struct {
	mu           sync.Mutex
	endpoint     Endpoint
	previewLines int
	slots        map[models.Slot]*models.FileSlot
	seq          map[models.Slot]uint64
	metrics      *metrics.WorkflowMetrics
	onChange     func()
	now          func() time.Time
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithPreviewLines overrides DefaultPreviewLines.
func WithPreviewLines(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.previewLines = n
		}
	}
}

// WithMetrics records upload outcomes.
func WithMetrics(m *metrics.WorkflowMetrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithOnChange registers a callback invoked after every slot mutation.
func WithOnChange(fn func()) Option {
	return func(c *Coordinator) { c.onChange = fn }
}

// NewCoordinator creates a coordinator with every known slot empty.
func NewCoordinator(endpoint Endpoint, opts ...Option) *Coordinator {
	c := &Coordinator{
		endpoint:     endpoint,
		previewLines: DefaultPreviewLines,
		slots:        make(map[models.Slot]*models.FileSlot, len(models.AllSlots)),
		seq:          make(map[models.Slot]uint64, len(models.AllSlots)),
		now:          time.Now,
	}
	for _, slot := range models.AllSlots {
		c.slots[slot] = &models.FileSlot{Slot: slot, Preview: []string{}}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Validate checks a staged file against its slot without any network call.
func Validate(slot models.Slot, filename string) error {
	if !slot.Valid() {
		return models.NewValidationError("upload", "unknown file slot %q", slot)
	}
	name := strings.TrimSpace(filename)
	if name == "" {
		return models.NewValidationError("upload", "no file selected for %s", slot)
	}
	if !slot.Accepts(name) {
		return models.NewValidationError("upload", "%s accepts %s files, got %q",
			slot, strings.Join(slot.AcceptedExtensions(), ", "), filepath.Ext(name))
	}
	return nil
}

// Upload validates and sends one file. A failure is recorded as the slot's
// error message; a previously successful upload in the slot is kept.
func (c *Coordinator) Upload(ctx context.Context, slot models.Slot, filename string, content io.Reader) (*Result, error) {
	if err := Validate(slot, filename); err != nil {
		c.metrics.RecordUpload(ctx, string(slot), "rejected", 0)
		return nil, err
	}

	c.mu.Lock()
	c.seq[slot]++
	token := c.seq[slot]
	c.mu.Unlock()

	start := c.now()
	receipt, err := c.endpoint.Upload(ctx, slot, filepath.Base(filename), content)
	elapsed := c.now().Sub(start)

	c.mu.Lock()
	if c.seq[slot] != token {
		c.mu.Unlock()
		return nil, fmt.Errorf("%s upload: %w", slot, models.ErrSuperseded)
	}

	fs := c.slots[slot]
	if err != nil {
		stepErr := models.NewTransportError("upload "+string(slot), err)
		fs.Error = stepErr.UserMessage()
		c.mu.Unlock()

		log.Printf(`{"level":"warn","message":"Upload failed","slot":"%s","filename":"%s","error":"%v"}`, slot, filename, err)
		c.metrics.RecordUpload(ctx, string(slot), "failed", elapsed)
		c.changed()
		return nil, stepErr
	}

	at := c.now()
	fs.Filename = receipt.Filename
	if fs.Filename == "" {
		fs.Filename = filepath.Base(filename)
	}
	fs.Preview = c.truncate(receipt.Preview)
	fs.Error = ""
	fs.UploadedAt = &at

	result := &Result{Slot: fs.Clone(), Receipt: receipt}
	if slot.ArmsProgress() && receipt.HasChips {
		result.Signal = &Signal{
			Total: max(receipt.TotalParts, 0),
			Chips: append([]string{}, receipt.Chips...),
		}
	}
	c.mu.Unlock()

	c.metrics.RecordUpload(ctx, string(slot), "stored", elapsed)
	c.changed()
	return result, nil
}

// UploadBatch sends files for different slots concurrently. Each file gets
// its own outcome; one failure does not cancel the others.
func (c *Coordinator) UploadBatch(ctx context.Context, files []File) []BatchResult {
	results := make([]BatchResult, len(files))

	var g errgroup.Group
	for i, f := range files {
		results[i].Slot = f.Slot
		g.Go(func() error {
			res, err := c.Upload(ctx, f.Slot, f.Filename, f.Content)
			results[i].Result = res
			results[i].Err = err
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Slot returns a copy of one slot's state.
func (c *Coordinator) Slot(slot models.Slot) (models.FileSlot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fs, ok := c.slots[slot]
	if !ok {
		return models.FileSlot{}, false
	}
	return fs.Clone(), true
}

// Snapshot returns copies of all slots in display order.
func (c *Coordinator) Snapshot() []models.FileSlot {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.FileSlot, 0, len(models.AllSlots))
	for _, slot := range models.AllSlots {
		out = append(out, c.slots[slot].Clone())
	}
	return out
}

// AllUploaded reports whether every given slot holds a file.
func (c *Coordinator) AllUploaded(slots ...models.Slot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, slot := range slots {
		fs, ok := c.slots[slot]
		if !ok || !fs.Uploaded() {
			return false
		}
	}
	return true
}

func (c *Coordinator) truncate(lines []string) []string {
	if len(lines) > c.previewLines {
		lines = lines[:c.previewLines]
	}
	return append([]string{}, lines...)
}

func (c *Coordinator) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}
