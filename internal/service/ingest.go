package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/raphaelgruber/chatdb-go/internal/db"
	"github.com/raphaelgruber/chatdb-go/internal/mapper"
	"github.com/raphaelgruber/chatdb-go/internal/metrics"
	"github.com/raphaelgruber/chatdb-go/internal/models"
	"github.com/raphaelgruber/chatdb-go/internal/stream"
)

// maxFailureSamples bounds the failures kept in IngestResult. Every failure
// is still logged and counted.
const maxFailureSamples = 20

// Stage names the step of a record that failed.
type Stage string

const (
	StageMap   Stage = "map"
	StageWrite Stage = "write"
)

// IngestService streams a chat export into the store.
type IngestService struct {
	db     *db.Client
	logger *slog.Logger
}

// NewIngestService creates a new ingest service.
func NewIngestService(client *db.Client, logger *slog.Logger) *IngestService {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestService{db: client, logger: logger}
}

// IngestOptions configures an import.
type IngestOptions struct {
	// CommitEvery is the number of records per commit (default 100).
	CommitEvery int
	// InputSize is the input length in bytes, or 0 when unknown.
	InputSize int64
	// Progress is called after every commit, including the final one.
	Progress func(Progress)
}

// Progress reports how far an import has got.
type Progress struct {
	Records   int
	Processed int
	Failed    int
	Offset    int64 // bytes consumed by the decoder
	Size      int64 // input size, 0 when unknown
	Done      bool
}

// Fraction returns the share of input consumed, or -1 when the size is unknown.
func (p Progress) Fraction() float64 {
	if p.Size <= 0 {
		return -1
	}
	if p.Done {
		return 1
	}
	return min(float64(p.Offset)/float64(p.Size), 1)
}

// RecordFailure describes one skipped record.
type RecordFailure struct {
	Index  int    // position in the array, from 0
	ChatID string // empty when the record has no usable id
	Stage  Stage
	Err    error
}

func (f RecordFailure) Error() string {
	if f.ChatID == "" {
		return fmt.Sprintf("record %d (%s): %v", f.Index, f.Stage, f.Err)
	}
	return fmt.Sprintf("record %d [%s] (%s): %v", f.Index, f.ChatID, f.Stage, f.Err)
}

func (f RecordFailure) Unwrap() error { return f.Err }

// RowCounts tallies insert outcomes for one table.
type RowCounts struct {
	Inserted int
	Ignored  int // key already present
}

func (c *RowCounts) add(inserted bool) {
	if inserted {
		c.Inserted++
	} else {
		c.Ignored++
	}
}

func (c *RowCounts) merge(o RowCounts) {
	c.Inserted += o.Inserted
	c.Ignored += o.Ignored
}

// IngestResult summarizes an import.
type IngestResult struct {
	// Records is the number of array elements read.
	Records int
	// Processed counts records written without error.
	Processed int
	// Failed counts records skipped after an error. A record that failed
	// after some of its rows were written counts here; those rows stay.
	Failed int

	Chats      RowCounts
	Messages   RowCounts
	Tags       RowCounts
	ChatModels RowCounts

	// SkippedMessages counts message entries without an id, or that were not
	// objects. Their records are still processed.
	SkippedMessages int

	// Failures holds the first failures, up to maxFailureSamples.
	Failures []RecordFailure
	Commits  int
	Metrics  metrics.Snapshot
}

// rowTally is what one record wrote, kept even when the record fails.
type rowTally struct {
	chats, messages, tags, chatModels RowCounts
	skippedMessages                   int
}

// recordOutcome is the result of processing one record. A failure skips the
// record; a fatal error ends the import.
type recordOutcome struct {
	rows    rowTally
	failure *RecordFailure
	fatal   error
}

func (r *IngestResult) add(out recordOutcome) {
	r.Records++
	r.Chats.merge(out.rows.chats)
	r.Messages.merge(out.rows.messages)
	r.Tags.merge(out.rows.tags)
	r.ChatModels.merge(out.rows.chatModels)
	r.SkippedMessages += out.rows.skippedMessages

	if out.failure == nil {
		r.Processed++
		return
	}
	r.Failed++
	if len(r.Failures) < maxFailureSamples {
		r.Failures = append(r.Failures, *out.failure)
	}
}

func (r *IngestResult) progress(dec *stream.ArrayDecoder, size int64, done bool) Progress {
	return Progress{
		Records:   r.Records,
		Processed: r.Processed,
		Failed:    r.Failed,
		Offset:    dec.InputOffset(),
		Size:      size,
		Done:      done,
	}
}

// IngestFile imports the export at path.
func (s *IngestService) IngestFile(ctx context.Context, path string, opts IngestOptions) (*IngestResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	if opts.InputSize == 0 {
		if info, err := f.Stat(); err == nil && info.Mode().IsRegular() {
			opts.InputSize = info.Size()
		}
	}

	s.logger.Info("starting import", "input", path, "store", s.db.Path(), "bytes", opts.InputSize)
	return s.Ingest(ctx, f, opts)
}

// Ingest imports every record of the JSON array read from r.
//
// Records are handled one at a time: decode, map, write. A record that fails
// to map, or whose rows violate a table constraint, is logged and skipped.
// Decode errors and any other store error end the import; writes since the
// last commit are rolled back.
func (s *IngestService) Ingest(ctx context.Context, r io.Reader, opts IngestOptions) (*IngestResult, error) {
	w, err := s.db.NewWriter(ctx, opts.CommitEvery)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := w.Close(); err != nil {
			s.logger.Error("failed to roll back batch", "error", err)
		}
	}()

	collector := metrics.NewCollector()
	dec := stream.NewArrayDecoder(r)
	result := &IngestResult{}

	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		done := collector.Time(metrics.OpDecode)
		raw, err := dec.Next()
		done()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record %d: %w", index, err)
		}

		out := s.processRecord(ctx, w, collector, index, raw)
		if out.fatal != nil {
			s.logger.Error("store error, aborting import", "index", index, "error", out.fatal)
			return nil, fmt.Errorf("write record %d: %w", index, out.fatal)
		}
		result.add(out)
		if f := out.failure; f != nil {
			s.logger.Warn("skipping record",
				"index", f.Index, "chat_id", f.ChatID, "stage", f.Stage, "error", f.Err)
		}

		start := time.Now()
		committed, err := w.RecordDone(ctx)
		if err != nil {
			return nil, err
		}
		if committed {
			collector.RecordTiming(metrics.OpCommit, time.Since(start))
			if opts.Progress != nil {
				opts.Progress(result.progress(dec, opts.InputSize, false))
			}
		}
	}

	done := collector.Time(metrics.OpCommit)
	if err := w.Commit(ctx); err != nil {
		return nil, err
	}
	done()

	result.Commits = w.Commits()
	result.Metrics = collector.Snapshot()
	if opts.Progress != nil {
		opts.Progress(result.progress(dec, opts.InputSize, true))
	}

	s.logger.Info("import complete",
		"records", result.Records,
		"processed", result.Processed,
		"failed", result.Failed,
		"chats_inserted", result.Chats.Inserted,
		"chats_ignored", result.Chats.Ignored,
		"skipped_messages", result.SkippedMessages,
		"commits", result.Commits,
	)
	return result, nil
}

// rowWriter is the part of db.Writer a record is written through.
type rowWriter interface {
	InsertChat(ctx context.Context, c models.Chat) (bool, error)
	InsertMessage(ctx context.Context, m models.Message) (bool, error)
	InsertTag(ctx context.Context, t models.Tag) (bool, error)
	InsertChatModel(ctx context.Context, m models.ChatModel) (bool, error)
}

// processRecord maps and writes one record. Mapping errors, constraint
// violations and panics come back as a failure; any other write error is a
// store error and comes back as fatal.
func (s *IngestService) processRecord(ctx context.Context, w rowWriter, m *metrics.Collector, index int, raw any) (out recordOutcome) {
	stage := StageMap
	chatID := ""
	defer func() {
		if r := recover(); r != nil {
			out.failure = &RecordFailure{Index: index, ChatID: chatID, Stage: stage, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	done := m.Time(metrics.OpMap)
	rec, err := mapper.Map(raw)
	done()
	if err != nil {
		out.failure = &RecordFailure{Index: index, ChatID: peekID(raw), Stage: StageMap, Err: err}
		return out
	}
	chatID = rec.ChatID()
	if rec.SkippedMessages > 0 {
		s.logger.Debug("skipped messages without id", "index", index, "chat_id", chatID, "count", rec.SkippedMessages)
		out.rows.skippedMessages = rec.SkippedMessages
	}

	stage = StageWrite
	done = m.Time(metrics.OpWrite)
	err = writeRecord(ctx, w, rec, &out.rows)
	done()
	switch {
	case err == nil:
	case errors.Is(err, db.ErrConstraint):
		out.failure = &RecordFailure{Index: index, ChatID: chatID, Stage: StageWrite, Err: err}
	default:
		out.fatal = err
	}
	return out
}

// writeRecord writes the chat first, then its children. It stops at the
// first error; rows already written stay.
func writeRecord(ctx context.Context, w rowWriter, rec *models.Record, tally *rowTally) error {
	inserted, err := w.InsertChat(ctx, rec.Chat)
	if err != nil {
		return err
	}
	tally.chats.add(inserted)

	for _, msg := range rec.Messages {
		inserted, err := w.InsertMessage(ctx, msg)
		if err != nil {
			return err
		}
		tally.messages.add(inserted)
	}

	for _, tag := range rec.TagRows() {
		inserted, err := w.InsertTag(ctx, tag)
		if err != nil {
			return err
		}
		tally.tags.add(inserted)
	}

	for _, cm := range rec.ModelRows() {
		inserted, err := w.InsertChatModel(ctx, cm)
		if err != nil {
			return err
		}
		tally.chatModels.add(inserted)
	}
	return nil
}

// peekID returns the record's id when it is a plain string, for diagnostics
// about records the mapper rejected.
func peekID(raw any) string {
	obj, ok := raw.(map[string]any)
	if !ok {
		return ""
	}
	id, _ := obj["id"].(string)
	return id
}
