package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

const jsonlContentType = "application/x-ndjson"

// ArchiverConfig controls batching.
type ArchiverConfig struct {
	// BatchSize flushes once this many samples are buffered.
	BatchSize int
	// FlushInterval flushes whatever is buffered on this cadence.
	FlushInterval time.Duration
	// Prefix is the key prefix, e.g. "samples".
	Prefix string
}

// SampleArchiver buffers spread samples and uploads them as JSONL objects at
// {prefix}/{SYMBOL}/{YYYY-MM-DD}/{unix_nanos}.jsonl for offline backtests.
type SampleArchiver struct {
	writer domain.BlobWriter
	audit  domain.AuditStore
	cfg    ArchiverConfig
	logger *slog.Logger
	now    func() time.Time

	mu  sync.Mutex
	buf []domain.SpreadSample
}

// NewSampleArchiver creates an archiver. audit may be nil.
func NewSampleArchiver(writer domain.BlobWriter, audit domain.AuditStore, cfg ArchiverConfig, logger *slog.Logger) *SampleArchiver {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5000
	}
	return &SampleArchiver{
		writer: writer,
		audit:  audit,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "sample_archiver")),
		now:    time.Now,
	}
}

// Add buffers s and flushes when the batch is full.
func (a *SampleArchiver) Add(ctx context.Context, s domain.SpreadSample) error {
	a.mu.Lock()
	a.buf = append(a.buf, s)
	full := len(a.buf) >= a.cfg.BatchSize
	a.mu.Unlock()

	if full {
		return a.Flush(ctx)
	}
	return nil
}

// Flush uploads all buffered samples, one object per symbol. Samples are
// dropped from the buffer even if an upload fails.
func (a *SampleArchiver) Flush(ctx context.Context) error {
	a.mu.Lock()
	batch := a.buf
	a.buf = nil
	a.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}

	bySymbol := make(map[string][]domain.SpreadSample)
	for _, s := range batch {
		bySymbol[s.Symbol] = append(bySymbol[s.Symbol], s)
	}
	symbols := make([]string, 0, len(bySymbol))
	for sym := range bySymbol {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	var firstErr error
	for _, sym := range symbols {
		if err := a.upload(ctx, sym, bySymbol[sym]); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (a *SampleArchiver) upload(ctx context.Context, symbol string, samples []domain.SpreadSample) error {
	data, err := marshalJSONL(samples)
	if err != nil {
		return fmt.Errorf("s3blob: archive %s marshal: %w", symbol, err)
	}

	path := samplePath(a.cfg.Prefix, symbol, a.now())
	if int64(len(data)) > minPartSize {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(data), minPartSize)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(data), jsonlContentType)
	}
	if err != nil {
		return fmt.Errorf("s3blob: archive %s upload: %w", symbol, err)
	}

	a.logger.Info("samples archived",
		slog.String("path", path),
		slog.Int("count", len(samples)),
		slog.Int("bytes", len(data)),
	)
	if a.audit != nil {
		if err := a.audit.Log(ctx, "archive.samples", map[string]any{
			"path":   path,
			"symbol": symbol,
			"count":  len(samples),
		}); err != nil {
			a.logger.Warn("archive audit log failed", slog.String("error", err.Error()))
		}
	}
	return nil
}

// Run flushes on FlushInterval until ctx is done, then performs a final
// flush with a fresh deadline.
func (a *SampleArchiver) Run(ctx context.Context) error {
	interval := a.cfg.FlushInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := a.Flush(flushCtx); err != nil {
				a.logger.Error("final archive flush failed", slog.String("error", err.Error()))
			}
			return nil
		case <-ticker.C:
			if err := a.Flush(ctx); err != nil {
				a.logger.Warn("archive flush failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Pending reports how many samples are buffered.
func (a *SampleArchiver) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buf)
}

func samplePath(prefix, symbol string, at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("%s/%s/%s/%d.jsonl", prefix, symbol, at.Format("2006-01-02"), at.UnixNano())
}

// marshalJSONL encodes records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
