package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"datacleaner/internal/config"
	"datacleaner/internal/dataprocessing"
	"datacleaner/internal/exporter"
	"datacleaner/internal/infrastructure"
	"datacleaner/internal/websocket"
	api "datacleaner/pkg/contracts/api/v1"
	"datacleaner/pkg/contracts/domain"
	"datacleaner/pkg/contracts/events"
)

// Reasons sent to websocket subscribers when a session ends.
const (
	CloseReasonClosed   = "closed"
	CloseReasonExpired  = "expired"
	CloseReasonShutdown = "shutdown"
)

// UploadInput is a file to open as a new session.
type UploadInput struct {
	Filename  string
	Sheet     string
	Delimiter rune
	Body      io.Reader
}

// SessionService owns the in-memory session store and runs every dataset
// operation under the session's lock.
type SessionService struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	stopped  bool

	cfg       config.SessionsConfig
	loader    *dataprocessing.Loader
	coercer   *dataprocessing.Coercer
	writer    *exporter.CSVWriter
	publisher websocket.Publisher
	metrics   *infrastructure.BusinessMetrics
	tracer    trace.Tracer
	logger    *slog.Logger
	now       func() time.Time
}

// SessionOption customizes a SessionService.
type SessionOption func(*SessionService)

// WithPublisher sends operation events to websocket subscribers.
func WithPublisher(p websocket.Publisher) SessionOption {
	return func(s *SessionService) { s.publisher = p }
}

// WithMetrics records session and operation metrics.
func WithMetrics(m *infrastructure.BusinessMetrics) SessionOption {
	return func(s *SessionService) { s.metrics = m }
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) SessionOption {
	return func(s *SessionService) { s.tracer = t }
}

// WithClock overrides time.Now, for expiry tests.
func WithClock(now func() time.Time) SessionOption {
	return func(s *SessionService) { s.now = now }
}

// NewSessionService creates an empty store. Zero limits fall back to the
// config defaults.
func NewSessionService(cfg config.SessionsConfig, logger *slog.Logger, opts ...SessionOption) *SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = config.DefaultMaxSessions
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = config.DefaultSessionTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = config.DefaultSweepInterval
	}

	s := &SessionService{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		loader:   dataprocessing.NewLoader(logger),
		coercer:  dataprocessing.NewCoercer(logger),
		writer:   exporter.NewCSVWriter("", logger),
		logger:   logger.With(slog.String("component", "session_service")),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(infrastructure.MeterName + "/services")
	}
	return s
}

// Count returns the number of open sessions.
func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Create loads an upload into a new session. The session limit is checked
// before and after parsing so a full store rejects uploads cheaply.
func (s *SessionService) Create(ctx context.Context, in UploadInput) (api.SessionResponse, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "session.create",
		trace.WithAttributes(attribute.String("file.name", in.Filename)))
	defer span.End()

	resp, err := s.create(ctx, in)
	infrastructure.RecordOperationMetrics(ctx, s.metrics, "upload", time.Since(start), err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return resp, err
	}
	span.SetAttributes(attribute.String("session.id", resp.ID))
	return resp, nil
}

func (s *SessionService) create(ctx context.Context, in UploadInput) (api.SessionResponse, error) {
	if s.Count() >= s.cfg.MaxSessions {
		return api.SessionResponse{}, ErrTooManySessions
	}

	format, err := dataprocessing.FormatFromFilename(in.Filename)
	if err != nil {
		return api.SessionResponse{}, err
	}

	ds, err := s.loader.Load(in.Body, dataprocessing.LoadOptions{
		Format:    format,
		Sheet:     in.Sheet,
		Delimiter: in.Delimiter,
	})
	if err != nil {
		return api.SessionResponse{}, err
	}

	sess := newSession(uuid.New().String(), in.Filename, format, in.Sheet, ds, s.now())

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return api.SessionResponse{}, ErrServiceStopped
	}
	if len(s.sessions) >= s.cfg.MaxSessions {
		s.mu.Unlock()
		return api.SessionResponse{}, ErrTooManySessions
	}
	s.sessions[sess.ID] = sess
	open := len(s.sessions)
	s.mu.Unlock()

	infrastructure.RecordSessionChange(ctx, s.metrics, 1)
	infrastructure.RecordRowsIngested(ctx, s.metrics, string(format), ds.Rows())

	s.logger.InfoContext(ctx, "session created",
		slog.String("session_id", sess.ID),
		slog.String("file", in.Filename),
		slog.String("format", string(format)),
		slog.Int("rows", ds.Rows()),
		slog.Int("columns", ds.Width()),
		slog.Int("open_sessions", open),
	)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.response(), nil
}

// ListSheets returns the sheet names of a workbook without opening a
// session.
func (s *SessionService) ListSheets(ctx context.Context, r io.Reader) ([]string, error) {
	_, span := s.tracer.Start(ctx, "session.list_sheets")
	defer span.End()

	sheets, err := dataprocessing.ListSheets(r)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	return sheets, nil
}

// Get describes a session.
func (s *SessionService) Get(ctx context.Context, id string) (api.SessionResponse, error) {
	var resp api.SessionResponse
	err := s.run(ctx, id, "info", func(_ context.Context, sess *Session) error {
		resp = sess.response()
		return nil
	})
	return resp, err
}

// Close removes a session and disconnects its subscribers.
func (s *SessionService) Close(ctx context.Context, id string) error {
	sess, err := s.lookup(id)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return ErrSessionNotFound
	}
	s.remove(ctx, sess, CloseReasonClosed)
	return nil
}

// Preview returns the first ("head") or last ("tail") n rows.
func (s *SessionService) Preview(ctx context.Context, id, mode string, n int) (domain.Preview, error) {
	if n <= 0 {
		n = config.DefaultPreviewRows
	}
	if n > config.MaxPreviewRows {
		n = config.MaxPreviewRows
	}

	var p domain.Preview
	err := s.run(ctx, id, "preview", func(_ context.Context, sess *Session) error {
		switch mode {
		case "", "head":
			p = sess.dataset.Head(n)
		case "tail":
			p = sess.dataset.Tail(n)
		default:
			return fmt.Errorf("%w: preview mode %q", ErrInvalidInput, mode)
		}
		return nil
	})
	return p, err
}

// DropColumns removes columns. An unknown name rejects the whole request.
func (s *SessionService) DropColumns(ctx context.Context, id string, columns []string) (api.DropColumnsResponse, error) {
	var resp api.DropColumnsResponse
	err := s.run(ctx, id, "drop_columns", func(ctx context.Context, sess *Session) error {
		if err := sess.dataset.DropColumns(columns...); err != nil {
			return err
		}
		resp = api.DropColumnsResponse{Dropped: columns, Info: sess.dataset.Info()}
		s.publishOperation(ctx, sess, events.OperationEvent{
			Operation: "drop_columns",
			Level:     events.LevelSuccess,
			Message:   fmt.Sprintf("dropped %d column(s)", len(columns)),
			Details:   map[string]interface{}{"columns": columns},
		})
		return nil
	})
	return resp, err
}

// Missing returns per-column missing counts.
func (s *SessionService) Missing(ctx context.Context, id string) (api.MissingResponse, error) {
	var resp api.MissingResponse
	err := s.run(ctx, id, "missing", func(_ context.Context, sess *Session) error {
		resp = api.MissingResponse{
			Rows:    sess.dataset.Rows(),
			Columns: dataprocessing.MissingCounts(sess.dataset),
		}
		return nil
	})
	return resp, err
}

// MissingMatrix marks missing cells of the leading rows.
func (s *SessionService) MissingMatrix(ctx context.Context, id string) (domain.MissingMatrix, error) {
	var m domain.MissingMatrix
	err := s.run(ctx, id, "missing_matrix", func(_ context.Context, sess *Session) error {
		m = dataprocessing.MissingMatrix(sess.dataset, config.MissingMatrixRows)
		return nil
	})
	return m, err
}

// ApplyMissing applies a missing value strategy.
func (s *SessionService) ApplyMissing(ctx context.Context, id string, strategy domain.MissingStrategy) (domain.FillReport, error) {
	var report domain.FillReport
	err := s.run(ctx, id, "missing_strategy", func(ctx context.Context, sess *Session) error {
		var err error
		report, err = dataprocessing.ApplyMissingStrategy(sess.dataset, strategy)
		if err != nil {
			return err
		}
		filled := 0
		for _, n := range report.Filled {
			filled += n
		}
		s.publishOperation(ctx, sess, events.OperationEvent{
			Operation: "missing",
			Level:     events.LevelSuccess,
			Message: fmt.Sprintf("strategy %s: %d value(s) filled, %d row(s) removed",
				strategy, filled, report.RowsBefore-report.RowsAfter),
			Details: map[string]interface{}{"strategy": string(strategy)},
		})
		return nil
	})
	return report, err
}

// Duplicates counts rows repeating an earlier row.
func (s *SessionService) Duplicates(ctx context.Context, id string) (api.DuplicatesResponse, error) {
	var resp api.DuplicatesResponse
	err := s.run(ctx, id, "duplicates", func(_ context.Context, sess *Session) error {
		resp = api.DuplicatesResponse{
			Duplicates: dataprocessing.DuplicateCount(sess.dataset),
			Rows:       sess.dataset.Rows(),
		}
		return nil
	})
	return resp, err
}

// DropDuplicates removes repeated rows, keeping first occurrences.
func (s *SessionService) DropDuplicates(ctx context.Context, id string) (api.DuplicatesResponse, error) {
	var resp api.DuplicatesResponse
	err := s.run(ctx, id, "dedupe", func(ctx context.Context, sess *Session) error {
		removed := dataprocessing.DropDuplicates(sess.dataset)
		resp = api.DuplicatesResponse{Removed: &removed, Rows: sess.dataset.Rows()}
		s.publishOperation(ctx, sess, events.OperationEvent{
			Operation: "dedupe",
			Level:     events.LevelSuccess,
			Message:   fmt.Sprintf("removed %d duplicate row(s)", removed),
		})
		return nil
	})
	return resp, err
}

// Convert coerces a column. Rejected conversions return a
// *dataprocessing.CoercionError and leave the column untouched.
func (s *SessionService) Convert(ctx context.Context, id, column string, target domain.Kind) (domain.ConversionOutcome, error) {
	var outcome domain.ConversionOutcome
	err := s.run(ctx, id, "convert", func(ctx context.Context, sess *Session) error {
		trace.SpanFromContext(ctx).SetAttributes(
			attribute.String("column", column),
			attribute.String("target", string(target)),
		)

		var err error
		outcome, err = s.coercer.Convert(sess.dataset, column, target)
		if errors.Is(err, dataprocessing.ErrColumnNotFound) {
			return err
		}

		level := outcome.Level()
		infrastructure.RecordCoercion(ctx, s.metrics, string(target), level)

		msg := outcome.Message
		if err != nil {
			level = events.LevelError
			msg = err.Error()
		}
		ev := events.OperationEvent{
			Operation: "convert",
			Level:     level,
			Message:   msg,
			Column:    column,
			Outcome:   &outcome,
		}
		s.publishOperation(ctx, sess, ev)
		return err
	})
	return outcome, err
}

// Describe returns per-column descriptive statistics.
func (s *SessionService) Describe(ctx context.Context, id string) ([]domain.ColumnSummary, error) {
	var summaries []domain.ColumnSummary
	err := s.run(ctx, id, "describe", func(_ context.Context, sess *Session) error {
		summaries = dataprocessing.Describe(sess.dataset)
		return nil
	})
	return summaries, err
}

// ValueCounts returns distinct values of a column by frequency.
func (s *SessionService) ValueCounts(ctx context.Context, id, column string) (api.ValueCountsResponse, error) {
	resp := api.ValueCountsResponse{Column: column}
	err := s.run(ctx, id, "value_counts", func(_ context.Context, sess *Session) error {
		var err error
		resp.Counts, err = dataprocessing.ValueCounts(sess.dataset, column)
		return err
	})
	return resp, err
}

// Histogram bins a numeric column. bins <= 0 uses the default.
func (s *SessionService) Histogram(ctx context.Context, id, column string, bins int) (domain.Histogram, error) {
	if bins <= 0 {
		bins = dataprocessing.DefaultBins
	}
	var h domain.Histogram
	err := s.run(ctx, id, "histogram", func(_ context.Context, sess *Session) error {
		var err error
		h, err = dataprocessing.Histogram(sess.dataset, column, bins)
		return err
	})
	return h, err
}

// BoxPlot summarizes a numeric column.
func (s *SessionService) BoxPlot(ctx context.Context, id, column string) (domain.BoxPlot, error) {
	var b domain.BoxPlot
	err := s.run(ctx, id, "boxplot", func(_ context.Context, sess *Session) error {
		var err error
		b, err = dataprocessing.BoxPlot(sess.dataset, column)
		return err
	})
	return b, err
}

// Outliers lists the values of a column beyond the boxplot whiskers.
func (s *SessionService) Outliers(ctx context.Context, id, column string) (api.OutliersResponse, error) {
	resp := api.OutliersResponse{Column: column}
	err := s.run(ctx, id, "outliers", func(_ context.Context, sess *Session) error {
		var err error
		resp.Outliers, err = dataprocessing.Outliers(sess.dataset, column)
		return err
	})
	return resp, err
}

// Correlation returns the Pearson matrix of the numeric columns.
func (s *SessionService) Correlation(ctx context.Context, id string) (domain.CorrelationMatrix, error) {
	var m domain.CorrelationMatrix
	err := s.run(ctx, id, "correlation", func(_ context.Context, sess *Session) error {
		m = dataprocessing.Correlation(sess.dataset)
		return nil
	})
	return m, err
}

// Scatter pairs two numeric columns.
func (s *SessionService) Scatter(ctx context.Context, id, x, y string) (api.ScatterResponse, error) {
	resp := api.ScatterResponse{X: x, Y: y}
	err := s.run(ctx, id, "scatter", func(_ context.Context, sess *Session) error {
		var err error
		resp.Points, err = dataprocessing.Scatter(sess.dataset, x, y)
		return err
	})
	return resp, err
}

// GroupBy aggregates value per distinct key of by.
func (s *SessionService) GroupBy(ctx context.Context, id, by, value string, agg domain.Aggregation) (api.GroupByResponse, error) {
	resp := api.GroupByResponse{By: by, Value: value, Agg: agg}
	err := s.run(ctx, id, "groupby", func(_ context.Context, sess *Session) error {
		var err error
		resp.Groups, err = dataprocessing.GroupBy(sess.dataset, by, value, agg)
		return err
	})
	return resp, err
}

// Trend averages value per time key.
func (s *SessionService) Trend(ctx context.Context, id, timeColumn, value string) (api.TrendResponse, error) {
	resp := api.TrendResponse{Time: timeColumn, Value: value}
	err := s.run(ctx, id, "trend", func(_ context.Context, sess *Session) error {
		var err error
		resp.Points, err = dataprocessing.Trend(sess.dataset, timeColumn, value)
		return err
	})
	return resp, err
}

// Export streams the dataset as CSV.
func (s *SessionService) Export(ctx context.Context, id string, w io.Writer, opts exporter.WriteOptions) error {
	return s.run(ctx, id, "export", func(_ context.Context, sess *Session) error {
		return s.writer.WriteDataset(w, sess.dataset, opts)
	})
}

// Run expires idle sessions every sweep interval until ctx is cancelled,
// then closes the remaining sessions.
func (s *SessionService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "session sweeper started",
		slog.Duration("idle_ttl", s.cfg.IdleTTL),
		slog.Duration("sweep_interval", s.cfg.SweepInterval),
		slog.Int("max_sessions", s.cfg.MaxSessions),
	)

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.stopped = true
			s.mu.Unlock()
			n := s.closeAll(context.Background(), CloseReasonShutdown)
			s.logger.Info("session sweeper stopped", slog.Int("closed_sessions", n))
			return nil
		case <-ticker.C:
			if n := s.sweep(ctx); n > 0 {
				s.logger.InfoContext(ctx, "expired idle sessions",
					slog.Int("expired", n),
					slog.Int("open_sessions", s.Count()))
			}
		}
	}
}

// sweep closes sessions idle for longer than the TTL. Sessions busy with
// an operation are skipped; they are not idle.
func (s *SessionService) sweep(ctx context.Context) int {
	now := s.now()

	s.mu.RLock()
	var candidates []*Session
	for _, sess := range s.sessions {
		if sess.idleSince(now) > s.cfg.IdleTTL {
			candidates = append(candidates, sess)
		}
	}
	s.mu.RUnlock()

	expired := 0
	for _, sess := range candidates {
		if !sess.mu.TryLock() {
			continue
		}
		if !sess.closed && sess.idleSince(now) > s.cfg.IdleTTL {
			s.remove(ctx, sess, CloseReasonExpired)
			expired++
		}
		sess.mu.Unlock()
	}
	return expired
}

func (s *SessionService) closeAll(ctx context.Context, reason string) int {
	s.mu.RLock()
	all := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		all = append(all, sess)
	}
	s.mu.RUnlock()

	for _, sess := range all {
		sess.mu.Lock()
		if !sess.closed {
			s.remove(ctx, sess, reason)
		}
		sess.mu.Unlock()
	}
	return len(all)
}

// remove drops sess from the store. Callers hold sess.mu.
func (s *SessionService) remove(ctx context.Context, sess *Session, reason string) {
	sess.closed = true

	s.mu.Lock()
	delete(s.sessions, sess.ID)
	open := len(s.sessions)
	s.mu.Unlock()

	infrastructure.RecordSessionChange(ctx, s.metrics, -1)
	if s.publisher != nil {
		s.publisher.CloseSession(sess.ID, reason)
	}

	s.logger.InfoContext(ctx, "session closed",
		slog.String("session_id", sess.ID),
		slog.String("reason", reason),
		slog.Duration("age", s.now().Sub(sess.CreatedAt)),
		slog.Int("open_sessions", open),
	)
}

func (s *SessionService) lookup(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// run executes fn on the session's dataset under its lock, inside a span,
// and records the operation metrics.
func (s *SessionService) run(ctx context.Context, id, operation string, fn func(context.Context, *Session) error) error {
	start := time.Now()
	ctx = infrastructure.WithSessionID(ctx, id)
	ctx, span := s.tracer.Start(ctx, "session."+operation, trace.WithAttributes(
		attribute.String("session.id", id),
		attribute.String("operation", operation),
	))
	defer span.End()

	err := s.runLocked(ctx, id, fn)

	infrastructure.RecordOperationMetrics(ctx, s.metrics, operation, time.Since(start), err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		s.logger.DebugContext(ctx, "operation failed",
			slog.String("operation", operation),
			slog.String("error", err.Error()))
	}
	return err
}

func (s *SessionService) runLocked(ctx context.Context, id string, fn func(context.Context, *Session) error) error {
	sess, err := s.lookup(id)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return ErrSessionNotFound
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err = fn(ctx, sess)
	sess.touch(s.now())
	return err
}

// publishOperation stamps ev with the dataset shape and sends it to the
// session's subscribers. Callers hold sess.mu.
func (s *SessionService) publishOperation(ctx context.Context, sess *Session, ev events.OperationEvent) {
	infrastructure.AddSpanEvent(ctx, ev.Operation, ev.Details)
	if s.publisher == nil {
		return
	}
	ev.Rows = sess.dataset.Rows()
	ev.Columns = sess.dataset.Width()

	msg := events.NewMessage(events.MessageTypeOperation, sess.ID, ev)
	msg.TraceID = infrastructure.GetTraceID(ctx)
	s.publisher.Publish(msg)
}
