package services

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"datacleaner/internal/config"
	"datacleaner/internal/dataprocessing"
	"datacleaner/internal/exporter"
	"datacleaner/internal/shared/testutil"
	"datacleaner/pkg/contracts/domain"
	"datacleaner/pkg/contracts/events"
)

type mockPublisher struct {
	mock.Mock
	mu       sync.Mutex
	messages []events.Message
}

func newMockPublisher() *mockPublisher {
	p := &mockPublisher{}
	p.On("Publish", mock.Anything).Run(func(args mock.Arguments) {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.messages = append(p.messages, args.Get(0).(events.Message))
	}).Return().Maybe()
	return p
}

func (p *mockPublisher) Publish(msg events.Message) {
	p.Called(msg)
}

func (p *mockPublisher) CloseSession(sessionID, reason string) {
	p.Called(sessionID, reason)
}

func (p *mockPublisher) operations() []events.OperationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var ops []events.OperationEvent
	for _, m := range p.messages {
		if ev, ok := m.Data.(events.OperationEvent); ok {
			ops = append(ops, ev)
		}
	}
	return ops
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newService(t *testing.T, cfg config.SessionsConfig, opts ...SessionOption) (*SessionService, *mockPublisher) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	pub := newMockPublisher()
	opts = append([]SessionOption{WithPublisher(pub)}, opts...)
	return NewSessionService(cfg, logger, opts...), pub
}

func upload(t *testing.T, svc *SessionService) string {
	t.Helper()
	resp, err := svc.Create(context.Background(), UploadInput{
		Filename: "sales.csv",
		Body:     strings.NewReader(testutil.SalesCSV),
	})
	require.NoError(t, err)
	return resp.ID
}

func TestSessionService_CreateAndGet(t *testing.T) {
	svc, _ := newService(t, config.SessionsConfig{})
	ctx := context.Background()

	created, err := svc.Create(ctx, UploadInput{Filename: "sales.csv", Body: strings.NewReader(testutil.SalesCSV)})
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "csv", created.Format)
	assert.Equal(t, 4, created.Info.Rows)
	assert.Len(t, created.Info.Columns, 4)
	assert.Equal(t, 1, svc.Count())

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Info, got.Info)
}

func TestSessionService_CreateErrors(t *testing.T) {
	svc, _ := newService(t, config.SessionsConfig{MaxSessions: 1})
	ctx := context.Background()

	_, err := svc.Create(ctx, UploadInput{Filename: "notes.pdf", Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, dataprocessing.ErrUnsupportedFormat)

	_, err = svc.Create(ctx, UploadInput{Filename: "empty.csv", Body: strings.NewReader("")})
	assert.Error(t, err)
	assert.Zero(t, svc.Count())

	upload(t, svc)
	_, err = svc.Create(ctx, UploadInput{Filename: "sales.csv", Body: strings.NewReader(testutil.SalesCSV)})
	assert.ErrorIs(t, err, ErrTooManySessions)
	assert.Equal(t, 1, svc.Count())
}

func TestSessionService_UnknownSession(t *testing.T) {
	svc, _ := newService(t, config.SessionsConfig{})
	ctx := context.Background()

	_, err := svc.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.Describe(ctx, "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, svc.Close(ctx, "nope"), ErrSessionNotFound)
}

func TestSessionService_Preview(t *testing.T) {
	svc, _ := newService(t, config.SessionsConfig{})
	id := upload(t, svc)
	ctx := context.Background()

	head, err := svc.Preview(ctx, id, "", 0)
	require.NoError(t, err)
	assert.Equal(t, "head", head.Mode)
	assert.Len(t, head.Rows, 4, "default preview is capped by the row count")

	tail, err := svc.Preview(ctx, id, "tail", 1)
	require.NoError(t, err)
	require.Len(t, tail.Rows, 1)
	assert.Equal(t, "east", tail.Rows[0][0])

	_, err = svc.Preview(ctx, id, "middle", 1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSessionService_DropColumns(t *testing.T) {
	svc, pub := newService(t, config.SessionsConfig{})
	id := upload(t, svc)
	ctx := context.Background()

	_, err := svc.DropColumns(ctx, id, []string{"price", "missing"})
	assert.ErrorIs(t, err, dataprocessing.ErrColumnNotFound)
	info, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Len(t, info.Info.Columns, 4, "nothing is dropped when a name is unknown")
	assert.Empty(t, pub.operations())

	resp, err := svc.DropColumns(ctx, id, []string{"price"})
	require.NoError(t, err)
	assert.Equal(t, []string{"price"}, resp.Dropped)
	assert.Len(t, resp.Info.Columns, 3)

	ops := pub.operations()
	require.Len(t, ops, 1)
	assert.Equal(t, "drop_columns", ops[0].Operation)
	assert.Equal(t, events.LevelSuccess, ops[0].Level)
	assert.Equal(t, 3, ops[0].Columns)
}

func TestSessionService_MissingAndDuplicates(t *testing.T) {
	svc, pub := newService(t, config.SessionsConfig{})
	id := upload(t, svc)
	ctx := context.Background()

	missing, err := svc.Missing(ctx, id)
	require.NoError(t, err)
	for _, c := range missing.Columns {
		if c.Name == "price" {
			assert.Equal(t, 1, c.Missing)
		}
	}

	matrix, err := svc.MissingMatrix(ctx, id)
	require.NoError(t, err)
	assert.Len(t, matrix.Rows, 4)
	assert.False(t, matrix.Truncated)

	report, err := svc.ApplyMissing(ctx, id, domain.MissingMean)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"price": 1}, report.Filled)

	_, err = svc.ApplyMissing(ctx, id, domain.MissingStrategy("guess"))
	assert.ErrorIs(t, err, dataprocessing.ErrUnknownStrategy)

	dups, err := svc.Duplicates(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, dups.Duplicates)
	assert.Nil(t, dups.Removed)

	dropped, err := svc.DropDuplicates(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, dropped.Removed)
	assert.Equal(t, 1, *dropped.Removed)
	assert.Equal(t, 3, dropped.Rows)

	ops := pub.operations()
	require.Len(t, ops, 2)
	assert.Equal(t, "missing", ops[0].Operation)
	assert.Equal(t, "dedupe", ops[1].Operation)
}

func TestSessionService_Convert(t *testing.T) {
	svc, pub := newService(t, config.SessionsConfig{})
	id := upload(t, svc)
	ctx := context.Background()

	outcome, err := svc.Convert(ctx, id, "day", domain.KindDate)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConverted, outcome.Status)
	assert.Equal(t, domain.KindDate, outcome.To)

	before, err := svc.Get(ctx, id)
	require.NoError(t, err)

	_, err = svc.Convert(ctx, id, "price", domain.KindInteger)
	var coercionErr *dataprocessing.CoercionError
	require.ErrorAs(t, err, &coercionErr)
	assert.Equal(t, domain.ReasonNonIntegerFloatValues, coercionErr.Reason)

	after, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, before.Info.Columns, after.Info.Columns, "rejected conversions leave the dataset untouched")

	_, err = svc.Convert(ctx, id, "nope", domain.KindFloat)
	assert.ErrorIs(t, err, dataprocessing.ErrColumnNotFound)

	ops := pub.operations()
	require.Len(t, ops, 2, "unknown columns publish nothing")
	assert.Equal(t, events.LevelSuccess, ops[0].Level)
	require.NotNil(t, ops[0].Outcome)
	assert.Equal(t, "day", ops[0].Column)
	assert.Equal(t, events.LevelError, ops[1].Level)
	assert.Contains(t, ops[1].Message, "price")
}

func TestSessionService_Analytics(t *testing.T) {
	svc, _ := newService(t, config.SessionsConfig{})
	id := upload(t, svc)
	ctx := context.Background()

	summaries, err := svc.Describe(ctx, id)
	require.NoError(t, err)
	assert.Len(t, summaries, 4)

	counts, err := svc.ValueCounts(ctx, id, "region")
	require.NoError(t, err)
	require.NotEmpty(t, counts.Counts)
	assert.Equal(t, "north", counts.Counts[0].Value)
	assert.Equal(t, 2, counts.Counts[0].Count)

	hist, err := svc.Histogram(ctx, id, "units", 0)
	require.NoError(t, err)
	assert.Len(t, hist.Bins, dataprocessing.DefaultBins)

	_, err = svc.Histogram(ctx, id, "region", 3)
	assert.ErrorIs(t, err, dataprocessing.ErrNotNumeric)

	box, err := svc.BoxPlot(ctx, id, "units")
	require.NoError(t, err)
	assert.Equal(t, 4, box.Count)

	outliers, err := svc.Outliers(ctx, id, "units")
	require.NoError(t, err)
	assert.Equal(t, "units", outliers.Column)

	corr, err := svc.Correlation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"units", "price"}, corr.Columns)

	scatter, err := svc.Scatter(ctx, id, "units", "price")
	require.NoError(t, err)
	assert.Len(t, scatter.Points, 3, "rows with a missing price are skipped")

	groups, err := svc.GroupBy(ctx, id, "region", "units", domain.AggSum)
	require.NoError(t, err)
	require.Len(t, groups.Groups, 3)
	assert.Equal(t, "east", groups.Groups[0].Key)

	trend, err := svc.Trend(ctx, id, "day", "units")
	require.NoError(t, err)
	assert.Len(t, trend.Points, 3)
}

func TestSessionService_Export(t *testing.T) {
	svc, _ := newService(t, config.SessionsConfig{})
	id := upload(t, svc)

	var buf bytes.Buffer
	require.NoError(t, svc.Export(context.Background(), id, &buf, exporter.WriteOptions{}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, "region,units,price,day", lines[0])
	assert.Len(t, lines, 5)
}

func TestSessionService_Close(t *testing.T) {
	svc, pub := newService(t, config.SessionsConfig{})
	id := upload(t, svc)
	ctx := context.Background()
	pub.On("CloseSession", id, CloseReasonClosed).Return().Once()

	require.NoError(t, svc.Close(ctx, id))

	assert.Zero(t, svc.Count())
	assert.ErrorIs(t, svc.Close(ctx, id), ErrSessionNotFound)
	_, err := svc.Get(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	pub.AssertExpectations(t)
}

func TestSessionService_SweepExpiresIdleSessions(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	svc, pub := newService(t, config.SessionsConfig{IdleTTL: time.Minute}, WithClock(clock.Now))
	ctx := context.Background()

	stale := upload(t, svc)
	clock.Advance(50 * time.Second)
	fresh := upload(t, svc)
	clock.Advance(20 * time.Second)

	pub.On("CloseSession", stale, CloseReasonExpired).Return().Once()

	assert.Equal(t, 1, svc.sweep(ctx))
	assert.Equal(t, 1, svc.Count())
	_, err := svc.Get(ctx, fresh)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, stale)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	pub.AssertExpectations(t)
}

func TestSessionService_AccessKeepsSessionAlive(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	svc, _ := newService(t, config.SessionsConfig{IdleTTL: time.Minute}, WithClock(clock.Now))
	ctx := context.Background()
	id := upload(t, svc)

	for i := 0; i < 3; i++ {
		clock.Advance(45 * time.Second)
		_, err := svc.Describe(ctx, id)
		require.NoError(t, err)
		assert.Zero(t, svc.sweep(ctx))
	}
}

func TestSessionService_RunClosesSessionsOnShutdown(t *testing.T) {
	svc, pub := newService(t, config.SessionsConfig{SweepInterval: time.Hour})
	id := upload(t, svc)
	pub.On("CloseSession", id, CloseReasonShutdown).Return().Once()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Zero(t, svc.Count())
	pub.AssertExpectations(t)

	_, err := svc.Create(context.Background(), UploadInput{
		Filename: "sales.csv",
		Body:     strings.NewReader(testutil.SalesCSV),
	})
	assert.ErrorIs(t, err, ErrServiceStopped)
}

func TestSessionService_ConcurrentOperations(t *testing.T) {
	svc, _ := newService(t, config.SessionsConfig{})
	id := upload(t, svc)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			_, err := svc.Describe(ctx, id)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := svc.Convert(ctx, id, "units", domain.KindFloat)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := svc.Preview(ctx, id, "head", 2)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	info, err := svc.Get(ctx, id)
	require.NoError(t, err)
	for _, c := range info.Info.Columns {
		if c.Name == "units" {
			assert.Equal(t, domain.KindFloat, c.Kind)
		}
	}
}
