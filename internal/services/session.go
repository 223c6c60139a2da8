package services

import (
	"sync"
	"sync/atomic"
	"time"

	"datacleaner/internal/dataprocessing"
	api "datacleaner/pkg/contracts/api/v1"
)

// Session is one uploaded dataset and the state needed to expire it.
type Session struct {
	ID        string
	Filename  string
	Format    dataprocessing.Format
	Sheet     string
	CreatedAt time.Time

	// mu serializes every operation on the dataset.
	mu      sync.Mutex
	dataset *dataprocessing.Dataset
	closed  bool

	lastAccess atomic.Int64
}

func newSession(id, filename string, format dataprocessing.Format, sheet string, ds *dataprocessing.Dataset, now time.Time) *Session {
	s := &Session{
		ID:        id,
		Filename:  filename,
		Format:    format,
		Sheet:     sheet,
		CreatedAt: now,
		dataset:   ds,
	}
	s.touch(now)
	return s
}

func (s *Session) touch(now time.Time) {
	s.lastAccess.Store(now.UnixNano())
}

// LastAccess returns the time of the last operation.
func (s *Session) LastAccess() time.Time {
	return time.Unix(0, s.lastAccess.Load()).UTC()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastAccess.Load()))
}

// response describes the session. Callers hold s.mu.
func (s *Session) response() api.SessionResponse {
	return api.SessionResponse{
		ID:         s.ID,
		Filename:   s.Filename,
		Format:     string(s.Format),
		Sheet:      s.Sheet,
		CreatedAt:  s.CreatedAt.UTC(),
		LastAccess: s.LastAccess(),
		Info:       s.dataset.Info(),
	}
}
