package handler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/siherrmann/schoolpayManager/catalog"
	"github.com/siherrmann/schoolpayManager/database"
	"github.com/siherrmann/schoolpayManager/grid"
	"github.com/siherrmann/schoolpayManager/metrics"
	"github.com/siherrmann/schoolpayManager/model"
)

// SessionIdleTimeout is how long an unused grid session is kept.
const SessionIdleTimeout = time.Hour

// MaxGridSessions caps the live grid sessions. Creating one more evicts the
// least recently used session.
const MaxGridSessions = 1000

// gridSession is one browser's view of one collection. The engine is not
// safe for concurrent use, mu serializes the requests of the session.
type gridSession struct {
	mu         sync.Mutex
	collection catalog.Collection
	engine     *grid.Engine
	// version is the data version the engine rows were fetched at, 0 if
	// they never were.
	version  uint64
	lastUsed time.Time
}

// SessionRegistry holds the grid sessions and the data version of every
// collection. Mutations bump the version so the next request of each session
// refetches, unchanged collections keep their memoized pipeline.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*gridSession
	versions map[string]uint64
	pageSize int
	max      int
	logger   *slog.Logger
	now      func() time.Time
}

func NewSessionRegistry(logger *slog.Logger, pageSize int) *SessionRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionRegistry{
		sessions: map[string]*gridSession{},
		versions: map[string]uint64{},
		pageSize: pageSize,
		max:      MaxGridSessions,
		logger:   logger,
		now:      time.Now,
	}
}

func sessionKey(sessionID string, collection string) string {
	return sessionID + "/" + collection
}

// get returns the session of sessionID on collection, creating it if needed.
// Idle sessions are pruned on creation, a full registry evicts its least
// recently used session.
func (r *SessionRegistry) get(sessionID string, collection catalog.Collection) *gridSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	key := sessionKey(sessionID, collection.Name)
	if session, ok := r.sessions[key]; ok {
		session.lastUsed = now
		return session
	}

	r.pruneLocked(now)
	for len(r.sessions) >= r.max {
		r.evictLocked()
	}

	opts := collection.Options()
	opts.PageSize = r.pageSize
	opts.Logger = r.logger.With("collection", collection.Name)
	opts.OnRecompute = metrics.StageObserver(collection.Name)

	session := &gridSession{
		collection: collection,
		engine:     grid.New(nil, opts),
		lastUsed:   now,
	}
	r.sessions[key] = session
	metrics.GridSessions.Set(float64(len(r.sessions)))
	return session
}

func (r *SessionRegistry) pruneLocked(now time.Time) {
	for key, session := range r.sessions {
		if now.Sub(session.lastUsed) > SessionIdleTimeout {
			delete(r.sessions, key)
			r.logger.Debug("Pruned idle grid session", "session", key)
		}
	}
}

func (r *SessionRegistry) evictLocked() {
	oldestKey := ""
	var oldest time.Time
	for key, session := range r.sessions {
		if oldestKey == "" || session.lastUsed.Before(oldest) {
			oldestKey, oldest = key, session.lastUsed
		}
	}
	delete(r.sessions, oldestKey)
	r.logger.Debug("Evicted least recently used grid session", "session", oldestKey)
}

// Invalidate marks the data of collection as changed.
func (r *SessionRegistry) Invalidate(collection string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.versions[collection]++
}

func (r *SessionRegistry) version(collection string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Versions start at 1 so a fresh session always fetches.
	return r.versions[collection] + 1
}

// Len returns the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// refresh refetches the rows of the session if the collection changed since
// the last fetch. A failing store puts the engine into its error state and
// the next request retries. The caller holds session.mu.
func (r *SessionRegistry) refresh(session *gridSession, recordDB database.RecordDBHandlerFunctions) {
	version := r.version(session.collection.Name)
	if session.version == version {
		return
	}

	records, err := recordDB.SelectAllRecords(session.collection.Name)
	if err != nil {
		r.logger.Error("Failed to load records", "collection", session.collection.Name, "error", err)
		session.engine.SetError(err)
		session.version = 0
		return
	}

	session.engine.SetRows(model.RecordsToRows(records))
	session.version = version
}
