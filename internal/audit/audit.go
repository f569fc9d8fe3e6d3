// Package audit is a best-effort session-event sink: it records
// connect/stream/cancel/disconnect events for operational visibility,
// never for quote replay. Nothing in the data plane ever blocks on it.
package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Store wraps the MongoDB connection used for session audit events.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials uri and pings the server. dbName is used verbatim;
// callers typically embed it in the URI path as the teacher does.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}
	return &Store{client: client, db: client.Database(dbName)}, nil
}

func (s *Store) Close(ctx context.Context) {
	s.client.Disconnect(ctx)
}

// EnsureIndexes creates the compound (session_id ascending, at
// descending) index on the session_events collection.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection("session_events").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "at", Value: -1}},
	})
	return err
}

type event struct {
	SessionID string    `bson:"session_id"`
	Event     string    `bson:"event"`
	Detail    string    `bson:"detail"`
	At        time.Time `bson:"at"`
}

// Metrics is the subset of counters the Sink updates. A nil Metrics is
// a valid no-op.
type Metrics interface {
	AuditDropped()
}

// Sink is the server.AuditSink implementation backed by Store. Writes
// happen on a bounded, non-blocking channel drained by a background
// worker; the channel filling up means events are dropped, not that
// the command front-end ever waits on Mongo.
type Sink struct {
	store   *Store
	ch      chan event
	metrics Metrics
	log     zerolog.Logger
}

const queueCapacity = 1024

func NewSink(store *Store, metrics Metrics, log zerolog.Logger) *Sink {
	return &Sink{store: store, ch: make(chan event, queueCapacity), metrics: metrics, log: log}
}

// Run drains the event queue until ctx is canceled. Callers start it
// in its own goroutine.
func (s *Sink) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.ch:
			insertCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			_, err := s.store.db.Collection("session_events").InsertOne(insertCtx, ev)
			cancel()
			if err != nil {
				s.log.Debug().Err(err).Str("session_id", ev.SessionID).Msg("audit: insert failed")
			}
		}
	}
}

// Record satisfies server.AuditSink. It never blocks: a full queue
// drops the event and counts it via Metrics.AuditDropped.
func (s *Sink) Record(sessionID, evt, detail string) {
	select {
	case s.ch <- event{SessionID: sessionID, Event: evt, Detail: detail, At: time.Now()}:
	default:
		s.log.Debug().Str("session_id", sessionID).Str("event", evt).Msg("audit: queue full, dropping event")
		if s.metrics != nil {
			s.metrics.AuditDropped()
		}
	}
}
