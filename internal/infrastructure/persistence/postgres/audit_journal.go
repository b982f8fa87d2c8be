package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/travy/admin-hub/internal/domain/shared"
	"github.com/travy/admin-hub/pkg/logger"
)

// AuditedEvents are the events written to the journal.
var AuditedEvents = []shared.EventType{
	shared.EventUserBlocked,
	shared.EventUserUnblocked,
	shared.EventInfluencerDeleted,
	shared.EventMutationFailed,
	shared.EventSignedIn,
	shared.EventSignedOut,
	shared.EventSessionExpired,
}

// Entry is one journal row.
type Entry struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	EventType   string          `db:"event_type" json:"eventType"`
	AggregateID string          `db:"aggregate_id" json:"aggregateId"`
	Actor       string          `db:"actor" json:"actor"`
	OccurredAt  time.Time       `db:"occurred_at" json:"occurredAt"`
	Payload     json.RawMessage `db:"payload" json:"payload"`
}

// EntryFromEvent builds a journal row. The actor is the token fingerprint
// carried by the event, never the token.
func EntryFromEvent(event shared.Event) (Entry, error) {
	payload := event.Payload()
	data, err := json.Marshal(payload)
	if err != nil {
		return Entry{}, fmt.Errorf("marshal payload: %w", err)
	}

	actor, _ := payload["actor"].(string)
	if actor == "" {
		actor, _ = payload["fingerprint"].(string)
	}

	return Entry{
		ID:          uuid.New(),
		EventType:   string(event.EventType()),
		AggregateID: event.AggregateID(),
		Actor:       actor,
		OccurredAt:  event.OccurredAt().UTC(),
		Payload:     data,
	}, nil
}

// AuditJournal appends admin actions to admin_audit_log.
type AuditJournal struct {
	db           Querier
	logger       *zap.Logger
	writeTimeout time.Duration
}

// NewAuditJournal creates a journal over db.
func NewAuditJournal(db Querier, log *zap.Logger) *AuditJournal {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuditJournal{
		db:           db,
		logger:       log.With(logger.Component("audit")),
		writeTimeout: 5 * time.Second,
	}
}

// Append writes one entry.
func (j *AuditJournal) Append(ctx context.Context, e Entry) error {
	_, err := j.db.Exec(ctx, `
		INSERT INTO admin_audit_log (id, event_type, aggregate_id, actor, occurred_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID, e.EventType, e.AggregateID, e.Actor, e.OccurredAt, []byte(e.Payload))
	if err != nil {
		return shared.WrapError("audit", "Append", shared.ErrServiceUnavailable, "write audit entry", err)
	}
	return nil
}

// Recent returns the newest entries, newest first.
func (j *AuditJournal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.Query(ctx, `
		SELECT id, event_type, aggregate_id, actor, occurred_at, payload
		FROM admin_audit_log
		ORDER BY occurred_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, shared.WrapError("audit", "Recent", shared.ErrServiceUnavailable, "read audit entries", err)
	}
	entries, err := pgx.CollectRows(rows, pgx.RowToStructByName[Entry])
	if err != nil {
		return nil, fmt.Errorf("scan audit entries: %w", err)
	}
	return entries, nil
}

// Handle is the event bus handler.
func (j *AuditJournal) Handle(event shared.Event) error {
	entry, err := EntryFromEvent(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.writeTimeout)
	defer cancel()

	if err := j.Append(ctx, entry); err != nil {
		j.logger.Warn("audit write failed",
			zap.String("event_type", entry.EventType),
			logger.RecordID(entry.AggregateID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// Subscribe registers the journal for every audited event.
func (j *AuditJournal) Subscribe(bus shared.EventSubscriber) error {
	for _, t := range AuditedEvents {
		if err := bus.Subscribe(t, j.Handle); err != nil {
			return fmt.Errorf("subscribe %s: %w", t, err)
		}
	}
	return nil
}
