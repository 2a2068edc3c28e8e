package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	pkgerrors "lookout/pkg/errors"
	"lookout/pkg/models"
)

const ledgerCollection = "processed_events"

type mongoRecord struct {
	ID            string    `bson:"_id"`
	EventID       string    `bson:"event_id"`
	Notified      bool      `bson:"notified"`
	VerdictReason string    `bson:"verdict_reason"`
	SourceName    string    `bson:"source_name"`
	Category      string    `bson:"category"`
	SubjectTitle  string    `bson:"subject_title"`
	RecordedAt    time.Time `bson:"recorded_at"`
}

type MongoLedger struct {
	collection *mongo.Collection
}

func NewMongoLedger(db *mongo.Database) *MongoLedger {
	return &MongoLedger{collection: db.Collection(ledgerCollection)}
}

func (l *MongoLedger) Exists(ctx context.Context, eventID string) (bool, error) {
	err := l.collection.FindOne(ctx, bson.M{"event_id": eventID}, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, pkgerrors.ErrStoreUnavailable.WithCause(err).WithDetail("operation", "exists")
	}
	return true, nil
}

func (l *MongoLedger) Append(ctx context.Context, record *models.ProcessedRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.RecordedAt.IsZero() {
		record.RecordedAt = time.Now()
	}

	doc := mongoRecord{
		ID:            record.ID,
		EventID:       record.EventID,
		Notified:      record.Notified,
		VerdictReason: record.VerdictReason,
		SourceName:    record.SourceName,
		Category:      string(record.Category),
		SubjectTitle:  record.SubjectTitle,
		RecordedAt:    record.RecordedAt,
	}

	if _, err := l.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return pkgerrors.ErrConflict.WithCause(err).WithDetail("event_id", record.EventID)
		}
		return pkgerrors.ErrStoreUnavailable.WithCause(err).WithDetail("operation", "append")
	}

	return nil
}

func (l *MongoLedger) RecentRecords(ctx context.Context, limit int) ([]models.ProcessedRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "recorded_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := l.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, pkgerrors.ErrStoreUnavailable.WithCause(err).WithDetail("operation", "recent_records")
	}
	defer cursor.Close(ctx)

	var records []models.ProcessedRecord
	for cursor.Next(ctx) {
		var doc mongoRecord
		if err := cursor.Decode(&doc); err != nil {
			return nil, pkgerrors.ErrStoreUnavailable.WithCause(err).WithDetail("operation", "recent_records")
		}
		records = append(records, models.ProcessedRecord{
			ID:            doc.ID,
			EventID:       doc.EventID,
			Notified:      doc.Notified,
			VerdictReason: doc.VerdictReason,
			SourceName:    doc.SourceName,
			Category:      models.Category(doc.Category),
			SubjectTitle:  doc.SubjectTitle,
			RecordedAt:    doc.RecordedAt,
		})
	}

	if err := cursor.Err(); err != nil {
		return nil, pkgerrors.ErrStoreUnavailable.WithCause(err).WithDetail("operation", "recent_records")
	}

	return records, nil
}

func (l *MongoLedger) Stats(ctx context.Context) (Stats, error) {
	total, err := l.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return Stats{}, pkgerrors.ErrStoreUnavailable.WithCause(err).WithDetail("operation", "stats")
	}

	notified, err := l.collection.CountDocuments(ctx, bson.M{"notified": true})
	if err != nil {
		return Stats{}, pkgerrors.ErrStoreUnavailable.WithCause(err).WithDetail("operation", "stats")
	}

	return Stats{TotalRecords: total, NotifiedRecords: notified}, nil
}
