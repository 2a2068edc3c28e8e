package migrations

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ledgerCollection = "processed_events"

// EnsureLedgerIndexes creates the indexes the Mongo ledger backend relies on.
// The unique event_id index is what turns a concurrent double-append into a
// duplicate key error instead of a second record.
func EnsureLedgerIndexes(ctx context.Context, db *mongo.Database) error {
	collection := db.Collection(ledgerCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "event_id", Value: 1}},
			Options: options.Index().SetName("idx_processed_events_event_id").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "recorded_at", Value: -1}},
			Options: options.Index().SetName("idx_processed_events_recorded_at"),
		},
		{
			Keys:    bson.D{{Key: "category", Value: 1}, {Key: "recorded_at", Value: -1}},
			Options: options.Index().SetName("idx_processed_events_category_recorded_at"),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		if !strings.Contains(err.Error(), "already exists") {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	return nil
}
