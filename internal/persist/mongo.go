package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/reloquent/parity/internal/validation"
)

// MongoSink stores summaries as documents keyed by summary ID.
type MongoSink struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoSink connects to MongoDB.
func NewMongoSink(ctx context.Context, connectionString, database, collection string) (*MongoSink, error) {
	if collection == "" {
		collection = "validation_summaries"
	}
	client, err := mongo.Connect(options.Client().ApplyURI(connectionString))
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}
	return &MongoSink{client: client, collection: client.Database(database).Collection(collection)}, nil
}

type mongoSummary struct {
	ID                 string        `bson:"_id"`
	Name               string        `bson:"validation_name"`
	SourceTable        string        `bson:"source_table"`
	TargetTable        string        `bson:"target_table"`
	OverallStatus      string        `bson:"overall_status"`
	TotalRulesRun      int           `bson:"total_rules_run"`
	TotalDiscrepancies int           `bson:"total_discrepancies"`
	CompletedAt        bson.DateTime `bson:"completed_at"`
	Summary            bson.Raw      `bson:"summary,omitempty"`
}

func (m *MongoSink) fail(op string, err error) error {
	return &Error{Backend: "mongodb", Op: op, Cause: err}
}

// Persist implements validation.Sink.
func (m *MongoSink) Persist(ctx context.Context, s *validation.Summary) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", m.fail("persist", fmt.Errorf("marshaling summary: %w", err))
	}
	var body bson.D
	if err := bson.UnmarshalExtJSON(data, false, &body); err != nil {
		return "", m.fail("persist", fmt.Errorf("converting summary: %w", err))
	}
	raw, err := bson.Marshal(body)
	if err != nil {
		return "", m.fail("persist", fmt.Errorf("encoding summary: %w", err))
	}

	doc := mongoSummary{
		ID:                 s.ID,
		Name:               s.Name,
		SourceTable:        string(s.SourceTable),
		TargetTable:        string(s.TargetTable),
		OverallStatus:      string(s.OverallStatus),
		TotalRulesRun:      s.TotalRulesRun,
		TotalDiscrepancies: s.TotalDiscrepancies,
		CompletedAt:        bson.NewDateTimeFromTime(s.CompletedAt),
		Summary:            raw,
	}
	if _, err := m.collection.InsertOne(ctx, doc); err != nil {
		return "", m.fail("persist", fmt.Errorf("inserting summary: %w", err))
	}
	return fmt.Sprintf("inserted into %s.%s", m.collection.Database().Name(), m.collection.Name()), nil
}

// List returns the most recent summaries first.
func (m *MongoSink) List(ctx context.Context, limit int) ([]Entry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "completed_at", Value: -1}}).
		SetLimit(int64(limitOrDefault(limit))).
		SetProjection(bson.D{{Key: "summary", Value: 0}})
	cur, err := m.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, m.fail("list", fmt.Errorf("querying summaries: %w", err))
	}
	defer cur.Close(ctx)

	entries := []Entry{}
	for cur.Next(ctx) {
		var doc mongoSummary
		if err := cur.Decode(&doc); err != nil {
			return nil, m.fail("list", fmt.Errorf("decoding summary: %w", err))
		}
		entries = append(entries, Entry{
			ID:                 doc.ID,
			Name:               doc.Name,
			SourceTable:        doc.SourceTable,
			TargetTable:        doc.TargetTable,
			OverallStatus:      validation.Status(doc.OverallStatus),
			TotalRulesRun:      doc.TotalRulesRun,
			TotalDiscrepancies: doc.TotalDiscrepancies,
			CompletedAt:        doc.CompletedAt.Time().UTC(),
		})
	}
	if err := cur.Err(); err != nil {
		return nil, m.fail("list", fmt.Errorf("iterating summaries: %w", err))
	}
	return entries, nil
}

// Get returns the summary with the given ID.
func (m *MongoSink) Get(ctx context.Context, id string) (*validation.Summary, error) {
	var doc mongoSummary
	err := m.collection.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, m.fail("get", fmt.Errorf("querying summary: %w", err))
	}

	data, err := bson.MarshalExtJSON(doc.Summary, false, false)
	if err != nil {
		return nil, m.fail("get", fmt.Errorf("converting summary: %w", err))
	}
	s := &validation.Summary{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, m.fail("get", fmt.Errorf("parsing summary: %w", err))
	}
	return s, nil
}

func (m *MongoSink) Close() error {
	return m.client.Disconnect(context.Background())
}
