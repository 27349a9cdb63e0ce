package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/gehringer/solarboard/pkg/log"
	"github.com/gehringer/solarboard/pkg/types"
	"github.com/levenlabs/go-lflag"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	hourlyCollection  = "energy_hourly"
	historyCollection = "energy_history"
)

// FirestoreProvider implements Database using Google Cloud Firestore. Each
// day is one document keyed by its YYYY-MM-DD date, so document ID order is
// date order.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
}

var _ Database = (*FirestoreProvider)(nil)

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	// an empty project ID is detected from the environment
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

// jsonField reads the "json" string field every document stores its payload
// in.
func jsonField(ctx context.Context, doc *firestore.DocumentSnapshot) ([]byte, error) {
	val, err := doc.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "doc missing json", slog.String("docID", doc.Ref.ID), slog.Any("err", err))
		return nil, fmt.Errorf("document %s missing 'json' field: %w", doc.Ref.ID, err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, "doc json not string", slog.String("docID", doc.Ref.ID))
		return nil, fmt.Errorf("document %s 'json' field is not string", doc.Ref.ID)
	}
	return []byte(jsonStr), nil
}

// UpsertHourlyRecords stores the day's rows as one JSON blob in the
// "energy_hourly" collection.
func (f *FirestoreProvider) UpsertHourlyRecords(ctx context.Context, date string, rows []types.HourlyRecord) error {
	if date == "" {
		return fmt.Errorf("date cannot be empty")
	}
	jsonBytes, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to marshal hourly records: %w", err)
	}
	_, err = f.client.Collection(hourlyCollection).Doc(date).Set(ctx, map[string]interface{}{
		"json":    string(jsonBytes),
		"date":    date,
		"rows":    len(rows),
		"updated": time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert hourly records for %s: %w", date, err)
	}
	return nil
}

// GetHourlyRecords reads the day's rows.
func (f *FirestoreProvider) GetHourlyRecords(ctx context.Context, date string) ([]types.HourlyRecord, error) {
	doc, err := f.client.Collection(hourlyCollection).Doc(date).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: hourly records for %s", ErrNotFound, date)
		}
		return nil, fmt.Errorf("failed to get hourly records for %s: %w", date, err)
	}
	b, err := jsonField(ctx, doc)
	if err != nil {
		return nil, err
	}
	var rows []types.HourlyRecord
	if err := json.Unmarshal(b, &rows); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal hourly records", slog.String("date", date), slog.Any("err", err))
		return nil, fmt.Errorf("failed to unmarshal hourly records (date=%s): %w", date, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: hourly records for %s", ErrNotFound, date)
	}
	return rows, nil
}

// UpsertHistoryEntry stores a day's summary in the "energy_history"
// collection.
func (f *FirestoreProvider) UpsertHistoryEntry(ctx context.Context, entry types.HistoryEntry) error {
	if entry.Date == "" {
		return fmt.Errorf("history entry missing date")
	}
	jsonBytes, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}
	_, err = f.client.Collection(historyCollection).Doc(entry.Date).Set(ctx, map[string]interface{}{
		"json": string(jsonBytes),
		"date": entry.Date,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert history entry for %s: %w", entry.Date, err)
	}
	return nil
}

// GetHistory uses a document ID range query, which matches date order.
func (f *FirestoreProvider) GetHistory(ctx context.Context, start, end string) ([]types.HistoryEntry, error) {
	coll := f.client.Collection(historyCollection)
	iter := coll.
		Where(firestore.DocumentID, ">=", coll.Doc(start)).
		Where(firestore.DocumentID, "<=", coll.Doc(end)).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var entries []types.HistoryEntry
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating history: %w", err)
		}
		b, err := jsonField(ctx, doc)
		if err != nil {
			return nil, err
		}
		var e types.HistoryEntry
		if err := json.Unmarshal(b, &e); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal history entry", slog.String("docID", doc.Ref.ID), slog.Any("err", err))
			return nil, fmt.Errorf("failed to unmarshal history entry (id=%s): %w", doc.Ref.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
