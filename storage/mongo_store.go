package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"facility-finder/models"
	"facility-finder/query"
)

const connectTimeout = 10 * time.Second

// MongoStore reads facilities from a MongoDB collection and writes their
// embedded place-data snapshots.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to MongoDB, pings it and returns a ready-to-use store.
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(collection),
	}, nil
}

// EnsureIndexes creates the unique CCN index and the 2dsphere index.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "cms_certification_number_ccn", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "geoLocation", Value: "2dsphere"}},
		},
		{
			Keys: bson.D{{Key: "googleCache.lastUpdated", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("mongo: ensure indexes: %w", err)
	}
	return nil
}

// Query runs the plan as an aggregation pipeline.
func (s *MongoStore) Query(ctx context.Context, plan *query.Plan) ([]models.Facility, error) {
	cursor, err := s.coll.Aggregate(ctx, plan.Pipeline())
	if err != nil {
		return nil, fmt.Errorf("mongo: query: %w", err)
	}
	defer cursor.Close(ctx)

	facilities := []models.Facility{}
	if err := cursor.All(ctx, &facilities); err != nil {
		return nil, fmt.Errorf("mongo: decode: %w", err)
	}
	return facilities, nil
}

// FindByCCN returns the facility with the given certification number.
func (s *MongoStore) FindByCCN(ctx context.Context, ccn string) (*models.Facility, error) {
	return s.findOne(ctx, bson.D{{Key: "cms_certification_number_ccn", Value: ccn}})
}

// FindByName returns the first facility whose name contains name, ignoring case.
func (s *MongoStore) FindByName(ctx context.Context, name string) (*models.Facility, error) {
	return s.findOne(ctx, bson.D{{Key: "provider_name", Value: bson.D{
		{Key: "$regex", Value: regexp.QuoteMeta(name)},
		{Key: "$options", Value: "i"},
	}}})
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.D) (*models.Facility, error) {
	var f models.Facility
	err := s.coll.FindOne(ctx, filter).Decode(&f)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrFacilityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: find: %w", err)
	}
	return &f, nil
}

// UpdateEnrichment replaces the embedded snapshot of one facility.
func (s *MongoStore) UpdateEnrichment(ctx context.Context, ccn string, cache *models.GoogleCache) error {
	err := s.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "cms_certification_number_ccn", Value: ccn}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "googleCache", Value: cache}}}},
	).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ErrFacilityNotFound
	}
	if err != nil {
		return fmt.Errorf("mongo: update enrichment %s: %w", ccn, err)
	}
	return nil
}

// BulkUpsert inserts or replaces facilities by CCN in batches of 50.
// The embedded snapshot of existing documents is left untouched.
func (s *MongoStore) BulkUpsert(ctx context.Context, facilities []models.Facility) (int, error) {
	const batchSize = 50
	written := 0
	for i := 0; i < len(facilities); i += batchSize {
		end := i + batchSize
		if end > len(facilities) {
			end = len(facilities)
		}

		batch := make([]mongo.WriteModel, 0, end-i)
		for _, f := range facilities[i:end] {
			doc := prepareForUpsert(f)
			batch = append(batch, mongo.NewUpdateOneModel().
				SetFilter(bson.D{{Key: "cms_certification_number_ccn", Value: f.CCN}}).
				SetUpdate(bson.D{{Key: "$set", Value: doc}}).
				SetUpsert(true))
		}

		res, err := s.coll.BulkWrite(ctx, batch, options.BulkWrite().SetOrdered(false))
		if err != nil {
			return written, fmt.Errorf("mongo: bulk upsert: %w", err)
		}
		written += int(res.UpsertedCount + res.ModifiedCount)
	}
	return written, nil
}

func prepareForUpsert(f models.Facility) models.Facility {
	f.GoogleCache = nil
	f.DistanceMeters = nil
	f.Extra = models.ExtraColumns(f.Extra)
	if f.GeoLocation == nil && (f.Latitude != 0 || f.Longitude != 0) {
		f.GeoLocation = models.NewGeoPoint(f.Latitude, f.Longitude)
	}
	f.UpdatedAt = time.Now().UTC()
	return f
}

// FindStale returns facilities whose snapshot is missing or older than olderThan.
func (s *MongoStore) FindStale(ctx context.Context, olderThan time.Time, limit int) ([]models.Facility, error) {
	filter := bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "googleCache", Value: bson.D{{Key: "$exists", Value: false}}}},
		bson.D{{Key: "googleCache.lastUpdated", Value: bson.D{{Key: "$lt", Value: olderThan}}}},
	}}}

	opts := options.Find().SetSort(bson.D{{Key: "googleCache.lastUpdated", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: find stale: %w", err)
	}
	defer cursor.Close(ctx)

	var facilities []models.Facility
	if err := cursor.All(ctx, &facilities); err != nil {
		return nil, fmt.Errorf("mongo: decode stale: %w", err)
	}
	return facilities, nil
}

// Ping checks that the primary is reachable.
func (s *MongoStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo: ping: %w", err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
