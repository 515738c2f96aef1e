package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/simba/internal/domain/models"
)

const datasetsCollection = "datasets"

// ArchivedDataset is the stored form of a collected data file.
type ArchivedDataset struct {
	Filename    string         `bson:"filename"`
	CollectedAt time.Time      `bson:"collectedAt"`
	Dataset     models.Dataset `bson:"dataset"`
}

// Repository defines the interface for the collected dataset archive.
type Repository interface {
	SaveDataset(ctx context.Context, filename string, ds *models.Dataset) error
}

// MongoDBRepository implements the Repository interface for MongoDB.
type MongoDBRepository struct {
	client   *mongo.Client
	dbName   string
	collName string
	now      func() time.Time
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client:   client,
		dbName:   dbName,
		collName: datasetsCollection,
		now:      time.Now,
	}, nil
}

// SaveDataset stores a collected dataset, replacing an earlier copy of the same file.
func (r *MongoDBRepository) SaveDataset(ctx context.Context, filename string, ds *models.Dataset) error {
	if ds == nil {
		return fmt.Errorf("dataset %s is nil", filename)
	}
	doc := NewArchivedDataset(filename, ds, r.now())

	collection := r.client.Database(r.dbName).Collection(r.collName)
	_, err := collection.ReplaceOne(ctx, bson.M{"filename": filename}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to archive dataset %s: %w", filename, err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

// NewArchivedDataset builds the document stored for filename.
func NewArchivedDataset(filename string, ds *models.Dataset, collectedAt time.Time) ArchivedDataset {
	return ArchivedDataset{
		Filename:    filename,
		CollectedAt: collectedAt.UTC(),
		Dataset:     *ds,
	}
}
