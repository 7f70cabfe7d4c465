package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ewintr.nl/vidharvest/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo implements Store with one collection per record type. Documents are
// keyed by video ID and search name, so upserts replace by natural key.
type Mongo struct {
	client      *mongo.Client
	videos      *mongo.Collection
	definitions *mongo.Collection
	now         func() time.Time
}

func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("can't ping MongoDB: %w", err)
	}

	db := client.Database(database)
	m := &Mongo{
		client:      client,
		videos:      db.Collection("video"),
		definitions: db.Collection("search_config"),
		now:         time.Now,
	}
	if _, err := m.videos.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "search_name", Value: 1}},
	}); err != nil {
		return nil, fmt.Errorf("can't create search_name index: %w", err)
	}

	return m, nil
}

func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func (m *Mongo) UpsertVideo(ctx context.Context, video model.Video) error {
	if _, err := m.videos.ReplaceOne(ctx, bson.M{"_id": video.ID}, video, options.Replace().SetUpsert(true)); err != nil {
		return fmt.Errorf("upsert video %s: %w", video.ID, err)
	}
	return nil
}

func (m *Mongo) FindVideo(ctx context.Context, id model.YoutubeVideoID) (model.Video, error) {
	var video model.Video
	err := m.videos.FindOne(ctx, bson.M{"_id": id}).Decode(&video)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Video{}, ErrNotFound
	}
	return video, err
}

func (m *Mongo) FindBySearchName(ctx context.Context, searchName string) ([]model.Video, error) {
	cursor, err := m.videos.Find(ctx, bson.M{"search_name": searchName}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	videos := []model.Video{}
	if err := cursor.All(ctx, &videos); err != nil {
		return nil, err
	}
	return videos, nil
}

func (m *Mongo) UpsertSearchDefinition(ctx context.Context, def model.SearchDefinition) error {
	if def.UserID == "" {
		def.UserID = model.DefaultUserID
	}
	def.CreatedAt = m.now().UTC()
	if _, err := m.definitions.ReplaceOne(ctx, bson.M{"_id": def.SearchName}, def, options.Replace().SetUpsert(true)); err != nil {
		return fmt.Errorf("upsert search definition %s: %w", def.SearchName, err)
	}
	return nil
}

func (m *Mongo) FindSearchDefinition(ctx context.Context, searchName string) (model.SearchDefinition, error) {
	var def model.SearchDefinition
	err := m.definitions.FindOne(ctx, bson.M{"_id": searchName}).Decode(&def)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.SearchDefinition{}, ErrNotFound
	}
	return def, err
}

func (m *Mongo) ListSearchDefinitions(ctx context.Context) ([]model.SearchDefinition, error) {
	cursor, err := m.definitions.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defs := []model.SearchDefinition{}
	if err := cursor.All(ctx, &defs); err != nil {
		return nil, err
	}
	return defs, nil
}
