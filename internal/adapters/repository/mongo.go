package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/okian/hrdesk/internal/domain/model"
)

// ConnectMongo opens a client and verifies the primary is reachable.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// MongoCollection stores one kind of record in its own Mongo collection,
// using the record id as _id.
type MongoCollection[T model.Record] struct {
	coll *mongo.Collection
	kind model.Kind
}

// NewMongoCollection binds kind to a collection of the same name in db.
func NewMongoCollection[T model.Record](db *mongo.Database, kind model.Kind) *MongoCollection[T] {
	return &MongoCollection[T]{coll: db.Collection(string(kind)), kind: kind}
}

// List implements Collection.
func (c *MongoCollection[T]) List(ctx context.Context, q Query) ([]T, int, error) {
	filter := bson.M{}
	if len(q.IDs) > 0 {
		filter["_id"] = bson.M{"$in": q.IDs}
	}
	cur, err := c.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", c.kind, err)
	}
	records := make([]T, 0)
	if err := cur.All(ctx, &records); err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", c.kind, err)
	}
	page, total := applyQuery(records, q)
	return page, total, nil
}

// Get implements Collection.
func (c *MongoCollection[T]) Get(ctx context.Context, id string) (T, error) {
	var rec T
	err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return rec, ErrNotFound
		}
		return rec, fmt.Errorf("get %s %s: %w", c.kind, id, err)
	}
	return rec, nil
}

// Upsert implements Collection.
func (c *MongoCollection[T]) Upsert(ctx context.Context, rec T) error {
	id := rec.RecordID()
	if id == "" {
		return ErrMissingID
	}
	_, err := c.coll.ReplaceOne(ctx, bson.M{"_id": id}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert %s %s: %w", c.kind, id, err)
	}
	return nil
}

// Delete implements Collection.
func (c *MongoCollection[T]) Delete(ctx context.Context, id string) error {
	res, err := c.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", c.kind, id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Count implements Collection.
func (c *MongoCollection[T]) Count(ctx context.Context) (int, error) {
	n, err := c.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", c.kind, err)
	}
	return int(n), nil
}
