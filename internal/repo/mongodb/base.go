package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aymshop/storefront/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// keep the baseRepo implementation in sync with IRepository interface
var _ IRepository[IEntity] = (*baseRepo[IEntity])(nil)

type IEntity interface {
	CollectionName() string
}

type IRepository[E IEntity] interface {
	FindOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*E, error)
	UpsertOne(ctx context.Context, filter bson.M, entity E, opts ...*options.UpdateOptions) error
	DeleteOne(ctx context.Context, filter bson.M) error
}

type baseRepo[E IEntity] struct {
	coll *mongo.Collection
}

func newBaseRepo[E IEntity](dbc *mongo.Database) baseRepo[E] {
	var entity E
	return baseRepo[E]{
		coll: dbc.Collection(entity.CollectionName()),
	}
}

func (r *baseRepo[E]) FindOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*E, error) {
	var entity E
	err := r.coll.FindOne(ctx, filter, opts...).Decode(&entity)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *baseRepo[E]) UpsertOne(ctx context.Context, filter bson.M, entity E, opts ...*options.UpdateOptions) error {
	update := bson.M{
		"$set": entity,
	}
	opts = append(opts, options.Update().SetUpsert(true))
	if _, err := r.coll.UpdateOne(ctx, filter, update, opts...); err != nil {
		return fmt.Errorf("upsert one: %w", err)
	}
	return nil
}

// DeleteOne ignores missing documents.
func (r *baseRepo[E]) DeleteOne(ctx context.Context, filter bson.M) error {
	_, err := r.coll.DeleteOne(ctx, filter)
	return err
}
