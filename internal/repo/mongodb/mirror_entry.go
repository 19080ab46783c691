package mongodb

import (
	"context"
	"time"

	"github.com/aymshop/storefront/internal/repo/mirror"
	"go.mongodb.org/mongo-driver/bson"
)

type MirrorEntry struct {
	Key       string    `bson:"_id,omitempty"`
	Value     []byte    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (MirrorEntry) CollectionName() string {
	return "mirror_entries"
}

type mirrorRepo struct {
	baseRepo[MirrorEntry]
	now func() time.Time
}

func NewMirrorStore(db *DB) mirror.Store {
	return &mirrorRepo{
		baseRepo: newBaseRepo[MirrorEntry](db.Database),
		now:      time.Now,
	}
}

func (r *mirrorRepo) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := r.FindOne(ctx, bson.M{"_id": key})
	if err != nil {
		return nil, err
	}
	return entry.Value, nil
}

func (r *mirrorRepo) Set(ctx context.Context, key string, value []byte) error {
	// _id comes from the filter on insert and must not be part of $set.
	return r.UpsertOne(ctx, bson.M{"_id": key}, MirrorEntry{
		Value:     value,
		UpdatedAt: r.now(),
	})
}

func (r *mirrorRepo) Delete(ctx context.Context, key string) error {
	return r.DeleteOne(ctx, bson.M{"_id": key})
}
