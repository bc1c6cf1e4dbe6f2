package asset

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type MetadataRepository interface {
	Insert(ctx context.Context, metadata Metadata) (primitive.ObjectID, error)
}

type mongoRepository struct {
	collection *mongo.Collection
}

func NewMetadataRepository(collection *mongo.Collection) MetadataRepository {
	return &mongoRepository{
		collection: collection,
	}
}

func (r *mongoRepository) Insert(ctx context.Context, metadata Metadata) (primitive.ObjectID, error) {
	if metadata.UploadedAt.IsZero() {
		metadata.UploadedAt = time.Now()
	}

	res, err := r.collection.InsertOne(ctx, metadata)
	if err != nil {
		return primitive.NilObjectID, err
	}

	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("unexpected insert id type")
	}
	return id, nil
}
