package asset

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Metadata describes one stored blob. It is kept in MongoDB next to the
// object so uploads can be traced back to their batch and source file.
type Metadata struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BatchID     string             `bson:"batch_id" json:"batch_id"`
	UploadedBy  string             `bson:"uploaded_by" json:"uploaded_by"`
	Filename    string             `bson:"filename" json:"filename"`
	ContentType string             `bson:"content_type" json:"content_type"`
	Size        int64              `bson:"size" json:"size"`
	ObjectKey   string             `bson:"object_key" json:"object_key"`
	Bucket      string             `bson:"bucket" json:"bucket"`
	URL         string             `bson:"url" json:"url"`
	Checksum    string             `bson:"checksum,omitempty" json:"checksum,omitempty"`
	UploadedAt  time.Time          `bson:"uploaded_at" json:"uploaded_at"`
}
