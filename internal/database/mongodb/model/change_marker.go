package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ChangeMarker 每個 (source, locationId) 一筆，只會往前推進
type ChangeMarker struct {
	ID               primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Source           string             `json:"source" bson:"source"`
	LocationID       string             `json:"locationId" bson:"locationId"`
	LastAggregatedAt time.Time          `json:"lastAggregatedAt" bson:"lastAggregatedAt"`
	CreatedAt        time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt" bson:"updatedAt"`
}

var ChangeMarkerIndexes = []mongo.IndexModel{
	{
		Keys:    bson.D{{Key: "source", Value: 1}, {Key: "locationId", Value: 1}},
		Options: options.Index().SetName("uniq_source_locationId").SetUnique(true),
	},
}
