package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RawRecord ingestion 寫入的原始文件（票據、班表、Eitje 使用者），聚合引擎只讀不寫。
// RawData 保留廠商原始 payload，欄位大小寫不一致屬正常現象
type RawRecord struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Source     string             `json:"source" bson:"source"`
	SourceID   string             `json:"sourceId" bson:"sourceId"`
	LocationID string             `json:"locationId" bson:"locationId"`
	Date       string             `json:"date" bson:"date"`
	IngestedAt time.Time          `json:"ingestedAt" bson:"ingestedAt"`
	UpdatedAt  time.Time          `json:"updatedAt" bson:"updatedAt"`
	RawData    bson.M             `json:"rawData" bson:"rawData"`
}

var RawRecordIndexes = []mongo.IndexModel{
	{
		Keys:    bson.D{{Key: "locationId", Value: 1}, {Key: "date", Value: 1}},
		Options: options.Index().SetName("idx_locationId_date"),
	},
	{
		Keys:    bson.D{{Key: "locationId", Value: 1}, {Key: "updatedAt", Value: 1}},
		Options: options.Index().SetName("idx_locationId_updatedAt"),
	},
	{
		Keys:    bson.D{{Key: "locationId", Value: 1}, {Key: "ingestedAt", Value: 1}},
		Options: options.Index().SetName("idx_locationId_ingestedAt"),
	},
	{
		Keys:    bson.D{{Key: "source", Value: 1}, {Key: "sourceId", Value: 1}},
		Options: options.Index().SetName("idx_source_sourceId"),
	},
}
