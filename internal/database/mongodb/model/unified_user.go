package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UnifiedUser 內部身分登錄，名稱以此為準
type UnifiedUser struct {
	ID             string          `json:"id" bson:"_id"`
	FirstName      string          `json:"firstName" bson:"firstName"`
	LastName       string          `json:"lastName" bson:"lastName"`
	Name           string          `json:"name" bson:"name"`
	SystemMappings []SystemMapping `json:"systemMappings" bson:"systemMappings"`
	CreatedAt      time.Time       `json:"createdAt" bson:"createdAt"`
}

type SystemMapping struct {
	System     string `json:"system" bson:"system"`
	ExternalID string `json:"externalId" bson:"externalId"`
}

// EitjeUser eitje_raw_users 的 rawData 攤平後的結果
type EitjeUser struct {
	ID        string `json:"id" bson:"id"`
	FirstName string `json:"firstName" bson:"first_name"`
	LastName  string `json:"lastName" bson:"last_name"`
}

var UnifiedUserIndexes = []mongo.IndexModel{
	{
		Keys:    bson.D{{Key: "systemMappings.system", Value: 1}, {Key: "systemMappings.externalId", Value: 1}},
		Options: options.Index().SetName("idx_systemMappings"),
	},
}
