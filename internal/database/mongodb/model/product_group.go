package model

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProductGroup Bork 商品群組；父節點有時以 id、有時以名稱引用
type ProductGroup struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	LocationID      string             `json:"locationId,omitempty" bson:"locationId,omitempty"`
	GroupID         string             `json:"groupId" bson:"groupId"`
	GroupName       string             `json:"groupName" bson:"groupName"`
	ParentGroupID   *string            `json:"parentGroupId" bson:"parentGroupId"`
	ParentGroupName *string            `json:"parentGroupName" bson:"parentGroupName"`
	GroupLevel      *int               `json:"groupLevel" bson:"groupLevel"`
}

var ProductGroupIndexes = []mongo.IndexModel{
	{
		Keys:    bson.D{{Key: "locationId", Value: 1}, {Key: "groupId", Value: 1}},
		Options: options.Index().SetName("idx_locationId_groupId"),
	},
	{
		Keys:    bson.D{{Key: "groupName", Value: 1}},
		Options: options.Index().SetName("idx_groupName"),
	},
}
