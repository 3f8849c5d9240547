package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// WorkerProfile 人資主檔（唯讀）。同一 eitjeUserId 出現多筆屬於資料輸入錯誤
type WorkerProfile struct {
	ID            string    `json:"id" bson:"_id"`
	EitjeUserID   string    `json:"eitjeUserId" bson:"eitjeUserId"`
	UnifiedUserID string    `json:"unifiedUserId,omitempty" bson:"unifiedUserId,omitempty"`
	LocationID    string    `json:"locationId" bson:"locationId"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
}

var WorkerProfileIndexes = []mongo.IndexModel{
	{
		Keys:    bson.D{{Key: "eitjeUserId", Value: 1}},
		Options: options.Index().SetName("idx_eitjeUserId"),
	},
}

// UnifiedWorkerProfile 每位員工一列，跨 Eitje / Bork / unified 三個身分空間
type UnifiedWorkerProfile struct {
	ProfileID      string           `json:"profileId" bson:"profileId"`
	UnifiedUserID  *string          `json:"unifiedUserId" bson:"unifiedUserId"`
	EitjeUserID    *string          `json:"eitjeUserId" bson:"eitjeUserId"`
	BorkWaiterName *string          `json:"borkWaiterName" bson:"borkWaiterName"`
	Name           string           `json:"name" bson:"name"`
	FirstName      string           `json:"firstName,omitempty" bson:"firstName,omitempty"`
	LastName       string           `json:"lastName,omitempty" bson:"lastName,omitempty"`
	LocationID     string           `json:"locationId" bson:"locationId"`
	Teams          []TeamMembership `json:"teams" bson:"teams"`
	IsActive       bool             `json:"isActive" bson:"isActive"`
	UpdatedAt      time.Time        `json:"updatedAt" bson:"updatedAt"`
}

type TeamMembership struct {
	TeamID     string    `json:"teamId" bson:"teamId"`
	TeamName   string    `json:"teamName" bson:"teamName"`
	IsActive   bool      `json:"isActive" bson:"isActive"`
	ShiftCount int       `json:"shiftCount" bson:"shiftCount"`
	FirstShift time.Time `json:"firstShift" bson:"firstShift"`
	LastShift  time.Time `json:"lastShift" bson:"lastShift"`
}

// NaturalKey 有 eitjeUserId 時以其為鍵，否則退回主檔 id
func (p *UnifiedWorkerProfile) NaturalKey() bson.M {
	if p.EitjeUserID != nil && *p.EitjeUserID != "" {
		return bson.M{"eitjeUserId": *p.EitjeUserID}
	}
	return bson.M{"profileId": p.ProfileID}
}

var UnifiedWorkerProfileIndexes = []mongo.IndexModel{
	{
		Keys: bson.D{{Key: "eitjeUserId", Value: 1}},
		Options: options.Index().SetName("uniq_eitjeUserId").SetUnique(true).
			SetPartialFilterExpression(bson.M{"eitjeUserId": bson.M{"$type": "string"}}),
	},
	{
		Keys:    bson.D{{Key: "profileId", Value: 1}},
		Options: options.Index().SetName("idx_profileId"),
	},
	{
		Keys:    bson.D{{Key: "locationId", Value: 1}, {Key: "isActive", Value: 1}},
		Options: options.Index().SetName("idx_locationId_isActive"),
	},
}
