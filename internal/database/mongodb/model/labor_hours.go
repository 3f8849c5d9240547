package model

import (
	"time"

	"opsboard/internal/pkg/money"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// LaborAggregated 每個 (date, locationId, teamId, userId) 一列，以 upsert 寫入
type LaborAggregated struct {
	ID                  primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Date                string             `json:"date" bson:"date"`
	LocationID          string             `json:"locationId" bson:"locationId"`
	TeamID              string             `json:"teamId" bson:"teamId"`
	UserID              string             `json:"userId" bson:"userId"`
	TeamName            string             `json:"teamName,omitempty" bson:"teamName,omitempty"`
	TotalHoursWorked    float64            `json:"totalHoursWorked" bson:"totalHoursWorked"`
	TotalWageCost       money.Amount       `json:"totalWageCost" bson:"totalWageCost"`
	EmployeeCount       int                `json:"employeeCount" bson:"employeeCount"`
	ShiftCount          int                `json:"shiftCount" bson:"shiftCount"`
	AvgHoursPerEmployee float64            `json:"avgHoursPerEmployee" bson:"avgHoursPerEmployee"`
	AvgWagePerHour      money.Amount       `json:"avgWagePerHour" bson:"avgWagePerHour"`
	UpdatedAt           time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// NaturalKey upsert 使用的過濾條件
func (l *LaborAggregated) NaturalKey() bson.M {
	return bson.M{
		"date":       l.Date,
		"locationId": l.LocationID,
		"teamId":     l.TeamID,
		"userId":     l.UserID,
	}
}

var LaborAggregatedIndexes = []mongo.IndexModel{
	{
		Keys: bson.D{
			{Key: "date", Value: 1},
			{Key: "locationId", Value: 1},
			{Key: "teamId", Value: 1},
			{Key: "userId", Value: 1},
		},
		Options: options.Index().SetName("uniq_date_locationId_teamId_userId").SetUnique(true),
	},
	{
		Keys:    bson.D{{Key: "locationId", Value: 1}, {Key: "date", Value: 1}},
		Options: options.Index().SetName("idx_locationId_date"),
	},
}
