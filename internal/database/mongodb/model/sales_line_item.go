package model

import (
	"strings"

	"opsboard/internal/pkg/money"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SalesLineItemAggregated 每一筆訂單明細一列。
// _id 由 (locationId, ticketKey, orderKey, orderLineKey) 組成，與唯一索引同一組鍵；
// 不含 date，同一張票據在不同日期重新匯出仍是同一列
type SalesLineItemAggregated struct {
	ID            string       `json:"id" bson:"_id"`
	TicketKey     string       `json:"ticketKey" bson:"ticketKey"`
	OrderKey      string       `json:"orderKey" bson:"orderKey"`
	OrderLineKey  string       `json:"orderLineKey" bson:"orderLineKey"`
	Date          string       `json:"date" bson:"date"`
	LocationID    string       `json:"locationId" bson:"locationId"`
	ProductName   string       `json:"productName" bson:"productName"`
	Category      string       `json:"category" bson:"category"`
	MainCategory  *string      `json:"mainCategory" bson:"mainCategory"`
	Quantity      float64      `json:"quantity" bson:"quantity"`
	UnitPrice     money.Amount `json:"unitPrice" bson:"unitPrice"`
	TotalExVat    money.Amount `json:"totalExVat" bson:"totalExVat"`
	TotalIncVat   money.Amount `json:"totalIncVat" bson:"totalIncVat"`
	VatRate       float64      `json:"vatRate" bson:"vatRate"`
	WaiterName    string       `json:"waiterName" bson:"waiterName"`
	PaymentMethod string       `json:"paymentMethod" bson:"paymentMethod"`
	TableNumber   string       `json:"tableNumber" bson:"tableNumber"`
	SourceID      string       `json:"sourceId" bson:"sourceId"`
}

func SalesLineItemID(locationID, ticketKey, orderKey, orderLineKey string) string {
	return strings.Join([]string{locationID, ticketKey, orderKey, orderLineKey}, ":")
}

var SalesLineItemIndexes = []mongo.IndexModel{
	{
		Keys:    bson.D{{Key: "locationId", Value: 1}, {Key: "date", Value: 1}},
		Options: options.Index().SetName("idx_locationId_date"),
	},
	{
		Keys: bson.D{
			{Key: "locationId", Value: 1},
			{Key: "ticketKey", Value: 1},
			{Key: "orderKey", Value: 1},
			{Key: "orderLineKey", Value: 1},
		},
		Options: options.Index().SetName("uniq_locationId_ticket_order_line").SetUnique(true),
	},
	{
		Keys:    bson.D{{Key: "mainCategory", Value: 1}, {Key: "date", Value: 1}},
		Options: options.Index().SetName("idx_mainCategory_date"),
	},
}
