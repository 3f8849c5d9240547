package lineitem

import (
	"strings"
	"testing"

	"opsboard/internal/aggregation/category"
	"opsboard/internal/database/mongodb/model"
	"opsboard/internal/pkg/money"

	"go.mongodb.org/mongo-driver/bson"
)

func str(s string) *string { return &s }
func level(n int) *int     { return &n }

func resolver() *category.Resolver {
	return category.New([]model.ProductGroup{
		{GroupID: "1", GroupName: "Beverages", GroupLevel: level(1)},
		{GroupID: "2", GroupName: "Soft Drinks", ParentGroupName: str("Beverages"), GroupLevel: level(2)},
	})
}

func ticket(sourceID string, raw bson.M) model.RawRecord {
	return model.RawRecord{Source: "bork", SourceID: sourceID, LocationID: "L1", Date: "2024-10-24", RawData: raw}
}

func TestColaScenario(t *testing.T) {
	raw := bson.M{"Orders": bson.A{
		bson.M{"Lines": bson.A{
			bson.M{"ProductName": "Cola", "GroupName": "Soft Drinks", "Qty": 2, "Price": 3.0, "TotalInc": 6.0},
		}},
	}}
	out := Aggregate([]model.RawRecord{ticket("T1", raw)}, resolver())

	if len(out.Items) != 1 {
		t.Fatalf("got %d items want 1 (warnings %v)", len(out.Items), out.Warnings)
	}
	item := out.Items[0]
	if item.ProductName != "Cola" || item.Category != "Soft Drinks" {
		t.Fatalf("got product %q category %q", item.ProductName, item.Category)
	}
	if item.MainCategory == nil || *item.MainCategory != "Beverages" {
		t.Fatalf("main category: got %v want Beverages", item.MainCategory)
	}
	if item.Quantity != 2 {
		t.Fatalf("quantity: got %v want 2", item.Quantity)
	}
	if !item.TotalIncVat.Equal(money.MustFromString("6.0")) {
		t.Fatalf("totalIncVat: got %s want 6.00", item.TotalIncVat)
	}
	if item.TicketKey != "T1" || item.OrderKey != "0" || item.OrderLineKey != "0" {
		t.Fatalf("positional key fallback: got %s/%s/%s", item.TicketKey, item.OrderKey, item.OrderLineKey)
	}
	if len(out.Warnings) != 0 || out.Skipped != 0 {
		t.Fatalf("unexpected warnings %v", out.Warnings)
	}
}

func TestFieldAliasesAndDefaults(t *testing.T) {
	tests := []struct {
		name      string
		line      bson.M
		wantQty   float64
		wantInc   string
		wantEx    string
		wantPrice string
	}{
		{name: "lowercase aliases", line: bson.M{"qty": 1, "price": "2,50", "total": "2,50"}, wantQty: 1, wantInc: "2.5", wantEx: "2.5", wantPrice: "2.5"},
		{name: "missing numbers default to zero", line: bson.M{"ProductName": "Mystery"}, wantQty: 0, wantInc: "0", wantEx: "0", wantPrice: "0"},
		{name: "ex vat derived from vat rate", line: bson.M{"Quantity": 1, "TotalIncVat": 10.90, "VatPerc": 9}, wantQty: 1, wantInc: "10.9", wantEx: "10", wantPrice: "10.9"},
		{name: "total derived from unit price", line: bson.M{"Amount": 3, "UnitPrice": 1.5}, wantQty: 3, wantInc: "4.5", wantEx: "4.5", wantPrice: "1.5"},
		{name: "negative quantity preserved", line: bson.M{"Qty": -2, "Price": 3.0, "TotalInc": -6.0}, wantQty: -2, wantInc: "-6", wantEx: "-6", wantPrice: "3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := bson.M{"orders": bson.A{bson.M{"items": bson.A{tt.line}}}}
			out := Aggregate([]model.RawRecord{ticket("T", raw)}, nil)
			if len(out.Items) != 1 {
				t.Fatalf("got %d items", len(out.Items))
			}
			item := out.Items[0]
			if item.Quantity != tt.wantQty {
				t.Fatalf("quantity: got %v want %v", item.Quantity, tt.wantQty)
			}
			if !item.TotalIncVat.Equal(money.MustFromString(tt.wantInc)) {
				t.Fatalf("totalIncVat: got %s want %s", item.TotalIncVat, tt.wantInc)
			}
			if !item.TotalExVat.Equal(money.MustFromString(tt.wantEx)) {
				t.Fatalf("totalExVat: got %s want %s", item.TotalExVat, tt.wantEx)
			}
			if !item.UnitPrice.Equal(money.MustFromString(tt.wantPrice)) {
				t.Fatalf("unitPrice: got %s want %s", item.UnitPrice, tt.wantPrice)
			}
		})
	}
}

func TestConservationWithMalformedInput(t *testing.T) {
	tickets := []model.RawRecord{
		ticket("T1", bson.M{"Orders": bson.A{
			bson.M{"Key": "O1", "Lines": bson.A{
				bson.M{"Key": "L1", "Qty": 2},
				bson.M{"Key": "L2", "Qty": -1},
				"garbage",
			}},
			42,
		}}),
		ticket("T2", bson.M{"Lines": bson.A{bson.M{"Qty": 5}}}),
		ticket("T3", nil),
		ticket("T4", bson.M{"OrderList": bson.A{bson.M{"OrderLines": bson.A{bson.M{"Quantity": "1,5"}}}}}),
	}
	out := Aggregate(tickets, nil)

	var total float64
	for _, item := range out.Items {
		total += item.Quantity
	}
	if total != 2.5 {
		t.Fatalf("quantity sum: got %v want 2.5", total)
	}
	// 一筆非物件明細、一筆非物件訂單、T2 沒有 orders、T3 沒有 rawData
	if out.Skipped != 4 {
		t.Fatalf("skipped: got %d want 4 (%v)", out.Skipped, out.Warnings)
	}
	if len(out.Warnings) != 4 {
		t.Fatalf("warnings: got %d want 4", len(out.Warnings))
	}
	if !strings.Contains(out.Warnings[0], "T1") {
		t.Fatalf("warning should name the ticket: %s", out.Warnings[0])
	}
}

func TestDuplicateIngestionIsIgnored(t *testing.T) {
	raw := bson.M{"Key": 991, "Orders": bson.A{bson.M{"Lines": bson.A{bson.M{"Qty": 1}}}}}
	out := Aggregate([]model.RawRecord{ticket("T1", raw), ticket("T1", raw)}, nil)
	if len(out.Items) != 1 || out.Duplicates != 1 {
		t.Fatalf("got %d items, %d duplicates", len(out.Items), out.Duplicates)
	}
	if out.Items[0].TicketKey != "991" {
		t.Fatalf("ticket key from payload: got %s", out.Items[0].TicketKey)
	}
}

func TestReExportAcrossDatesKeepsLatest(t *testing.T) {
	early := ticket("exp-1", bson.M{"Key": "T100", "Orders": bson.A{bson.M{"Lines": bson.A{bson.M{"Qty": 1}}}}})
	early.Date = "2024-10-24"
	late := ticket("exp-2", bson.M{"Key": "T100", "Orders": bson.A{bson.M{"Lines": bson.A{bson.M{"Qty": 3}}}}})
	late.Date = "2024-10-25"

	for _, input := range [][]model.RawRecord{{early, late}, {late, early}} {
		out := Aggregate(input, nil)
		if len(out.Items) != 1 || out.Duplicates != 1 {
			t.Fatalf("got %d items, %d duplicates", len(out.Items), out.Duplicates)
		}
		item := out.Items[0]
		if item.Date != "2024-10-25" || item.SourceID != "exp-2" || item.Quantity != 3 {
			t.Fatalf("latest export should win: got %s %s qty %v", item.Date, item.SourceID, item.Quantity)
		}
		if item.ID != model.SalesLineItemID("L1", "T100", "0", "0") {
			t.Fatalf("id should not carry the date: %s", item.ID)
		}
		if len(out.Warnings) != 1 || !strings.Contains(out.Warnings[0], "exp-1") {
			t.Fatalf("warning should name the superseded ticket: %v", out.Warnings)
		}
	}
}

func TestOutputIsDeterministic(t *testing.T) {
	a := ticket("A", bson.M{"Orders": bson.A{bson.M{"Lines": bson.A{bson.M{"Qty": 1}}}}})
	b := ticket("B", bson.M{"Orders": bson.A{bson.M{"Lines": bson.A{bson.M{"Qty": 2}}}}})
	first := Aggregate([]model.RawRecord{b, a}, nil)
	second := Aggregate([]model.RawRecord{a, b}, nil)
	for i := range first.Items {
		if first.Items[i].ID != second.Items[i].ID {
			t.Fatalf("item %d: %s vs %s", i, first.Items[i].ID, second.Items[i].ID)
		}
	}
}

func TestWaiterNames(t *testing.T) {
	tickets := []model.RawRecord{
		ticket("T1", bson.M{"WaiterName": "Anna de Vries", "Orders": bson.A{bson.M{"Lines": bson.A{bson.M{"waiter_name": "Bram"}}}}}),
		ticket("T2", bson.M{"waiter_name": "anna  de vries"}),
	}
	got := WaiterNames(tickets)
	if len(got) != 2 || got[0] != "Anna de Vries" || got[1] != "Bram" {
		t.Fatalf("got %v", got)
	}
}
