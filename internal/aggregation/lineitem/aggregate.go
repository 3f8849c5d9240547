// Package lineitem 把 Bork 票據 ticket → orders[] → lines[] 攤平成銷售明細。
package lineitem

import (
	"fmt"
	"sort"
	"strconv"

	"opsboard/internal/aggregation/category"
	"opsboard/internal/aggregation/normalize"
	"opsboard/internal/database/mongodb/model"
	"opsboard/internal/pkg/money"

	"github.com/shopspring/decimal"
)

type CategoryResolver interface {
	FindMainCategory(name string) category.Result
}

type Output struct {
	Items []model.SalesLineItemAggregated
	// Warnings 每筆被略過或重複的票據 / 明細一則
	Warnings []string
	// Skipped 格式錯誤而略過的票據、訂單與明細數
	Skipped int
	// Duplicates 重複匯入的票據與重複的自然鍵
	Duplicates int
	Tickets    int
}

var hundred = decimal.NewFromInt(100)

// Aggregate 純函式：同一批輸入永遠得到相同順序與內容的輸出
func Aggregate(tickets []model.RawRecord, resolver CategoryResolver) Output {
	var out Output
	ordered := make([]model.RawRecord, len(tickets))
	copy(ordered, tickets)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Date != ordered[j].Date {
			return ordered[i].Date < ordered[j].Date
		}
		if ordered[i].SourceID != ordered[j].SourceID {
			return ordered[i].SourceID < ordered[j].SourceID
		}
		return ordered[i].ID.Hex() < ordered[j].ID.Hex()
	})

	seenTickets := make(map[string]struct{}, len(ordered))
	// 自然鍵 → out.Items 的位置；排序在後（日期較新）的匯出取代先前的明細
	seenKeys := make(map[string]int)
	for _, ticket := range ordered {
		if ticket.SourceID != "" {
			sourceKey := ticket.Source + "\x00" + ticket.SourceID
			if _, dup := seenTickets[sourceKey]; dup {
				out.Duplicates++
				out.Warnings = append(out.Warnings, fmt.Sprintf("ticket %s: duplicate ingestion ignored", ticket.SourceID))
				continue
			}
			seenTickets[sourceKey] = struct{}{}
		}
		out.Tickets++
		for _, item := range flattenTicket(ticket, resolver, &out) {
			if at, dup := seenKeys[item.ID]; dup {
				out.Duplicates++
				out.Warnings = append(out.Warnings, fmt.Sprintf("ticket %s: duplicate line key %s/%s/%s supersedes %s (%s)",
					ticket.SourceID, item.TicketKey, item.OrderKey, item.OrderLineKey, out.Items[at].SourceID, out.Items[at].Date))
				out.Items[at] = item
				continue
			}
			seenKeys[item.ID] = len(out.Items)
			out.Items = append(out.Items, item)
		}
	}
	sort.SliceStable(out.Items, func(i, j int) bool {
		return out.Items[i].Date < out.Items[j].Date
	})
	return out
}

func flattenTicket(ticket model.RawRecord, resolver CategoryResolver, out *Output) []model.SalesLineItemAggregated {
	warn := func(format string, args ...any) {
		out.Skipped++
		out.Warnings = append(out.Warnings, fmt.Sprintf("ticket %s: ", ticket.SourceID)+fmt.Sprintf(format, args...))
	}
	if ticket.RawData == nil {
		warn("missing rawData")
		return nil
	}
	orders, ok := normalize.Slice(ticket.RawData, normalize.TicketOrders)
	if !ok {
		warn("no order structure")
		return nil
	}

	ticketKey := normalize.StringOr(ticket.RawData, normalize.TicketKey, ticket.SourceID)
	date := ticket.Date
	if date == "" {
		if t, ok := normalize.Time(ticket.RawData, normalize.TicketDate); ok {
			date = t.Format("2006-01-02")
		}
	}
	header := ticketHeader{
		ticketKey:     ticketKey,
		date:          date,
		locationID:    ticket.LocationID,
		sourceID:      ticket.SourceID,
		waiterName:    normalize.StringOr(ticket.RawData, normalize.WaiterName, ""),
		paymentMethod: normalize.StringOr(ticket.RawData, normalize.PaymentMethod, ""),
		tableNumber:   normalize.StringOr(ticket.RawData, normalize.TableNumber, ""),
	}

	var items []model.SalesLineItemAggregated
	for orderIndex, rawOrder := range orders {
		order, ok := normalize.Map(rawOrder)
		if !ok {
			warn("order %d is not an object", orderIndex)
			continue
		}
		lines, ok := normalize.Slice(order, normalize.OrderLines)
		if !ok {
			warn("order %d has no lines", orderIndex)
			continue
		}
		orderKey := normalize.StringOr(order, normalize.OrderKey, strconv.Itoa(orderIndex))
		for lineIndex, rawLine := range lines {
			line, ok := normalize.Map(rawLine)
			if !ok {
				warn("order %s line %d is not an object", orderKey, lineIndex)
				continue
			}
			lineKey := normalize.StringOr(line, normalize.LineKey, strconv.Itoa(lineIndex))
			items = append(items, header.lineItem(orderKey, lineKey, line, resolver))
		}
	}
	return items
}

type ticketHeader struct {
	ticketKey     string
	date          string
	locationID    string
	sourceID      string
	waiterName    string
	paymentMethod string
	tableNumber   string
}

// lineItem 缺少的數值一律為 0；負數量（退貨）原樣保留
func (h ticketHeader) lineItem(orderKey, lineKey string, line map[string]any, resolver CategoryResolver) model.SalesLineItemAggregated {
	quantity, _ := normalize.Float(line, normalize.Quantity)
	vatRate, _ := normalize.Float(line, normalize.VatRate)
	unitPrice, hasUnitPrice := normalize.Decimal(line, normalize.UnitPrice)
	totalInc, hasTotalInc := normalize.Decimal(line, normalize.TotalIncVat)
	totalEx, hasTotalEx := normalize.Decimal(line, normalize.TotalExVat)

	qty := decimal.NewFromFloat(quantity)
	if !hasTotalInc && hasUnitPrice {
		totalInc = unitPrice.Mul(qty)
	}
	if !hasUnitPrice && hasTotalInc && !qty.IsZero() {
		unitPrice = totalInc.DivRound(qty, money.Scale+2)
	}
	if !hasTotalEx {
		divisor := decimal.NewFromInt(1).Add(decimal.NewFromFloat(vatRate).Div(hundred))
		if divisor.IsZero() {
			totalEx = totalInc
		} else {
			totalEx = totalInc.DivRound(divisor, money.Scale)
		}
	}

	productName := normalize.StringOr(line, normalize.ProductName, "")
	groupName := normalize.StringOr(line, normalize.GroupName, "")
	resolved := category.Result{Category: groupName}
	if groupName != "" && resolver != nil {
		resolved = resolver.FindMainCategory(groupName)
	}

	return model.SalesLineItemAggregated{
		ID:            model.SalesLineItemID(h.locationID, h.ticketKey, orderKey, lineKey),
		TicketKey:     h.ticketKey,
		OrderKey:      orderKey,
		OrderLineKey:  lineKey,
		Date:          h.date,
		LocationID:    h.locationID,
		ProductName:   productName,
		Category:      resolved.Category,
		MainCategory:  resolved.MainCategory,
		Quantity:      quantity,
		UnitPrice:     money.New(unitPrice),
		TotalExVat:    money.New(totalEx),
		TotalIncVat:   money.New(totalInc),
		VatRate:       vatRate,
		WaiterName:    normalize.StringOr(line, normalize.WaiterName, h.waiterName),
		PaymentMethod: normalize.StringOr(line, normalize.PaymentMethod, h.paymentMethod),
		TableNumber:   h.tableNumber,
		SourceID:      h.sourceID,
	}
}

// WaiterNames 票據與明細上出現過的服務生名稱（去重、保留首次出現的拼法）
func WaiterNames(tickets []model.RawRecord) []string {
	seen := make(map[string]struct{})
	var names []string
	add := func(name string) {
		if name == "" {
			return
		}
		key := normalize.Key(name)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		names = append(names, name)
	}
	for _, ticket := range tickets {
		add(normalize.StringOr(ticket.RawData, normalize.WaiterName, ""))
		orders, _ := normalize.Slice(ticket.RawData, normalize.TicketOrders)
		for _, rawOrder := range orders {
			lines, _ := normalize.Slice(rawOrder, normalize.OrderLines)
			for _, rawLine := range lines {
				add(normalize.StringOr(rawLine, normalize.WaiterName, ""))
			}
		}
	}
	sort.Strings(names)
	return names
}
