package dto

import (
	"opsboard/internal/core"
	cErr "opsboard/internal/pkg/error"
	"opsboard/internal/pkg/request"
)

// 觸發銷售明細 / 工時聚合
type AggregationRangeDto struct {
	From       string `json:"from" binding:"required,dateonly"`         // YYYY-MM-DD
	To         string `json:"to" binding:"required,dateonly"`           // YYYY-MM-DD，含當天
	LocationID string `json:"locationId,omitempty" binding:"omitempty"` // 空值代表區間內所有門市
	Full       bool   `json:"full,omitempty"`                           // 忽略 change marker
}

func (AggregationRangeDto) GetMessages() request.ValidatorMessages {
	return request.ValidatorMessages{
		"From.required": "from is required",
		"From.dateonly": "from must be YYYY-MM-DD",
		"To.required":   "to is required",
		"To.dateonly":   "to must be YYYY-MM-DD",
	}
}

func (d AggregationRangeDto) DateRange() (core.DateRange, error) {
	r, err := core.ParseDateRange(d.From, d.To)
	if err != nil {
		return core.DateRange{}, cErr.InvalidDateRange(err.Error())
	}
	return r, nil
}

// 查詢增量計畫
type ChangesQueryDto struct {
	Source     string `form:"source" binding:"required,oneof=bork eitje"`
	From       string `form:"from" binding:"required,dateonly"`
	To         string `form:"to" binding:"required,dateonly"`
	LocationID string `form:"locationId"`
}

func (d ChangesQueryDto) DateRange() (core.DateRange, error) {
	return AggregationRangeDto{From: d.From, To: d.To}.DateRange()
}
