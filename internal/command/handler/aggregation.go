package command

import (
	"encoding/json"
	"fmt"

	"opsboard/internal/core"
	"opsboard/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RangeFlags aggregate 子命令共用的參數
type RangeFlags struct {
	From       string
	To         string
	LocationID string
	Full       bool
}

func (f RangeFlags) request() (service.JobRequest, error) {
	r, err := core.ParseDateRange(f.From, f.To)
	if err != nil {
		return service.JobRequest{}, err
	}
	return service.JobRequest{Range: r, LocationID: f.LocationID, Full: f.Full, Trigger: service.TriggerCLI}, nil
}

type AggregationHandler struct {
	logger *zap.Logger
	jobs   *service.JobService
}

func NewAggregationHandler(logger *zap.Logger, jobs *service.JobService) *AggregationHandler {
	return &AggregationHandler{
		logger: logger,
		jobs:   jobs,
	}
}

func (handler *AggregationHandler) Sales(cmd *cobra.Command, flags RangeFlags) error {
	req, err := flags.request()
	if err != nil {
		return err
	}
	result, err := handler.jobs.RunSalesLineItems(cmd.Context(), req)
	return handler.print(cmd, result, err)
}

func (handler *AggregationHandler) Labor(cmd *cobra.Command, flags RangeFlags) error {
	req, err := flags.request()
	if err != nil {
		return err
	}
	result, err := handler.jobs.RunLaborHours(cmd.Context(), req)
	return handler.print(cmd, result, err)
}

func (handler *AggregationHandler) Workers(cmd *cobra.Command) error {
	result, err := handler.jobs.RunWorkerProfiles(cmd.Context(), service.TriggerCLI)
	return handler.print(cmd, result, err)
}

func (handler *AggregationHandler) Changes(cmd *cobra.Command, source string, flags RangeFlags) error {
	r, err := core.ParseDateRange(flags.From, flags.To)
	if err != nil {
		return err
	}
	plans, err := handler.jobs.PlanChanges(cmd.Context(), core.Source(source), r, flags.LocationID)
	if err != nil {
		return err
	}
	return writeJSON(cmd, plans)
}

// print 部分門市失敗時仍輸出結果，再回傳錯誤讓 exit code 非零
func (handler *AggregationHandler) print(cmd *cobra.Command, result *service.Result, err error) error {
	if result != nil {
		if werr := writeJSON(cmd, result); werr != nil {
			return werr
		}
	}
	if err != nil {
		handler.logger.Error("aggregation command failed", zap.Error(err))
		return err
	}
	return nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return err
}
