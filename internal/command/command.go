package command

import (
	"fmt"

	commandHandler "opsboard/internal/command/handler"
	"opsboard/utils/validate"

	"github.com/google/wire"
	"github.com/spf13/cobra"
)

var ProviderSet = wire.NewSet(NewCommand, commandHandler.NewAggregationHandler)

type Command struct {
	aggregationCommandHandler *commandHandler.AggregationHandler
}

// NewCommand .
func NewCommand(
	aggregationCommandHandler *commandHandler.AggregationHandler,
) *Command {
	return &Command{
		aggregationCommandHandler: aggregationCommandHandler,
	}
}

func Register(rootCmd *cobra.Command, newCmd func() (*Command, func(), error)) {
	// withCommand 延後到子命令執行時才建立 DB 連線
	withCommand := func(fn func(cmd *cobra.Command, command *Command) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			command, cleanup, err := newCmd()
			if err != nil {
				return err
			}
			defer cleanup()
			return fn(cmd, command)
		}
	}

	aggregate := &cobra.Command{
		Use:   "aggregate",
		Short: "手動補跑聚合",
	}

	var sales commandHandler.RangeFlags
	salesCmd := &cobra.Command{
		Use:          "sales",
		Short:        "Bork 銷售明細聚合",
		SilenceUsage: true,
		RunE: withCommand(func(cmd *cobra.Command, command *Command) error {
			return command.aggregationCommandHandler.Sales(cmd, sales)
		}),
	}
	bindRangeFlags(salesCmd, &sales, true)

	var labor commandHandler.RangeFlags
	laborCmd := &cobra.Command{
		Use:          "labor",
		Short:        "Eitje 工時聚合",
		SilenceUsage: true,
		RunE: withCommand(func(cmd *cobra.Command, command *Command) error {
			return command.aggregationCommandHandler.Labor(cmd, labor)
		}),
	}
	bindRangeFlags(laborCmd, &labor, true)
	aggregate.AddCommand(salesCmd, laborCmd)

	reconcile := &cobra.Command{
		Use:   "reconcile",
		Short: "身分比對",
	}
	reconcile.AddCommand(&cobra.Command{
		Use:          "workers",
		Short:        "重建 worker profiles 的 Eitje / Bork 對應",
		SilenceUsage: true,
		RunE: withCommand(func(cmd *cobra.Command, command *Command) error {
			return command.aggregationCommandHandler.Workers(cmd)
		}),
	})

	var changes commandHandler.RangeFlags
	var source string
	changesCmd := &cobra.Command{
		Use:          "changes",
		Short:        "預覽下一次增量聚合的日期區間",
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if !validate.IsValidSource(source) {
				return fmt.Errorf("unknown source %q, want bork or eitje", source)
			}
			return nil
		},
		RunE: withCommand(func(cmd *cobra.Command, command *Command) error {
			return command.aggregationCommandHandler.Changes(cmd, source, changes)
		}),
	}
	changesCmd.Flags().StringVar(&source, "source", "", "bork 或 eitje")
	_ = changesCmd.MarkFlagRequired("source")
	bindRangeFlags(changesCmd, &changes, false)

	rootCmd.AddCommand(aggregate, reconcile, changesCmd)
}

func bindRangeFlags(cmd *cobra.Command, flags *commandHandler.RangeFlags, withFull bool) {
	cmd.Flags().StringVar(&flags.From, "from", "", "起始日 YYYY-MM-DD")
	cmd.Flags().StringVar(&flags.To, "to", "", "結束日 YYYY-MM-DD（含）")
	cmd.Flags().StringVar(&flags.LocationID, "location", "", "門市 ID，省略則處理區間內所有門市")
	if withFull {
		cmd.Flags().BoolVar(&flags.Full, "full", false, "忽略 change marker 全量重算")
	}
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
}
