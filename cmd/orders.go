package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mood2food/storefront-client/pkg/client"
	"github.com/mood2food/storefront-client/pkg/output"
	"github.com/mood2food/storefront-client/pkg/schedule"
)

var (
	orderLimit    int
	watchSchedule string
	watchTimezone string
)

var OrdersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Inspect and cancel orders",
}

var ordersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your most recent orders",
	Args:  cobra.NoArgs,
	RunE:  withApp(runOrdersList),
}

var ordersShowCmd = &cobra.Command{
	Use:   "show ORDER_ID",
	Short: "Show an order and its items",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runOrdersShow),
}

var ordersStatusCmd = &cobra.Command{
	Use:   "status ORDER_ID",
	Short: "Show the status history of an order",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runOrdersStatus),
}

var ordersCancelCmd = &cobra.Command{
	Use:   "cancel ORDER_ID",
	Short: "Cancel a pending order",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runOrdersCancel),
}

var ordersWatchCmd = &cobra.Command{
	Use:   "watch ORDER_ID",
	Short: "Poll an order until it is completed or cancelled",
	Long: `Poll the status of an order on a schedule and print a diff whenever it changes.
Watching stops once the order is completed or cancelled.

The schedule accepts cron expressions and descriptors such as "@every 30s".`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(runOrdersWatch),
}

func init() {
	ordersListCmd.Flags().IntVarP(&orderLimit, "limit", "l", client.DefaultOrderLimit, "Maximum number of orders to list")

	defaults := schedule.DefaultWatcherConfig()
	ordersWatchCmd.Flags().StringVarP(&watchSchedule, "schedule", "s", defaults.CronExpr, "When to poll")
	ordersWatchCmd.Flags().StringVar(&watchTimezone, "timezone", "", "Timezone of the schedule (default UTC)")

	OrdersCmd.AddCommand(ordersListCmd)
	OrdersCmd.AddCommand(ordersShowCmd)
	OrdersCmd.AddCommand(ordersStatusCmd)
	OrdersCmd.AddCommand(ordersCancelCmd)
	OrdersCmd.AddCommand(ordersWatchCmd)
}

func runOrdersList(cmd *cobra.Command, a *app, args []string) error {
	orders, err := a.client.GetMyOrders(cmd.Context(), orderLimit)
	if err != nil {
		return err
	}
	return a.print(orders)
}

func runOrdersShow(cmd *cobra.Command, a *app, args []string) error {
	details, err := a.client.GetOrder(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return a.print(details)
}

func runOrdersStatus(cmd *cobra.Command, a *app, args []string) error {
	timeline, err := a.client.GetOrderStatus(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return a.print(timeline)
}

func runOrdersCancel(cmd *cobra.Command, a *app, args []string) error {
	result, err := a.client.CancelOrder(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return a.print(result)
}

func runOrdersWatch(cmd *cobra.Command, a *app, args []string) error {
	w, err := newOrderWatcher(a, args[0], schedule.WatcherConfig{
		CronExpr:   watchSchedule,
		Timezone:   watchTimezone,
		RunOnStart: true,
	})
	if err != nil {
		return err
	}
	return w.Run(cmd.Context())
}

// newOrderWatcher prints the timeline of orderID once, then a diff each
// time it changes, until the order reaches a final status
func newOrderWatcher(a *app, orderID string, config schedule.WatcherConfig) (*schedule.Watcher, error) {
	var previous *client.OrderTimeline
	name := "order-" + orderID

	task := func(ctx context.Context) error {
		current, err := a.client.GetOrderStatus(ctx, orderID)
		if err != nil {
			return err
		}

		if previous == nil {
			if err := a.print(current); err != nil {
				return err
			}
		} else {
			diff, err := output.Diff(previous, current, name)
			if err != nil {
				return err
			}
			if diff != "" {
				fmt.Fprint(a.out, diff)
			}
		}
		previous = current

		if client.IsFinalStatus(current.Current()) {
			a.log.Info().Str("order_id", orderID).Str("status", current.Current()).Msg("order finished")
			return schedule.ErrDone
		}
		return nil
	}

	return schedule.NewWatcher(config, task, a.log.With().Str("order_id", orderID).Logger())
}
