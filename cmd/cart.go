package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var CartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Manage the shopping cart",
}

var cartShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the cart",
	Args:  cobra.NoArgs,
	RunE:  withApp(runCartShow),
}

var cartAddCmd = &cobra.Command{
	Use:   "add MEAL_ID [QTY]",
	Short: "Add a meal to the cart",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  withApp(runCartAdd),
}

var cartUpdateCmd = &cobra.Command{
	Use:   "update ITEM_ID QTY",
	Short: "Change the quantity of a cart item",
	Args:  cobra.ExactArgs(2),
	RunE:  withApp(runCartUpdate),
}

var cartRemoveCmd = &cobra.Command{
	Use:   "remove ITEM_ID",
	Short: "Remove an item from the cart",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runCartRemove),
}

var cartClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every item from the cart",
	Args:  cobra.NoArgs,
	RunE:  withApp(runCartClear),
}

var cartCheckoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Place an order for the cart",
	Args:  cobra.NoArgs,
	RunE:  withApp(runCartCheckout),
}

func init() {
	CartCmd.AddCommand(cartShowCmd)
	CartCmd.AddCommand(cartAddCmd)
	CartCmd.AddCommand(cartUpdateCmd)
	CartCmd.AddCommand(cartRemoveCmd)
	CartCmd.AddCommand(cartClearCmd)
	CartCmd.AddCommand(cartCheckoutCmd)
}

func parseQty(raw string) (int, error) {
	qty, err := strconv.Atoi(raw)
	if err != nil || qty < 1 {
		return 0, fmt.Errorf("quantity must be a positive integer, got %q", raw)
	}
	return qty, nil
}

func runCartShow(cmd *cobra.Command, a *app, args []string) error {
	cart, err := a.client.GetCart(cmd.Context())
	if err != nil {
		return err
	}
	return a.print(cart)
}

func runCartAdd(cmd *cobra.Command, a *app, args []string) error {
	qty := 1
	if len(args) == 2 {
		var err error
		if qty, err = parseQty(args[1]); err != nil {
			return err
		}
	}
	cart, err := a.client.AddToCart(cmd.Context(), args[0], qty)
	if err != nil {
		return err
	}
	return a.print(cart)
}

func runCartUpdate(cmd *cobra.Command, a *app, args []string) error {
	qty, err := parseQty(args[1])
	if err != nil {
		return err
	}
	cart, err := a.client.UpdateCartItem(cmd.Context(), args[0], qty)
	if err != nil {
		return err
	}
	return a.print(cart)
}

func runCartRemove(cmd *cobra.Command, a *app, args []string) error {
	cart, err := a.client.RemoveFromCart(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return a.print(cart)
}

func runCartClear(cmd *cobra.Command, a *app, args []string) error {
	cart, err := a.client.ClearCart(cmd.Context())
	if err != nil {
		return err
	}
	return a.print(cart)
}

func runCartCheckout(cmd *cobra.Command, a *app, args []string) error {
	placed, err := a.client.Checkout(cmd.Context())
	if err != nil {
		return err
	}
	return a.print(placed)
}
