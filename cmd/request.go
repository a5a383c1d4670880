package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mood2food/storefront-client/pkg/utils"
)

var RequestCmd = &cobra.Command{
	Use:   "request METHOD PATH [BODY]",
	Short: "Send a raw request to the backend with the stored session",
	Long: `Send a raw request through the authenticated client.
The access token is renewed and the request retried like any other call.

Examples:
  storefront request GET /orders/mine
  storefront request POST /cart/items '{"meal_id": "meal-1", "qty": 2}'`,
	Args: cobra.RangeArgs(2, 3),
	RunE: withApp(runRequest),
}

func runRequest(cmd *cobra.Command, a *app, args []string) error {
	var body []byte
	if len(args) == 3 {
		body = []byte(args[2])
	}

	resp, err := a.client.Do(cmd.Context(), args[0], args[1], body)
	if err != nil {
		return err
	}
	defer func() { _ = utils.DrainAndClose(resp) }()

	fmt.Fprintf(a.errOut, "HTTP %d\n", resp.StatusCode)
	if _, err := io.Copy(a.out, resp.Body); err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if !utils.IsSuccess(resp.StatusCode) {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	return nil
}
