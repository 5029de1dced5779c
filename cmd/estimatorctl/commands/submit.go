package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// submit --file estimate.json: persist an estimate, updating the customer's previous one.
func submitCmd() *cobra.Command {
	var (
		file     string
		name     string
		email    string
		phone    string
		postcode string
		notes    string
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit an estimate JSON document for saving",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				raw []byte
				err error
			)
			if file == "-" {
				raw, err = io.ReadAll(cmd.InOrStdin())
			} else {
				raw, err = os.ReadFile(file)
			}
			if err != nil {
				return err
			}
			if !json.Valid(raw) {
				return fmt.Errorf("%s is not valid JSON", file)
			}

			details := map[string]string{}
			for k, v := range map[string]string{"name": name, "email": email, "phone": phone, "postcode": postcode} {
				if v != "" {
					details[k] = v
				}
			}
			res, err := client.SubmitEstimate(cmd.Context(), json.RawMessage(raw), details, notes)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (id %d)\n", res.Message, res.EstimateID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "estimate JSON file, - for stdin")
	cmd.Flags().StringVar(&name, "name", "", "customer name")
	cmd.Flags().StringVar(&email, "email", "", "customer email")
	cmd.Flags().StringVar(&phone, "phone", "", "customer phone")
	cmd.Flags().StringVar(&postcode, "postcode", "", "customer postcode")
	cmd.Flags().StringVar(&notes, "notes", "", "notes stored with the estimate")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
