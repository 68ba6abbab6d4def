package main

import (
	"errors"
	"fmt"

	"workshop-billing-backend/internal/repository"
	"workshop-billing-backend/internal/services/consistency"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Check invoices, orders and stock for inconsistencies",
	Long: `diagnose reads every active invoice and every product and reports:

  - invoices whose stored total differs from the sum of their lines
  - products with negative stock
  - orders with more than one active invoice

Nothing is modified. The run is recorded in diagnostic_runs and the command
exits non-zero when anything is found.`,
	Example: `  workshopctl diagnose`,
	RunE:    runDiagnose,
}

func init() {
	rootCmd.AddCommand(diagnoseCmd)
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}

	run, err := consistency.NewChecker(repository.NewStore(db)).Run(cmd.Context())
	out := cmd.OutOrStdout()

	var findings *multierror.Error
	switch {
	case errors.As(err, &findings):
		for _, f := range findings.Errors {
			fmt.Fprintf(out, "  %s\n", f)
		}
		fmt.Fprintf(out, "run %s: %d invoice(s), %d product(s) checked\n", run.ID, run.InvoicesChecked, run.ProductsChecked)
		return fmt.Errorf("%d finding(s)", len(findings.Errors))
	case err != nil:
		return err
	}

	fmt.Fprintf(out, "run %s: %d invoice(s), %d product(s) checked, no findings\n", run.ID, run.InvoicesChecked, run.ProductsChecked)
	return nil
}
