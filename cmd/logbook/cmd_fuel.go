package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"driver_logbook/internal/fuel"
	"driver_logbook/internal/models"
)

func newFuelCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fuel",
		Short: "List and record fuel stops",
	}
	cmd.AddCommand(newFuelListCmd(a), newFuelLogCmd(a))
	return cmd
}

func newFuelListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List fuel logs",
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			if err := a.fuel.Reload(cmd.Context()); err != nil {
				return err
			}
			logs := a.fuel.List()
			if len(logs) == 0 {
				fmt.Fprintln(a.out, "No fuel logs.")
				return nil
			}
			tw := a.table()
			fmt.Fprintln(tw, "ID\tWHEN\tTYPE\tGALLONS\tCOST\tPER GALLON\tODOMETER\tLOCATION")
			for _, l := range logs {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t$%s\t$%s\t%s\t%s\n",
					l.ID, l.Timestamp.Local().Format("2006-01-02 15:04"), l.FuelType,
					fuel.FormatMoney(l.FuelAmount), fuel.FormatMoney(l.FuelCost),
					fuel.CostPerGallon(l.FuelCost, l.FuelAmount),
					fuel.FormatMoney(l.OdometerReading), l.Location)
			}
			return tw.Flush()
		}),
	}
}

func newFuelLogCmd(a *app) *cobra.Command {
	var (
		form   fuel.Form
		fType  string
		tripID uint
	)
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Record a fuel stop",
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			form.FuelType = models.FuelType(fType)
			if tripID != 0 {
				form.TripID = &tripID
			}
			entry, err := a.fuel.LogFuel(cmd.Context(), form)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Logged %s gallons for $%s ($%s/gal).\n",
				fuel.FormatMoney(entry.FuelAmount), fuel.FormatMoney(entry.FuelCost),
				fuel.CostPerGallon(entry.FuelCost, entry.FuelAmount))
			if user := a.session.User(); user != nil {
				fmt.Fprintf(a.out, "Miles since last fuel: %s\n", fuel.FormatMoney(user.MilesSinceLastFuel))
			}
			return nil
		}),
	}
	f := cmd.Flags()
	f.StringVar(&fType, "type", string(models.FuelDiesel), "fuel type: diesel, gasoline, electric or hybrid")
	f.StringVar(&form.FuelAmount, "gallons", "", "amount in gallons")
	f.StringVar(&form.FuelCost, "cost", "", "total cost")
	f.StringVar(&form.OdometerReading, "odometer", "", "odometer reading")
	f.StringVar(&form.Location, "location", "", "where you fuelled")
	f.StringVar(&form.Timestamp, "at", "", "when, defaults to now")
	f.StringVar(&form.Notes, "notes", "", "notes")
	f.UintVar(&tripID, "trip", 0, "trip id")
	_ = cmd.MarkFlagRequired("gallons")
	_ = cmd.MarkFlagRequired("cost")
	return cmd
}
