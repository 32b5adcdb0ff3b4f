package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"driver_logbook/internal/fuel"
	"driver_logbook/internal/trips"
)

func newDashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show HOS standing and recent trips",
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			view := a.dash.LoadDriver(cmd.Context())
			if view.Driver != nil {
				printDriver(a.out, view.Driver)
			} else if user := a.session.User(); user != nil {
				printDriver(a.out, user)
			}
			fmt.Fprintln(a.out)
			fmt.Fprintln(a.out, "Recent trips:")
			printTrips(a, view.RecentTrips)
			return nil
		}),
	}
}

func newAdminCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "admin",
		Short: "Show fleet statistics (admins only)",
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			if !a.session.IsAdmin() {
				return errors.New("admin access required")
			}
			view, err := a.dash.LoadAdmin(cmd.Context())
			if err != nil {
				fmt.Fprintf(a.errOut, "Dashboard may be out of date: %v\n", err)
			}
			s := view.Stats
			fmt.Fprintf(a.out, "Drivers: %d  Active trips: %d  Completed today: %d\n",
				s.TotalDrivers, s.ActiveTrips, s.CompletedTripsToday)
			fmt.Fprintf(a.out, "Over hours limit: %d  Need refuel: %d\n\n",
				s.ComplianceViolations, s.DriversNeedingRefuel)

			tw := a.table()
			fmt.Fprintln(tw, "DRIVER\tHOURS\tREMAINING\tSTATUS\tMILES SINCE FUEL")
			for _, d := range view.Drivers {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.DisplayName(),
					fuel.FormatMoney(d.TotalHours8Days), fuel.FormatMoney(d.RemainingHours8Days),
					d.ComplianceStatus, fuel.FormatMoney(d.MilesSinceLastFuel))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(a.out)
			fmt.Fprintln(a.out, "Active trips:")
			printTrips(a, view.ActiveTrips)
			return nil
		}),
	}
}

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search QUERY",
		Short: "Look up an address",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			places, err := trips.APIGeocoder{API: a.api}.SearchAddress(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if len(places) == 0 {
				fmt.Fprintln(a.out, "No matches.")
				return nil
			}
			for _, p := range places {
				fmt.Fprintf(a.out, "%s", p.Address)
				if at, ok := p.Point(); ok {
					fmt.Fprintf(a.out, "  %s", at)
				}
				fmt.Fprintln(a.out)
			}
			return nil
		},
	}
}
