package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"driver_logbook/internal/livefeed"
	"driver_logbook/internal/models"
	"driver_logbook/internal/tracking"
	"driver_logbook/internal/trips"
)

func newTripsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trips",
		Short: "List, start and finish trips",
	}
	cmd.AddCommand(
		newTripsListCmd(a),
		newTripsStartCmd(a),
		newTripsCompleteCmd(a),
		newTripsCancelCmd(a),
		newTripsPlaceCmd(a, "pickup"),
		newTripsPlaceCmd(a, "destination"),
		newTripsRouteCmd(a),
		newTripsTrackCmd(a),
		newTripsWatchCmd(a),
	)
	return cmd
}

func tripArg(args []string) (uint, error) {
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid trip id %q", args[0])
	}
	return uint(id), nil
}

func latLngArg(s string) (models.LatLng, error) {
	p, ok := models.ParseLatLng(s)
	if !ok {
		return models.LatLng{}, fmt.Errorf("%q is not a lat,lng pair", s)
	}
	return p, nil
}

func newTripsListCmd(a *app) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List trips, newest first",
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			if err := a.trips.Reload(cmd.Context()); err != nil {
				return err
			}
			list := a.trips.Trips()
			if status != "" {
				kept := list[:0]
				for _, t := range list {
					if string(t.Status) == status {
						kept = append(kept, t)
					}
				}
				list = kept
			}
			printTrips(a, list)
			return nil
		}),
	}
	cmd.Flags().StringVar(&status, "status", "", "only trips with this status")
	return cmd
}

func newTripsStartCmd(a *app) *cobra.Command {
	var (
		form                trips.Form
		pickup, destination string
	)
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a new trip",
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if user := a.session.User(); user != nil && user.NeedsRefuel {
				fmt.Fprintf(a.errOut, "Warning: %s miles since last fuel, refuel before starting.\n",
					strconv.FormatFloat(user.MilesSinceLastFuel.Float64(), 'f', 2, 64))
			}
			f := form
			if pickup != "" {
				p, err := latLngArg(pickup)
				if err != nil {
					return err
				}
				loc, err := a.trips.SetPickup(ctx, 0, p)
				if err != nil {
					return err
				}
				f.Pickup = &p
				if f.Origin == "" {
					f.Origin = loc.Address
				}
			}
			if destination != "" {
				p, err := latLngArg(destination)
				if err != nil {
					return err
				}
				loc, err := a.trips.SetDestination(ctx, 0, p)
				if err != nil {
					return err
				}
				f.DestinationPoint = &p
				if f.Destination == "" {
					f.Destination = loc.Address
				}
			}
			trip, err := a.trips.CreateTrip(ctx, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Started trip %d: %s -> %s (%s mi).\n",
				trip.ID, trip.Origin, trip.Destination, strconv.FormatFloat(trip.Distance.Float64(), 'f', -1, 64))
			return nil
		}),
	}
	fl := cmd.Flags()
	fl.StringVar(&form.VehicleID, "vehicle", "", "vehicle id")
	fl.StringVar(&form.Origin, "origin", "", "origin name")
	fl.StringVar(&form.Destination, "destination", "", "destination name")
	fl.StringVar(&form.Distance, "distance", "", "distance in miles")
	fl.StringVar(&form.PickupTime, "pickup-time", "1", "pickup time in hours")
	fl.StringVar(&form.DropoffTime, "dropoff-time", "1", "dropoff time in hours")
	fl.StringVar(&form.StartTime, "start", "", "start time, defaults to now")
	fl.StringVar(&form.Notes, "notes", "", "notes")
	fl.StringVar(&pickup, "pickup", "", "pickup coordinates as lat,lng")
	fl.StringVar(&destination, "to", "", "destination coordinates as lat,lng")
	return cmd
}

func newTripsCompleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "complete ID",
		Short: "Mark a trip completed",
		Args:  cobra.ExactArgs(1),
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			id, err := tripArg(args)
			if err != nil {
				return err
			}
			if err := a.trips.Reload(cmd.Context()); err != nil {
				return err
			}
			trip, err := a.trips.CompleteTrip(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Trip %d completed, %s hours.\n", trip.ID, strconv.FormatFloat(trip.TotalTripHours.Float64(), 'f', 2, 64))
			if user := a.session.User(); user != nil {
				printDriver(a.out, user)
			}
			return nil
		}),
	}
}

func newTripsCancelCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel ID",
		Short: "Cancel a trip",
		Args:  cobra.ExactArgs(1),
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			id, err := tripArg(args)
			if err != nil {
				return err
			}
			if err := a.trips.Reload(cmd.Context()); err != nil {
				return err
			}
			trip, err := a.trips.CancelTrip(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Trip %d cancelled.\n", trip.ID)
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&a.assumeYes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newTripsPlaceCmd(a *app, kind string) *cobra.Command {
	return &cobra.Command{
		Use:   kind + " ID LAT,LNG",
		Short: "Set the trip " + kind + " from coordinates",
		Args:  cobra.ExactArgs(2),
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			id, err := tripArg(args)
			if err != nil {
				return err
			}
			p, err := latLngArg(args[1])
			if err != nil {
				return err
			}
			set := a.trips.SetPickup
			if kind == "destination" {
				set = a.trips.SetDestination
			}
			loc, err := set(cmd.Context(), id, p)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Trip %d %s set to %s (%s).\n", id, kind, loc.Address, p)
			return nil
		}),
	}
}

func newTripsRouteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "route FROM TO",
		Short: "Preview a route between two lat,lng points",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			route, err := a.trips.PreviewRoute(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%.1f km, about %s (%s)\n",
				route.DistanceM/1000, (time.Duration(route.DurationS) * time.Second).Round(time.Minute), route.Provider)
			for i, step := range route.Steps {
				fmt.Fprintf(a.out, "%d. %s", i+1, step.Instruction)
				if step.DistanceM > 0 {
					fmt.Fprintf(a.out, " (%.1f km)", step.DistanceM/1000)
				}
				fmt.Fprintln(a.out)
			}
			return nil
		},
	}
}

func newTripsTrackCmd(a *app) *cobra.Command {
	var (
		from, to string
		steps    int
		every    time.Duration
		duration time.Duration
	)
	cmd := &cobra.Command{
		Use:   "track ID",
		Short: "Stream a simulated position for a trip",
		Args:  cobra.ExactArgs(1),
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			id, err := tripArg(args)
			if err != nil {
				return err
			}
			if err := a.trips.Reload(cmd.Context()); err != nil {
				return err
			}
			trip, _ := a.trips.Trip(id)
			start, err := pointOrTrip(from, trip.Pickup)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			end, err := pointOrTrip(to, trip.DestinationPoint)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			if duration <= 0 {
				duration = time.Duration(steps+2) * every
			}
			ctx, cancel := context.WithTimeout(ctx, duration)
			defer cancel()

			tracker := tracking.New(tracking.Config{
				TripID:   id,
				Source:   &tracking.SimulatedSource{From: start, To: end, Steps: steps, Interval: every, Jitter: 0.00001},
				Sender:   a.trips,
				Interval: a.cfg.TrackInterval,
				Logger:   a.log,
			})
			if err := tracker.Start(ctx); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Tracking trip %d from %s to %s.\n", id, start, end)
			<-ctx.Done()
			tracker.Stop()

			stats := tracker.Stats()
			fmt.Fprintf(a.out, "Sent %d, throttled %d, failed %d.\n", stats.Sent, stats.Throttled, stats.Failed)
			return nil
		}),
	}
	f := cmd.Flags()
	f.StringVar(&from, "from", "", "start lat,lng, defaults to the trip pickup")
	f.StringVar(&to, "to", "", "end lat,lng, defaults to the trip destination")
	f.IntVar(&steps, "steps", 20, "number of simulated fixes")
	f.DurationVar(&every, "every", time.Second, "time between simulated fixes")
	f.DurationVar(&duration, "duration", 0, "stop after this long, defaults to the whole run")
	return cmd
}

func pointOrTrip(flag string, fromTrip func() (models.LatLng, bool)) (models.LatLng, error) {
	if flag != "" {
		return latLngArg(flag)
	}
	if p, ok := fromTrip(); ok {
		return p, nil
	}
	return models.LatLng{}, fmt.Errorf("no coordinates on the trip, pass them explicitly")
}

func newTripsWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch ID",
		Short: "Follow live positions for a trip",
		Args:  cobra.ExactArgs(1),
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			id, err := tripArg(args)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			base := a.cfg.WSURL
			if base == "" {
				base = a.cfg.APIURL
			}
			feed, err := livefeed.Open(ctx, livefeed.Config{
				BaseURL:    base,
				TripID:     id,
				MaxRetries: a.cfg.FeedRetries,
				Logger:     a.log,
			})
			if err != nil {
				return err
			}
			defer feed.Close()
			fmt.Fprintf(a.out, "Watching trip %d on %s.\n", id, feed.URL())

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-feed.StaleC():
					fmt.Fprintln(a.out, "Live feed lost, last known position is stale.")
					return nil
				case ev, ok := <-feed.Updates():
					if !ok {
						return nil
					}
					fmt.Fprintf(a.out, "%s  %.5f,%.5f", ev.RecordedAt, ev.Lat, ev.Lng)
					if ev.Speed != nil {
						fmt.Fprintf(a.out, "  %.1f m/s", *ev.Speed)
					}
					fmt.Fprintln(a.out)
					if ev.Arrived {
						fmt.Fprintln(a.out, "Arrived at destination.")
						return nil
					}
				}
			}
		}),
	}
}
