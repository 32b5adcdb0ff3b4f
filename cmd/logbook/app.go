package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"driver_logbook/internal/apiclient"
	"driver_logbook/internal/config"
	"driver_logbook/internal/dashboard"
	"driver_logbook/internal/fuel"
	"driver_logbook/internal/logger"
	"driver_logbook/internal/models"
	"driver_logbook/internal/session"
	"driver_logbook/internal/trips"
)

var errNotLoggedIn = errors.New("not logged in, run `logbook login` first")

// app wires the client components for one invocation.
type app struct {
	cfg    config.Client
	out    io.Writer
	errOut io.Writer
	in     *bufio.Reader

	// Set by tests; built from cfg otherwise.
	storage    session.TokenStorage
	httpClient *http.Client
	log        *logrus.Entry

	tokens  *session.TokenHolder
	api     *apiclient.Client
	session *session.Store
	trips   *trips.Controller
	fuel    *fuel.Service
	dash    *dashboard.Service

	assumeYes bool
}

func (a *app) setup() {
	if a.api != nil {
		return
	}
	if a.log == nil {
		log := logger.Setup(logger.Options{File: a.cfg.LogFile, Level: a.cfg.LogLevel})
		a.log = logrus.NewEntry(log).WithField("app", "logbook")
	}
	if a.storage == nil {
		a.storage = session.NewFileStorage(a.cfg.TokenFile)
	}
	a.tokens = session.NewTokenHolder(a.storage, a.log)
	a.api = apiclient.New(apiclient.Config{
		BaseURL:     a.cfg.APIURL,
		HTTPClient:  a.httpClient,
		Credentials: a.tokens,
		OnUnauthorized: func() {
			fmt.Fprintln(a.errOut, "Session expired, please run `logbook login` again.")
		},
		Logger: a.log,
	})
	a.session = session.NewStore(a.api, a.tokens, a.log)
	a.trips = trips.NewController(trips.Config{
		API:       a.api,
		Confirmer: trips.ConfirmFunc(a.confirm),
		Refresher: a.session,
		Logger:    a.log,
	})
	a.fuel = fuel.NewService(a.api, a.session, a.log)
	a.dash = dashboard.NewService(a.api, a.session, a.log)
}

// requireSession restores the stored session and fails when it is gone.
func (a *app) requireSession(ctx context.Context) error {
	if err := a.session.Init(ctx); err != nil {
		if apiclient.IsNetwork(err) {
			return fmt.Errorf("cannot reach %s: %w", a.cfg.APIURL, err)
		}
		return errNotLoggedIn
	}
	if !a.session.IsAuthenticated() {
		return errNotLoggedIn
	}
	return nil
}

func (a *app) confirm(_ context.Context, prompt string) bool {
	if a.assumeYes {
		return true
	}
	fmt.Fprintf(a.out, "%s [y/N]: ", prompt)
	line, err := a.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func (a *app) prompt(label string) string {
	fmt.Fprintf(a.out, "%s: ", label)
	line, _ := a.in.ReadString('\n')
	return strings.TrimSpace(line)
}

func (a *app) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
}

// authed runs fn after restoring the session.
func (a *app) authed(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.requireSession(cmd.Context()); err != nil {
			return err
		}
		return fn(cmd, args)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "logbook",
		Short:         "Driver logbook client",
		Long:          "Record trips and fuel stops, track live position and follow Hours-of-Service limits.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.setup()
		},
	}
	root.PersistentFlags().StringVar(&a.cfg.APIURL, "api", a.cfg.APIURL, "API base URL")
	root.PersistentFlags().StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "log level")

	root.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newTripsCmd(a),
		newFuelCmd(a),
		newDashboardCmd(a),
		newAdminCmd(a),
		newSearchCmd(a),
	)
	return root
}

func printDriver(w io.Writer, d *models.Driver) {
	role := "driver"
	if d.IsAdmin {
		role = "admin"
	}
	fmt.Fprintf(w, "%s (%s, %s)\n", d.DisplayName(), d.Username, role)
	fmt.Fprintf(w, "Hours (8 days): %s used, %s remaining [%s]\n",
		fuel.FormatMoney(d.TotalHours8Days), fuel.FormatMoney(d.RemainingHours8Days), d.ComplianceStatus)
	fmt.Fprintf(w, "Miles since last fuel: %s", fuel.FormatMoney(d.MilesSinceLastFuel))
	if d.NeedsRefuel {
		fmt.Fprint(w, " (refuel required)")
	}
	fmt.Fprintln(w)
}

func printTrips(a *app, list []models.Trip) {
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No trips.")
		return
	}
	tw := a.table()
	fmt.Fprintln(tw, "ID\tSTATUS\tFROM\tTO\tMILES\tHOURS\tSTARTED")
	for _, t := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.Status, t.Origin, t.Destination,
			fuel.FormatMoney(t.Distance), fuel.FormatMoney(t.TotalTripHours),
			t.StartTime.Local().Format("2006-01-02 15:04"))
	}
	_ = tw.Flush()
}
