package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/urfave/cli/v2"

	"graphcal/internal/api"
	"graphcal/internal/calendar"
	"graphcal/internal/config"
	"graphcal/internal/dataverse"
	"graphcal/internal/graph"
	"graphcal/internal/ics"
	"graphcal/internal/locator"
	"graphcal/internal/models"
	"graphcal/internal/outcome"
	"graphcal/internal/recurrence"
	"graphcal/internal/timeresolve"
)

func main() {
	app := &cli.App{
		Name:  "graphcal",
		Usage: "Resolve and manage Microsoft 365 calendar events by title, date and timezone.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Path to a YAML config file.", EnvVars: []string{"CONFIG_FILE"}},
		},
		Commands: []*cli.Command{
			serveCommand(),
			locateCommand(),
			eventsCommand(),
			birthdayCommand(),
			previewCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and wires the calendar service.
func bootstrap(c *cli.Context) (*config.Config, *calendar.Service, *slog.Logger, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, nil, err
	}
	logger := setupLogger(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}

	creds := graph.Credentials{
		TenantID:     cfg.Graph.TenantID,
		ClientID:     cfg.Graph.ClientID,
		ClientSecret: cfg.Graph.ClientSecret,
	}
	gClient, err := graph.NewClient(c.Context, logger, creds, cfg.Graph.BaseURL, cfg.HTTPTimeout)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create graph client: %w", err)
	}

	var contacts calendar.Contacts
	if cfg.DataverseURL != "" {
		dClient, err := dataverse.NewClient(c.Context, logger, cfg.Graph.TenantID, cfg.Graph.ClientID, cfg.Graph.ClientSecret, cfg.DataverseURL, cfg.HTTPTimeout)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create dataverse client: %w", err)
		}
		contacts = dClient
	} else {
		logger.Warn("DATAVERSE_URL not set, birthday reminders are disabled")
	}

	return cfg, calendar.NewService(logger, gClient, contacts), logger, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "Listen address, overrides LISTEN_ADDR."},
		},
		Action: func(c *cli.Context) error {
			cfg, svc, logger, err := bootstrap(c)
			if err != nil {
				return err
			}
			addr := cfg.Listen
			if c.IsSet("listen") {
				addr = c.String("listen")
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := api.NewServer(svc, logger)
			if err := srv.ListenAndServe(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server failed: %w", err)
			}
			logger.Info("Server stopped.")
			return nil
		},
	}
}

func targetFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "user", Required: true, Usage: "Mailbox owner's email address."},
		&cli.StringFlag{Name: "date", Required: true, Usage: "Calendar date, e.g. 2025-06-01."},
		&cli.StringFlag{Name: "timezone", Value: "UTC", Usage: "IANA timezone of the date."},
	}
}

func locateCommand() *cli.Command {
	return &cli.Command{
		Name:  "locate",
		Usage: "Print the event id a mutation of the titled event would target.",
		Flags: append(targetFlags(),
			&cli.StringFlag{Name: "title", Required: true, Usage: "Event title to match."},
		),
		Action: func(c *cli.Context) error {
			_, svc, _, err := bootstrap(c)
			if err != nil {
				return err
			}
			res := svc.Locate(c.Context, calendar.Target{
				User:     c.String("user"),
				Title:    c.String("title"),
				Date:     c.String("date"),
				Timezone: c.String("timezone"),
			})
			if err := failure(res); err != nil {
				return err
			}
			m := res.Data.(locator.Match)
			fmt.Printf("%s\t%d%%\t%s\n", m.ID, m.Similarity, m.Event.Subject)
			return nil
		},
	}
}

func eventsCommand() *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "List the events of one day.",
		Flags: append(targetFlags(),
			&cli.BoolFlag{Name: "ics", Usage: "Write an iCalendar document instead of a list."},
		),
		Action: func(c *cli.Context) error {
			_, svc, _, err := bootstrap(c)
			if err != nil {
				return err
			}
			res := svc.Events(c.Context, c.String("user"), c.String("date"), c.String("timezone"))
			if err := failure(res); err != nil {
				return err
			}
			events := res.Data.([]models.Event)
			if c.Bool("ics") {
				loc, err := time.LoadLocation(c.String("timezone"))
				if err != nil {
					return err
				}
				return ics.Encode(os.Stdout, events, loc, time.Now())
			}
			for _, ev := range events {
				fmt.Printf("- %s\n", ev.Subject)
			}
			return nil
		},
	}
}

func birthdayCommand() *cli.Command {
	return &cli.Command{
		Name:  "birthday",
		Usage: "Create a yearly reminder ahead of a CRM contact's birthday.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Required: true, Usage: "Mailbox owner's email address."},
			&cli.StringFlag{Name: "contact", Required: true, Usage: "Contact's email address in the CRM."},
			&cli.StringFlag{Name: "timezone", Value: "UTC", Usage: "IANA timezone of the reminder."},
			&cli.IntFlag{Name: "days-prior", Value: 0, Usage: "Days before the birthday to remind."},
			&cli.StringFlag{Name: "end-date", Usage: "Last date of the series (default five years out)."},
		},
		Action: func(c *cli.Context) error {
			_, svc, _, err := bootstrap(c)
			if err != nil {
				return err
			}
			res := svc.BirthdayReminder(c.Context, calendar.BirthdayRequest{
				User:         c.String("user"),
				ContactEmail: c.String("contact"),
				Timezone:     c.String("timezone"),
				DaysPrior:    c.Int("days-prior"),
				EndDate:      c.String("end-date"),
			})
			if err := failure(res); err != nil {
				return err
			}
			fmt.Println(res.Message)
			return nil
		},
	}
}

// previewCommand expands a recurrence locally without touching any calendar.
func previewCommand() *cli.Command {
	return &cli.Command{
		Name:  "preview",
		Usage: "Show the first occurrences of a recurrence pattern.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Required: true, Usage: "daily, weekly, absoluteMonthly or absoluteYearly."},
			&cli.StringFlag{Name: "start-date", Required: true},
			&cli.StringFlag{Name: "end-date", Required: true},
			&cli.StringFlag{Name: "time", Value: "09:00", Usage: "Start time of each occurrence."},
			&cli.IntFlag{Name: "interval", Value: 1},
			&cli.StringSliceFlag{Name: "day", Usage: "Weekday for weekly patterns; repeatable."},
			&cli.IntFlag{Name: "day-of-month"},
			&cli.IntFlag{Name: "month"},
			&cli.IntFlag{Name: "count", Value: 10, Usage: "Maximum occurrences to print."},
		},
		Action: func(c *cli.Context) error {
			startDate, err := timeresolve.NormalizeDate(c.String("start-date"))
			if err != nil {
				return err
			}
			endDate, err := timeresolve.NormalizeDate(c.String("end-date"))
			if err != nil {
				return err
			}
			rec, err := recurrence.Build(recurrence.Params{
				Type:       c.String("type"),
				Interval:   c.Int("interval"),
				DaysOfWeek: c.StringSlice("day"),
				DayOfMonth: c.Int("day-of-month"),
				Month:      c.Int("month"),
				StartDate:  startDate,
				EndDate:    endDate,
			})
			if err != nil {
				return err
			}
			startISO, err := timeresolve.ParseTime(startDate, c.String("time"))
			if err != nil {
				return err
			}
			dtstart, err := time.Parse(timeresolve.ISOLayout, startISO)
			if err != nil {
				return err
			}
			occurrences, err := recurrence.Preview(rec, dtstart, c.Int("count"))
			if err != nil {
				return err
			}
			for _, t := range occurrences {
				fmt.Println(t.Format("Mon 2006-01-02 15:04"))
			}
			return nil
		},
	}
}

// failure turns a non-OK outcome into a command error.
func failure(res outcome.Result) error {
	if res.Kind == outcome.OK {
		return nil
	}
	if res.Message == "" {
		return errors.New(res.Kind.String())
	}
	return fmt.Errorf("%s: %s", res.Kind, res.Message)
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
