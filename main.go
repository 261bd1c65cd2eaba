package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/charmbracelet/log"
	"github.com/gigurra/timesheet-automator/internal"
)

type Params struct {
	Hours    string `descr:"Working hours for the day, e.g. 08:30 (prompted when omitted)" optional:"true"`
	Overtime string `descr:"Overtime for the day, e.g. 00:00" optional:"true"`
	Note     string `descr:"Note for the day" optional:"true"`
	Date     string `descr:"Day to update (DD-MM-YYYY), defaults to today" optional:"true"`
	Config   string `descr:"Path to config file (default: ~/.timesheet-automator/config.yaml)" optional:"true"`
	Folder   string `descr:"Drive folder ID or folder URL, overrides the config" optional:"true"`
	Serve    bool   `descr:"Serve the web form instead of running once" optional:"true"`
	Addr     string `descr:"Listen address for --serve" default:"127.0.0.1:8501"`
	Output   string `descr:"Output format" alts:"table,json" strict:"true" default:"table"`
	DryRun   bool   `descr:"Capture and reconcile without uploading anything" optional:"true"`
	Verbose  bool   `descr:"Log diagnostic detail" optional:"true"`
}

func main() {
	boa.NewCmdT[Params]("timesheet-automator").
		WithShort("Capture the daily dashboard and update the timesheet").
		WithLong("Takes a screenshot of the day's time-tracking dashboard, uploads it to a dated Drive folder, and updates or appends the day's row (hours, overtime, note) in the 'Time update' timesheet.").
		WithRunFunc(func(params *Params) {
			os.Exit(run(params))
		}).
		Run()
}

func run(params *Params) int {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
	if params.Verbose {
		logger.SetLevel(log.DebugLevel)
	}

	if err := internal.LoadDotEnv(".env"); err != nil {
		logger.Warn("Ignoring .env", "err", err)
	}

	cfgPath := params.Config
	if cfgPath == "" {
		cfgPath = internal.DefaultConfigPath()
	}
	cfg, err := internal.LoadConfigOrDefault(cfgPath)
	if err != nil {
		logger.Error("Error loading config", "path", cfgPath, "err", err)
		return 1
	}
	cfg.ApplyEnv(os.Getenv)
	if params.Folder != "" {
		cfg.Folder = params.Folder
	}

	in := bufio.NewReader(os.Stdin)
	interactive := isTerminal(os.Stdin)

	// First run: ask for the folder once and remember it
	if cfg.FolderID() == "" && interactive {
		folder, err := promptFolder(in, os.Stdout)
		if err != nil {
			logger.Error("Error reading folder ID", "err", err)
			return 1
		}
		cfg.Folder = folder
		if err := cfg.Save(cfgPath); err != nil {
			logger.Warn("Could not save config", "path", cfgPath, "err", err)
		} else {
			fmt.Println("Configuration saved!")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var authPrompt internal.AuthCodePrompt
	if interactive {
		authPrompt = promptAuthCode(in, os.Stdout)
	}

	if params.Serve {
		return serve(ctx, params, cfg, authPrompt, logger)
	}

	date := internal.Today()
	if params.Date != "" {
		d, ok := internal.ParseDate(params.Date)
		if !ok {
			logger.Error("Invalid --date, expected DD-MM-YYYY", "date", params.Date)
			return 1
		}
		date = d
	}

	entry := internal.Entry{WorkingHours: params.Hours, Overtime: params.Overtime, Note: params.Note}
	if params.Hours == "" {
		if !interactive {
			logger.Error("--hours is required when stdin is not a terminal")
			return 1
		}
		entry, err = promptEntry(in, os.Stdout)
		if err != nil {
			logger.Error("Error reading input", "err", err)
			return 1
		}
	}

	sink := logSink(logger)

	if cfg.FolderID() == "" {
		logger.Error("Error: no folder ID. Use --folder or set 'folder' in the config", "config", cfgPath)
		return 1
	}
	session, err := internal.LoadSessionFile(cfg.SessionFile)
	if err != nil {
		logger.Error("Error: browser session missing. Log in to the dashboard once and save the session", "file", cfg.SessionFile)
		logger.Debug("Session load failed", "err", err)
		return 1
	}
	capturer, err := internal.NewChromeCapturer(cfg.CaptureConfig(session), sink)
	if err != nil {
		logger.Error("Error preparing browser", "err", err)
		return 1
	}

	files, sheets, err := connectGoogle(ctx, cfg, authPrompt)
	if err != nil {
		logger.Error("Error connecting to Google", "err", err)
		return 1
	}

	orch := internal.NewOrchestrator(cfg.RunConfig(params.DryRun), capturer, files, sheets, sink)
	report := orch.Run(ctx, date, entry)
	if report.Err != nil {
		logger.Debug("Run error detail", "err", fmt.Sprintf("%+v", report.Err))
	}

	if params.Output == "json" {
		if err := internal.PrintReportJSON(os.Stdout, report, entry); err != nil {
			logger.Error("Error writing report", "err", err)
			return 1
		}
	} else {
		internal.PrintReportTable(os.Stdout, report, entry)
	}

	if !report.OK {
		return 1
	}
	return 0
}

func connectGoogle(ctx context.Context, cfg *internal.Config, prompt internal.AuthCodePrompt) (*internal.DriveStore, internal.SheetValues, error) {
	client, err := internal.NewGoogleClient(ctx, cfg.CredentialsFile, cfg.TokenFile, prompt)
	if err != nil {
		return nil, nil, err
	}
	driveSvc, sheetsSvc, err := internal.NewGoogleServices(ctx, client)
	if err != nil {
		return nil, nil, err
	}
	return internal.NewDriveStore(driveSvc), internal.NewSheetsAPI(sheetsSvc), nil
}

func serve(ctx context.Context, params *Params, cfg *internal.Config, prompt internal.AuthCodePrompt, logger *log.Logger) int {
	files, sheets, err := connectGoogle(ctx, cfg, prompt)
	if err != nil {
		logger.Error("Error connecting to Google", "err", err)
		return 1
	}

	web := internal.NewWebServer(func(ctx context.Context, req internal.RunRequest, sink internal.LogFunc) *internal.Report {
		runCfg := *cfg
		runCfg.Folder = req.Folder

		var capturer internal.Capturer
		session := internal.SessionFromCookie(req.SessionCookie, runCfg.DashboardURL)
		if c, err := internal.NewChromeCapturer(runCfg.CaptureConfig(session), sink); err == nil {
			capturer = c
		}

		report := internal.NewOrchestrator(runCfg.RunConfig(params.DryRun), capturer, files, sheets, sink).
			Run(ctx, req.Date, req.Entry)
		logger.Info("Run finished", "date", req.Date, "state", report.State)
		return report
	})

	srv := &http.Server{
		Addr:              params.Addr,
		Handler:           web.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Serving web form", "addr", "http://"+params.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "err", err)
		return 1
	}
	return 0
}
