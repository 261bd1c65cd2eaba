package internal

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var ErrMissingFolder = errors.New("no folder id configured")

// PreconditionError stops a run before any stage starts
type PreconditionError struct {
	Err error
}

func (e *PreconditionError) Error() string {
	return "precondition failed: " + e.Err.Error()
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

// RunConfig is fixed for the duration of a run
type RunConfig struct {
	FolderID   string
	TableName  string
	OwnerLabel string
	SheetRange string
	DryRun     bool // capture and reconcile, but upload nothing
}

type Stage string

const (
	StageCapture   Stage = "capture"
	StageFolder    Stage = "folder"
	StageUpload    Stage = "upload"
	StageLocate    Stage = "locate"
	StageReconcile Stage = "reconcile"
	StagePersist   Stage = "persist"
)

// stageOrder is the order stages run in
var stageOrder = []Stage{StageCapture, StageFolder, StageUpload, StageLocate, StageReconcile, StagePersist}

type StageStatus string

const (
	StatusOK      StageStatus = "ok"
	StatusSkipped StageStatus = "skipped"
	StatusFailed  StageStatus = "failed"
)

type RunState string

const (
	StateDone                RunState = "done"
	StateSkippedNoTable      RunState = "skipped-no-table"
	StateAbortedPrecondition RunState = "aborted-precondition"
	StateAbortedCapture      RunState = "aborted-at-capture"
	StateAbortedSync         RunState = "aborted-at-sync"
)

type StageResult struct {
	Stage  Stage       `json:"stage"`
	Status StageStatus `json:"status"`
	Detail string      `json:"detail,omitempty"`
}

// Report is the verdict of one run
type Report struct {
	Date   Date
	State  RunState
	OK     bool
	DryRun bool
	Stages []StageResult

	Screenshot string
	TableFile  *TableFile
	Outcome    *Outcome
	Err        error
}

func (r *Report) set(stage Stage, status StageStatus, detail string) {
	for i := range r.Stages {
		if r.Stages[i].Stage == stage {
			r.Stages[i].Status = status
			r.Stages[i].Detail = detail
			return
		}
	}
	r.Stages = append(r.Stages, StageResult{Stage: stage, Status: status, Detail: detail})
}

// skipRemaining marks every stage without a result as skipped
func (r *Report) skipRemaining(detail string) {
	for _, s := range stageOrder {
		if r.Stage(s) == nil {
			r.set(s, StatusSkipped, detail)
		}
	}
}

// Stage returns the result for s, or nil if it has none
func (r *Report) Stage(s Stage) *StageResult {
	for i := range r.Stages {
		if r.Stages[i].Stage == s {
			return &r.Stages[i]
		}
	}
	return nil
}

// Orchestrator runs capture, upload and timesheet reconciliation once
type Orchestrator struct {
	cfg     RunConfig
	capture Capturer
	files   FileStore
	sheets  SheetValues
	log     LogFunc
}

func NewOrchestrator(cfg RunConfig, capture Capturer, files FileStore, sheets SheetValues, log LogFunc) *Orchestrator {
	return &Orchestrator{cfg: cfg, capture: capture, files: files, sheets: sheets, log: log}
}

// Run executes every stage once, in order, with no retries. A capture
// failure aborts the run, a missing timesheet only skips reconciliation,
// and any transfer failure aborts the remaining sync stages.
func (o *Orchestrator) Run(ctx context.Context, date Date, entry Entry) *Report {
	report := &Report{Date: date, DryRun: o.cfg.DryRun}

	if err := o.checkPreconditions(); err != nil {
		o.log.printf("Error: %v", err)
		return o.abort(report, StateAbortedPrecondition, err)
	}

	o.log.printf("Run started for %s", date)

	// Capture
	path, err := o.capture.Capture(ctx, date)
	if err != nil {
		o.log.printf("Capture failed: %v", err)
		report.set(StageCapture, StatusFailed, err.Error())
		return o.abort(report, StateAbortedCapture, err)
	}
	report.Screenshot = path
	report.set(StageCapture, StatusOK, path)

	o.log.printf("Syncing data...")

	// Dated folder and screenshot upload
	if o.cfg.DryRun {
		report.set(StageFolder, StatusSkipped, "dry run")
		report.set(StageUpload, StatusSkipped, "dry run")
	} else {
		folderID, err := o.files.FindOrCreateFolder(ctx, o.cfg.FolderID, date.String())
		if err != nil {
			return o.syncFailed(report, StageFolder, err)
		}
		report.set(StageFolder, StatusOK, date.String())

		name := filepath.Base(path)
		if _, err := o.files.UploadFile(ctx, path, name, folderID); err != nil {
			return o.syncFailed(report, StageUpload, err)
		}
		report.set(StageUpload, StatusOK, name)
		o.log.printf("Uploaded %s", name)
	}

	// Locate the timesheet
	file, err := o.files.FindFileByName(ctx, o.cfg.FolderID, o.cfg.TableName)
	if errors.Is(err, ErrFileNotFound) {
		o.log.printf("'%s' file not found, skipping timesheet update", o.cfg.TableName)
		o.logFolderContents(ctx)
		report.set(StageLocate, StatusSkipped, "not found")
		report.skipRemaining("no timesheet")
		report.State = StateSkippedNoTable
		report.OK = true
		return report
	}
	if err != nil {
		return o.syncFailed(report, StageLocate, err)
	}
	report.TableFile = &file
	report.set(StageLocate, StatusOK, file.Name)
	o.log.printf("Editing: %s", file.Name)

	// Reconcile and persist
	src, err := OpenTableSource(file, SourceDeps{Files: o.files, Sheets: o.sheets, SheetRange: o.cfg.SheetRange})
	if err != nil {
		return o.syncFailed(report, StageReconcile, err)
	}
	if o.cfg.DryRun {
		src = readOnlySource{src}
	}

	rec := Reconciler{OwnerLabel: o.cfg.OwnerLabel, Log: o.log}
	outcome, err := rec.ReconcileSource(ctx, src, date, entry)
	if err != nil {
		var srcErr *SourceError
		if errors.As(err, &srcErr) && srcErr.Op == "write" {
			report.set(StageReconcile, StatusOK, "")
			return o.syncFailed(report, StagePersist, err)
		}
		return o.syncFailed(report, StageReconcile, err)
	}
	report.Outcome = &outcome
	report.set(StageReconcile, StatusOK, outcome.String())
	if o.cfg.DryRun {
		report.set(StagePersist, StatusSkipped, "dry run")
	} else {
		report.set(StagePersist, StatusOK, file.Name)
		o.log.printf("Timesheet updated")
	}

	report.State = StateDone
	report.OK = true
	o.log.printf("Finished")
	return report
}

func (o *Orchestrator) checkPreconditions() error {
	if o.cfg.FolderID == "" {
		return &PreconditionError{Err: ErrMissingFolder}
	}
	if o.capture == nil {
		return &PreconditionError{Err: ErrMissingSession}
	}
	if o.files == nil {
		return &PreconditionError{Err: errors.New("no cloud storage client")}
	}
	return nil
}

func (o *Orchestrator) abort(report *Report, state RunState, err error) *Report {
	report.State = state
	report.OK = false
	report.Err = err
	report.skipRemaining("aborted")
	return report
}

func (o *Orchestrator) syncFailed(report *Report, stage Stage, err error) *Report {
	o.log.printf("Cloud error during %s: %v", stage, err)
	report.set(stage, StatusFailed, err.Error())
	return o.abort(report, StateAbortedSync, err)
}

// logFolderContents lists a few names from the folder to help spot a
// misnamed timesheet
func (o *Orchestrator) logFolderContents(ctx context.Context) {
	names, err := o.files.ListNames(ctx, o.cfg.FolderID, 5)
	if err != nil || len(names) == 0 {
		return
	}
	o.log.printf("Files seen in folder: %s", strings.Join(names, ", "))
}

// readOnlySource reads through to the wrapped source and drops writes
type readOnlySource struct {
	TableSource
}

func (readOnlySource) WriteAll(context.Context, []Row) error {
	return nil
}

func (r *Report) Summary() string {
	switch r.State {
	case StateDone:
		if r.Outcome != nil {
			return fmt.Sprintf("Done: %s", r.Outcome)
		}
		return "Done"
	case StateSkippedNoTable:
		return "Done, timesheet not found (screenshot only)"
	case StateAbortedPrecondition:
		return fmt.Sprintf("Not started: %v", r.Err)
	case StateAbortedCapture:
		return "Failed: no screenshot was taken"
	case StateAbortedSync:
		return fmt.Sprintf("Failed during sync: %v", r.Err)
	}
	return string(r.State)
}
