package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gigurra/timesheet-automator/internal"
)

func promptEntry(in *bufio.Reader, out io.Writer) (internal.Entry, error) {
	fmt.Fprintln(out, "\nTime Sheet Details:")
	hours, err := promptLine(in, out, "   - Working Hours: ")
	if err != nil {
		return internal.Entry{}, err
	}
	overtime, err := promptLine(in, out, "   - Overtime: ")
	if err != nil {
		return internal.Entry{}, err
	}
	note, err := promptLine(in, out, "   - Note: ")
	if err != nil {
		return internal.Entry{}, err
	}
	return internal.Entry{WorkingHours: hours, Overtime: overtime, Note: note}, nil
}

func promptFolder(in *bufio.Reader, out io.Writer) (string, error) {
	fmt.Fprintln(out, "\nFIRST RUN SETUP")
	fmt.Fprintln(out, strings.Repeat("-", 50))
	fmt.Fprintln(out, "Paste the Google Drive folder ID (or the folder URL).")
	for {
		folder, err := promptLine(in, out, "Folder ID: ")
		if err != nil {
			return "", err
		}
		if id := internal.ExtractFolderID(folder); id != "" {
			return id, nil
		}
	}
}

func promptAuthCode(in *bufio.Reader, out io.Writer) internal.AuthCodePrompt {
	return func(authURL string) (string, error) {
		fmt.Fprintf(out, "Open this link in your browser and authorize access:\n%s\n", authURL)
		return promptLine(in, out, "Authorization code: ")
	}
}

// promptLine reads one line. A final line without a newline is accepted.
func promptLine(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// logSink forwards orchestrator lines to the logger at a level picked
// from the message
func logSink(logger *log.Logger) internal.LogFunc {
	return func(msg string) {
		switch {
		case hasAnyPrefix(msg, "Error", "Capture failed", "Cloud error"):
			logger.Error(msg)
		case strings.Contains(msg, "not found") || strings.HasPrefix(msg, "Chart delayed"):
			logger.Warn(msg)
		default:
			logger.Info(msg)
		}
	}
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
