package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/marmos91/filedeck/pkg/config"
)

// textLogTimeLayout is the timestamp the text log handler writes, in
// brackets, at the start of every line.
const textLogTimeLayout = "2006-01-02 15:04:05"

var (
	logsFollow bool
	logsLines  int
	logsSince  string
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show server logs",
	Long: `Display and optionally follow the server log file.

The file is taken from 'logging.output' in the configuration. Servers that
log to stdout or stderr have no file to read.

Examples:
  # Show last 100 lines (default)
  filedeck logs

  # Follow logs in real-time
  filedeck logs -f -n 20

  # Show logs since a specific time
  filedeck logs --since 2024-01-15T10:00:00Z`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 100, "Number of lines to show")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show logs since timestamp (RFC3339 format)")
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logFile := cfg.Logging.Output
	if logFile == "stdout" || logFile == "stderr" {
		return fmt.Errorf("server is configured to log to %s, not a file\n"+
			"Set 'logging.output' to a file path to use this command", logFile)
	}

	var since time.Time
	if logsSince != "" {
		since, err = time.Parse(time.RFC3339, logsSince)
		if err != nil {
			return fmt.Errorf("invalid --since format (use RFC3339): %w", err)
		}
	}

	f, err := os.Open(logFile)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("log file not found: %s\nThe server may not have started yet", logFile)
	}
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	out := cmd.OutOrStdout()
	lines, err := tailLines(f, logsLines, since)
	if err != nil {
		return fmt.Errorf("error reading log file: %w", err)
	}
	for _, line := range lines {
		_, _ = fmt.Fprintln(out, line)
	}

	if !logsFollow {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Following %s (Ctrl+C to stop)...\n", logFile)
	return followFile(ctx, logFile, f, out)
}

// tailLines returns the last n lines of r written at or after since. Lines
// without a recognizable timestamp are always kept.
func tailLines(r io.Reader, n int, since time.Time) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !since.IsZero() {
			if ts := lineTime(line); !ts.IsZero() && ts.Before(since) {
				continue
			}
		}
		if len(ring) == n {
			copy(ring, ring[1:])
			ring = ring[:n-1]
		}
		ring = append(ring, line)
	}
	return ring, scanner.Err()
}

// lineTime extracts the timestamp of a text or JSON log line, or returns
// the zero time.
func lineTime(line string) time.Time {
	if strings.HasPrefix(line, "{") {
		var rec struct {
			Time time.Time `json:"time"`
		}
		if json.Unmarshal([]byte(line), &rec) == nil {
			return rec.Time
		}
		return time.Time{}
	}

	if len(line) > len(textLogTimeLayout)+1 && line[0] == '[' {
		ts, err := time.ParseInLocation(textLogTimeLayout, line[1:len(textLogTimeLayout)+1], time.Local)
		if err == nil {
			return ts
		}
	}
	return time.Time{}
}

// followFile copies data appended to path after r's current offset to w
// until ctx is done.
func followFile(ctx context.Context, path string, r io.Reader, w io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("failed to watch log file: %w", err)
	}

	reader := bufio.NewReader(r)
	drain := func() {
		for {
			line, err := reader.ReadString('\n')
			if line != "" {
				_, _ = io.WriteString(w, line)
			}
			if err != nil {
				return
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) {
				drain()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}
