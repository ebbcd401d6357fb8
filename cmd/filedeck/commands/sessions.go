package commands

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/filedeck/internal/cli/output"
	"github.com/marmos91/filedeck/internal/cli/timeutil"
	"github.com/marmos91/filedeck/pkg/adapter/filedeck"
	"github.com/marmos91/filedeck/pkg/api/handlers"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect live sessions of a running server",
	Long: `Query the admin API of a running server for its live sessions.

Examples:
  filedeck sessions list
  filedeck sessions list -o json
  filedeck sessions show 0b8e6c1e-5d1f-4a53-9c55-1c0d9f0f3a11
  filedeck sessions list --admin-url http://10.0.0.5:8080`,
}

var sessionsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List live sessions",
	Args:    cobra.NoArgs,
	RunE:    runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

func init() {
	addAdminFlags(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
}

// sessionTable renders a session list with ages relative to now.
type sessionTable struct {
	list *handlers.SessionList
	now  time.Time
}

func (t sessionTable) Headers() []string {
	return []string{"ID", "Remote", "User", "Directory", "Age"}
}

func (t sessionTable) Rows() [][]string {
	rows := make([][]string, 0, len(t.list.Sessions))
	for _, s := range t.list.Sessions {
		rows = append(rows, sessionRow(s, t.now))
	}
	return rows
}

func sessionRow(s filedeck.SessionInfo, now time.Time) []string {
	user := s.Username
	if !s.Authenticated {
		user = "-"
	}
	dir := s.CurrentDir
	if dir == "" {
		dir = "-"
	}
	return []string{s.ID, s.RemoteAddr, user, dir, timeutil.FormatAge(now.Sub(s.ConnectedAt))}
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	format, err := parseOutput()
	if err != nil {
		return err
	}
	client, err := adminClient()
	if err != nil {
		return err
	}

	list, err := client.ListSessions(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format != output.FormatTable {
		return output.Print(out, format, list)
	}
	if list.Count == 0 {
		_, err := out.Write([]byte("No live sessions\n"))
		return err
	}
	return output.PrintTable(out, sessionTable{list: list, now: time.Now()})
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	format, err := parseOutput()
	if err != nil {
		return err
	}
	client, err := adminClient()
	if err != nil {
		return err
	}

	info, err := client.GetSession(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format != output.FormatTable {
		return output.Print(out, format, info)
	}
	return output.PrintKeyValues(out, [][2]string{
		{"ID", info.ID},
		{"Remote", info.RemoteAddr},
		{"Authenticated", strconv.FormatBool(info.Authenticated)},
		{"User", info.Username},
		{"Directory", info.CurrentDir},
		{"Connected", timeutil.FormatTime(info.ConnectedAt)},
	})
}
