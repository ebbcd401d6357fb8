package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/filedeck/internal/cli/output"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the health of a running server",
	Long: `Probe the admin API of a running server: readiness of the user store,
live session count and registered user count.

Examples:
  filedeck status
  filedeck status -o json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	addAdminFlags(statusCmd)
}

// serverStatus is the status summary printed by the status command.
type serverStatus struct {
	Ready         bool   `json:"ready" yaml:"ready"`
	UserStore     string `json:"user_store" yaml:"user_store"`
	Sessions      int    `json:"sessions" yaml:"sessions"`
	Authenticated int    `json:"authenticated" yaml:"authenticated"`
	Users         int    `json:"users" yaml:"users"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := parseOutput()
	if err != nil {
		return err
	}
	client, err := adminClient()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	st := serverStatus{Ready: true, UserStore: "healthy"}
	if _, err := client.Ready(ctx); err != nil {
		st.Ready = false
		st.UserStore = err.Error()
	}

	sessions, err := client.ListSessions(ctx)
	if err != nil {
		return err
	}
	st.Sessions = sessions.Count
	st.Authenticated = sessions.Authenticated

	users, err := client.ListUsers(ctx)
	if err != nil {
		return err
	}
	st.Users = users.Count

	out := cmd.OutOrStdout()
	if format != output.FormatTable {
		return output.Print(out, format, st)
	}
	return output.PrintKeyValues(out, [][2]string{
		{"Ready", strconv.FormatBool(st.Ready)},
		{"User store", st.UserStore},
		{"Sessions", strconv.Itoa(st.Sessions)},
		{"Logged in", strconv.Itoa(st.Authenticated)},
		{"Users", strconv.Itoa(st.Users)},
	})
}
