package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/marmos91/filedeck/internal/cli/output"
	"github.com/marmos91/filedeck/internal/cli/prompt"
	"github.com/marmos91/filedeck/pkg/apiclient"
	"github.com/marmos91/filedeck/pkg/config"
	"github.com/marmos91/filedeck/pkg/pathguard"
	"github.com/marmos91/filedeck/pkg/registry"
	"github.com/marmos91/filedeck/pkg/registry/store"
)

var (
	userPassword   string
	userListOutput string
)

// healthTimeout bounds the check for a running server before "user add"
// falls back to the registry backend.
const healthTimeout = 2 * time.Second

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage registered users",
	Long: `Manage the users stored in the configured registry backend.

"user add" goes through the admin API when a server answers on it, so the
user is live immediately and the server's next save keeps it. With no
server reachable it writes the registry backend directly. A server started
with the admin API disabled must be stopped first, since its next save
replaces the stored set with its own copy.

"user list" reads the registry backend directly.

Examples:
  filedeck user add alice
  filedeck user add alice --password secret
  filedeck user add alice --admin-url http://localhost:8080
  echo secret | filedeck user add alice
  filedeck user list`,
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Add a new user (prompts for password)",
	Long: `Add a new user.

When the admin API answers (at --admin-url, or at the address derived from
the admin section of the config) the user is added to the running server.
An explicit --admin-url that does not answer is an error. Otherwise the
registry backend is opened directly.`,
	Args: cobra.ExactArgs(1),
	RunE: runUserAdd,
}

var userListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List registered users",
	Args:    cobra.NoArgs,
	RunE:    runUserList,
}

func init() {
	userAddCmd.Flags().StringVar(&userPassword, "password", "", "Password (prompted when omitted)")
	userAddCmd.Flags().StringVar(&adminURL, "admin-url", "", "Admin API base URL of a running server (default: derived from the admin section of the config)")
	userCmd.AddCommand(userAddCmd)
	userListCmd.Flags().StringVarP(&userListOutput, "output", "o", "table", "Output format (table|json|yaml)")
	userCmd.AddCommand(userListCmd)
}

// openRegistry loads the registry described by the active config. The
// returned close function releases the backend.
func openRegistry(ctx context.Context) (*registry.Registry, func() error, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, nil, err
	}

	backend, err := store.New(&cfg.Registry)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open registry store: %w", err)
	}

	reg, err := registry.Open(ctx, backend)
	if err != nil {
		_ = backend.Close()
		return nil, nil, err
	}
	return reg, backend.Close, nil
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	username := args[0]
	if err := pathguard.ValidName(username); err != nil {
		return fmt.Errorf("invalid username %q: %w", username, err)
	}

	password := userPassword
	if password == "" {
		var err error
		password, err = promptPassword(cmd)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
	}
	if password == "" {
		return errors.New("password cannot be empty")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if client, ok, err := runningServer(ctx); err != nil {
		return err
	} else if ok {
		if _, err := client.AddUser(ctx, username, password); err != nil {
			if apiclient.IsConflict(err) {
				return fmt.Errorf("%q: %w", username, registry.ErrUserExists)
			}
			return fmt.Errorf("failed to add user through the running server: %w", err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "User %q added to the running server\n", username)
		return nil
	}

	reg, closeFn, err := openRegistry(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	if err := reg.Add(ctx, registry.User{Username: username, Password: password}); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "User %q added\n", username)
	return nil
}

// runningServer returns an admin client when a server answers its health
// check. An explicit --admin-url must answer; a derived address that does
// not, or a config with the admin API disabled, means no server is running.
func runningServer(ctx context.Context) (*apiclient.Client, bool, error) {
	explicit := adminURL != ""
	client, err := adminClient()
	if err != nil {
		if explicit {
			return nil, false, err
		}
		return nil, false, nil
	}

	healthCtx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	if _, err := client.Health(healthCtx); err != nil {
		if explicit {
			return nil, false, fmt.Errorf("admin API at %s is not reachable: %w", adminURL, err)
		}
		return nil, false, nil
	}
	return client, true, nil
}

func runUserList(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(userListOutput, output.FormatTable)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	reg, closeFn, err := openRegistry(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	out := cmd.OutOrStdout()
	names := reg.Usernames()
	if format != output.FormatTable {
		return output.Print(out, format, map[string]any{"count": len(names), "usernames": names})
	}
	if len(names) == 0 {
		_, _ = fmt.Fprintln(out, "No users registered")
		return nil
	}

	table := output.NewTable("Username")
	for _, name := range names {
		table.AddRow(name)
	}
	return output.PrintTable(out, table)
}

// promptPassword asks twice, masked, when stdin is a terminal, and reads
// one line from the command's input otherwise.
func promptPassword(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return prompt.NewPassword("Password")
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
