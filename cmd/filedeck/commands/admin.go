package commands

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/filedeck/internal/cli/output"
	"github.com/marmos91/filedeck/pkg/apiclient"
	"github.com/marmos91/filedeck/pkg/config"
)

var (
	adminURL     string
	outputFormat string
)

// addAdminFlags registers the flags shared by commands that query a
// running server.
func addAdminFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&adminURL, "admin-url", "", "Admin API base URL (default: derived from the admin section of the config)")
	cmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table|json|yaml)")
}

// adminClient returns a client for --admin-url, or for the admin server
// described by the config.
func adminClient() (*apiclient.Client, error) {
	if adminURL != "" {
		return apiclient.New(adminURL), nil
	}

	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, err
	}
	if !cfg.Admin.IsEnabled() {
		return nil, fmt.Errorf("admin server is disabled in the configuration; pass --admin-url to override")
	}

	host := cfg.Admin.BindAddress
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return apiclient.New("http://" + net.JoinHostPort(host, strconv.Itoa(cfg.Admin.Port))), nil
}

func parseOutput() (output.Format, error) {
	return output.ParseFormat(outputFormat, output.FormatTable)
}
