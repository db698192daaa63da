package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/MiaKoring/BloomBuddyServer/internal/cli/config"
	"github.com/MiaKoring/BloomBuddyServer/internal/cli/connection"
	"github.com/MiaKoring/BloomBuddyServer/internal/cli/output"
	"github.com/MiaKoring/BloomBuddyServer/internal/infra/buildinfo"
)

const (
	metaProfile     = "profile"
	metaProfilePath = "profilePath"
)

// errNotLoggedIn is returned by account-token commands without a session.
var errNotLoggedIn = errors.New("not logged in: run 'bloombuddy-cli account login' or pass --token")

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "bloombuddy-cli",
		Usage:   "BloomBuddy command-line client",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			AccountCommand(),
			SensorCommand(),
			DeviceCommand(),
			StatusCommand(),
		},
		Before: loadProfile,
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "BloomBuddy server URL (default from profile)",
			EnvVars: []string{"BLOOMBUDDY_SERVER"},
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Profile file",
			EnvVars: []string{"BLOOMBUDDY_CLI_CONFIG"},
			Value:   config.DefaultConfigPath(),
		},
		&cli.StringFlag{
			Name:    "token",
			Usage:   "Bearer token overriding the stored one",
			EnvVars: []string{"BLOOMBUDDY_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml (default from profile)",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Request timeout",
			Value: 30 * time.Second,
		},
	}
}

func loadProfile(c *cli.Context) error {
	path := c.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	c.App.Metadata[metaProfile] = cfg
	c.App.Metadata[metaProfilePath] = path
	return nil
}

// profile returns the loaded profile, or defaults when Before did not run.
func profile(c *cli.Context) *config.CLIConfig {
	if cfg, ok := c.App.Metadata[metaProfile].(*config.CLIConfig); ok {
		return cfg
	}
	cfg := config.Default()
	c.App.Metadata[metaProfile] = cfg
	return cfg
}

func saveProfile(c *cli.Context) error {
	path, _ := c.App.Metadata[metaProfilePath].(string)
	if err := config.Save(profile(c), path); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func newClient(c *cli.Context) *connection.HTTPClient {
	server := c.String("server")
	if server == "" {
		server = profile(c).Server
	}
	return connection.NewHTTPClient(server)
}

// accountAuth returns the bearer credentials for account routes.
func accountAuth(c *cli.Context) (connection.Auth, error) {
	if token := c.String("token"); token != "" {
		return connection.Bearer(token), nil
	}
	token := profile(c).Account.Token
	if token == "" {
		return nil, errNotLoggedIn
	}
	return connection.Bearer(token), nil
}

func requestContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context, c.Duration("timeout"))
}

// printResult writes data in the selected output format.
func printResult(c *cli.Context, data any) error {
	name := c.String("output")
	if name == "" {
		name = profile(c).Output
	}
	format, err := output.ParseFormat(name)
	if err != nil {
		return err
	}
	return output.NewFormatter(format).Format(c.App.Writer, data)
}

// requireArgs fails unless exactly the named positional arguments are given.
func requireArgs(c *cli.Context, names ...string) error {
	if c.NArg() != len(names) {
		return fmt.Errorf("expected arguments: %v", names)
	}
	return nil
}

// confirm asks a yes/no question on the app's reader.
func confirm(c *cli.Context, prompt string) bool {
	fmt.Fprintf(c.App.Writer, "%s [y/N]: ", prompt)
	var answer string
	fmt.Fscanln(c.App.Reader, &answer)
	return answer == "y" || answer == "Y"
}

// truncateID truncates long IDs for display.
func truncateID(id string) string {
	if len(id) <= 13 {
		return id
	}
	return id[:8] + "..."
}
