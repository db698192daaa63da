package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/MiaKoring/BloomBuddyServer/internal/cli/config"
	"github.com/MiaKoring/BloomBuddyServer/internal/cli/connection"
)

// credentialFlags returns fresh name and password flags.
func credentialFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "name",
			Aliases:  []string{"n"},
			Usage:    "Account name",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "password",
			Aliases:  []string{"p"},
			Usage:    "Account password",
			EnvVars:  []string{"BLOOMBUDDY_PASSWORD"},
			Required: true,
		},
	}
}

// AccountCommand returns the account subcommand group.
func AccountCommand() *cli.Command {
	return &cli.Command{
		Name:    "account",
		Aliases: []string{"acct"},
		Usage:   "Create an account and manage the stored session",
		Subcommands: []*cli.Command{
			{
				Name:   "create",
				Usage:  "Create an account and log in",
				Flags:  credentialFlags(),
				Action: accountCreate,
			},
			{
				Name:   "login",
				Usage:  "Log in and store the account token",
				Flags:  credentialFlags(),
				Action: accountLogin,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored account and sensor tokens",
				Action: accountLogout,
			},
			{
				Name:   "whoami",
				Usage:  "Show the stored account",
				Action: accountWhoami,
			},
		},
	}
}

func accountCreate(c *cli.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := newClient(c).Post(ctx, "/users", map[string]string{
		"name":     c.String("name"),
		"password": c.String("password"),
	}, nil)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var tok tokenView
	if err := connection.ParseResponse(resp, &tok); err != nil {
		return err
	}
	return storeSession(c, tok, "Account created")
}

func accountLogin(c *cli.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := newClient(c).Post(ctx, "/users/login", nil,
		connection.Basic(c.String("name"), c.String("password")))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var tok tokenView
	if err := connection.ParseResponse(resp, &tok); err != nil {
		return err
	}
	return storeSession(c, tok, "Logged in")
}

func storeSession(c *cli.Context, tok tokenView, what string) error {
	p := profile(c)
	if tok.AccountID != "" {
		p.Account.ID = tok.AccountID
	}
	p.Account.Name = c.String("name")
	p.Account.Token = tok.Token
	p.Account.ExpiresAt = tok.ExpiresAt
	if err := saveProfile(c); err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "%s as %s", what, p.Account.Name)
	if p.Account.ID != "" {
		fmt.Fprintf(c.App.Writer, " (account id %s)", p.Account.ID)
	}
	fmt.Fprintln(c.App.Writer)
	return nil
}

func accountLogout(c *cli.Context) error {
	p := profile(c)
	p.Account = config.AccountProfile{}
	p.SensorTokens = make(map[string]string)
	if err := saveProfile(c); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "Logged out.")
	return nil
}

func accountWhoami(c *cli.Context) error {
	a := profile(c).Account
	if a.Token == "" {
		return errNotLoggedIn
	}
	return printResult(c, struct {
		ID        string `json:"id" yaml:"id"`
		Name      string `json:"name" yaml:"name"`
		ExpiresAt int64  `json:"expires_at" yaml:"expires_at"`
	}{a.ID, a.Name, a.ExpiresAt})
}
