package command

import (
	"fmt"
	"net/url"

	"github.com/urfave/cli/v2"

	"github.com/MiaKoring/BloomBuddyServer/internal/cli/connection"
)

// DeviceCommand returns the device subcommand group.
func DeviceCommand() *cli.Command {
	return &cli.Command{
		Name:    "device",
		Aliases: []string{"dev"},
		Usage:   "Manage push notification devices",
		Subcommands: []*cli.Command{
			{
				Name:      "register",
				Usage:     "Register a device push token",
				ArgsUsage: "TOKEN",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "android",
						Usage: "Register a non-iOS device",
					},
				},
				Action: deviceRegister,
			},
			{
				Name:   "list",
				Usage:  "List registered devices",
				Action: deviceList,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Remove a device",
				ArgsUsage: "DEVICE_ID",
				Action:    deviceRemove,
			},
		},
	}
}

func deviceRegister(c *cli.Context) error {
	if err := requireArgs(c, "TOKEN"); err != nil {
		return err
	}
	auth, err := accountAuth(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	resp, err := newClient(c).Post(ctx, "/users/devices", map[string]any{
		"token":  c.Args().First(),
		"is_ios": !c.Bool("android"),
	}, auth)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var d deviceView
	if err := connection.ParseResponse(resp, &d); err != nil {
		return err
	}
	return printResult(c, d)
}

func deviceList(c *cli.Context) error {
	auth, err := accountAuth(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	resp, err := newClient(c).Get(ctx, "/users/devices", auth)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var list devicesView
	if err := connection.ParseResponse(resp, &list); err != nil {
		return err
	}
	return printResult(c, list)
}

func deviceRemove(c *cli.Context) error {
	if err := requireArgs(c, "DEVICE_ID"); err != nil {
		return err
	}
	auth, err := accountAuth(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	resp, err := newClient(c).Delete(ctx, "/users/devices/"+url.PathEscape(c.Args().First()), auth)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if err := connection.ParseResponse(resp, nil); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Device %s removed.\n", truncateID(c.Args().First()))
	return nil
}
