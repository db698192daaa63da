package command

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/MiaKoring/BloomBuddyServer/internal/cli/connection"
)

// SensorCommand returns the sensor subcommand group.
func SensorCommand() *cli.Command {
	return &cli.Command{
		Name:    "sensor",
		Aliases: []string{"sens"},
		Usage:   "Manage sensors and simulate telemetry",
		Subcommands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create a sensor",
				ArgsUsage: "NAME",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "model",
						Aliases: []string{"m"},
						Usage:   "Sensor model: diy, basic, pro or its code",
					},
				},
				Action: sensorCreate,
			},
			{
				Name:   "list",
				Usage:  "List sensors",
				Action: sensorList,
			},
			{
				Name:      "get",
				Usage:     "Show a sensor and its latest reading",
				ArgsUsage: "SENSOR_ID",
				Action:    sensorGet,
			},
			{
				Name:      "rename",
				Usage:     "Rename a sensor",
				ArgsUsage: "SENSOR_ID NAME",
				Action:    sensorRename,
			},
			{
				Name:      "model",
				Usage:     "Change a sensor's model",
				ArgsUsage: "SENSOR_ID MODEL",
				Action:    sensorModel,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a sensor",
				ArgsUsage: "SENSOR_ID",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Skip confirmation",
					},
				},
				Action: sensorDelete,
			},
			{
				Name:      "pair",
				Usage:     "Obtain and store a sensor token",
				ArgsUsage: "SENSOR_ID",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "account-id",
						Usage: "Owning account id (default from profile)",
					},
				},
				Action: sensorPair,
			},
			{
				Name:      "push",
				Usage:     "Push a reading as the sensor",
				ArgsUsage: "SENSOR_ID VALUE [BATTERY]",
				Action:    sensorPush,
			},
		},
	}
}

func sensorPath(id string, rest ...string) string {
	return "/users/sensors/" + url.PathEscape(id) + strings.Join(rest, "")
}

func sensorCreate(c *cli.Context) error {
	if err := requireArgs(c, "NAME"); err != nil {
		return err
	}
	auth, err := accountAuth(c)
	if err != nil {
		return err
	}

	body := map[string]any{"name": c.Args().First()}
	if m := c.String("model"); m != "" {
		body["model"] = m
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	resp, err := newClient(c).Post(ctx, "/users/sensors", body, auth)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := connection.ParseResponse(resp, &created); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Sensor created: %s\n", created.ID)
	return nil
}

func sensorList(c *cli.Context) error {
	auth, err := accountAuth(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	resp, err := newClient(c).Get(ctx, "/users/sensors", auth)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var list sensorsView
	if err := connection.ParseResponse(resp, &list); err != nil {
		return err
	}
	return printResult(c, list)
}

func sensorGet(c *cli.Context) error {
	if err := requireArgs(c, "SENSOR_ID"); err != nil {
		return err
	}
	auth, err := accountAuth(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	resp, err := newClient(c).Get(ctx, sensorPath(c.Args().First()), auth)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var s sensorView
	err = connection.ParseResponse(resp, &s)
	if errors.Is(err, connection.ErrNoContent) {
		fmt.Fprintln(c.App.Writer, "No data available yet.")
		return nil
	}
	if err != nil {
		return err
	}
	return printResult(c, s)
}

func sensorRename(c *cli.Context) error {
	if err := requireArgs(c, "SENSOR_ID", "NAME"); err != nil {
		return err
	}
	auth, err := accountAuth(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	resp, err := newClient(c).Patch(ctx, sensorPath(c.Args().Get(0), "/name"),
		map[string]string{"name": c.Args().Get(1)}, auth)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var out struct {
		Name string `json:"name"`
	}
	if err := connection.ParseResponse(resp, &out); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Sensor %s renamed to %s\n", truncateID(c.Args().Get(0)), out.Name)
	return nil
}

func sensorModel(c *cli.Context) error {
	if err := requireArgs(c, "SENSOR_ID", "MODEL"); err != nil {
		return err
	}
	auth, err := accountAuth(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	resp, err := newClient(c).Patch(ctx, sensorPath(c.Args().Get(0), "/model"),
		map[string]string{"model": c.Args().Get(1)}, auth)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var out struct {
		Model int `json:"model"`
	}
	if err := connection.ParseResponse(resp, &out); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Sensor %s model set to %d\n", truncateID(c.Args().Get(0)), out.Model)
	return nil
}

func sensorDelete(c *cli.Context) error {
	if err := requireArgs(c, "SENSOR_ID"); err != nil {
		return err
	}
	id := c.Args().First()

	auth, err := accountAuth(c)
	if err != nil {
		return err
	}
	if !c.Bool("force") && !confirm(c, fmt.Sprintf("Delete sensor '%s'?", truncateID(id))) {
		fmt.Fprintln(c.App.Writer, "Cancelled.")
		return nil
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	resp, err := newClient(c).Delete(ctx, sensorPath(id), auth)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if err := connection.ParseResponse(resp, nil); err != nil {
		return err
	}

	p := profile(c)
	if _, ok := p.SensorTokens[id]; ok {
		delete(p.SensorTokens, id)
		if err := saveProfile(c); err != nil {
			return err
		}
	}
	fmt.Fprintf(c.App.Writer, "Sensor %s deleted.\n", truncateID(id))
	return nil
}

func sensorPair(c *cli.Context) error {
	if err := requireArgs(c, "SENSOR_ID"); err != nil {
		return err
	}
	id := c.Args().First()

	accountID := c.String("account-id")
	if accountID == "" {
		accountID = profile(c).Account.ID
	}
	if accountID == "" {
		return fmt.Errorf("account id unknown: pass --account-id")
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	resp, err := newClient(c).Post(ctx, "/sensors", nil, connection.Basic(id, accountID))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var tok tokenView
	if err := connection.ParseResponse(resp, &tok); err != nil {
		return err
	}

	profile(c).SensorTokens[id] = tok.Token
	if err := saveProfile(c); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Sensor %s paired.\n", truncateID(id))
	return nil
}

func sensorPush(c *cli.Context) error {
	if c.NArg() < 2 || c.NArg() > 3 {
		return fmt.Errorf("expected arguments: SENSOR_ID VALUE [BATTERY]")
	}
	id := c.Args().First()

	token := c.String("token")
	if token == "" {
		token = profile(c).SensorTokens[id]
	}
	if token == "" {
		return fmt.Errorf("sensor %s is not paired: run 'bloombuddy-cli sensor pair %s'", truncateID(id), id)
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	body := strings.Join(c.Args().Slice()[1:], " ")
	resp, err := newClient(c).Patch(ctx, "/sensors", body, connection.Bearer(token))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	ack, err := connection.ReadText(resp)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, ack)
	return nil
}
