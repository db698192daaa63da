package command

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/MiaKoring/BloomBuddyServer/internal/cli/connection"
	"github.com/MiaKoring/BloomBuddyServer/internal/cli/output"
)

type statusView struct {
	Server  string `json:"server" yaml:"server"`
	Health  string `json:"health" yaml:"health"`
	Ready   string `json:"ready" yaml:"ready"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
}

func (s statusView) Table() *output.Table {
	t := output.NewTable("SERVER", "HEALTH", "READY", "VERSION")
	t.AddRow(s.Server, s.Health, s.Ready, s.Version)
	return t
}

// StatusCommand returns the status command.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Check server health and readiness",
		Action: status,
	}
}

func status(c *cli.Context) error {
	client := newClient(c)
	ctx, cancel := requestContext(c)
	defer cancel()

	view := statusView{Server: client.BaseURL()}

	var health struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	resp, err := client.Get(ctx, "/health", nil)
	if err == nil {
		err = connection.ParseResponse(resp, &health)
	}
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	view.Health, view.Version = health.Status, health.Version

	var ready struct {
		Status string `json:"status"`
	}
	resp, err = client.Get(ctx, "/ready", nil)
	if err == nil {
		err = connection.ParseResponse(resp, &ready)
	}
	var apiErr *connection.APIError
	switch {
	case errors.As(err, &apiErr):
		view.Ready = "not ready"
	case err != nil:
		return fmt.Errorf("readiness check failed: %w", err)
	default:
		view.Ready = ready.Status
	}

	return printResult(c, view)
}
