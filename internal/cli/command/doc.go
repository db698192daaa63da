// Package command defines the bloombuddy-cli commands.
//
// Commands are built with urfave/cli/v2. Account and device commands use
// the account token stored by "account login"; "sensor push" plays the
// role of a sensor with the token stored by "sensor pair".
package command
