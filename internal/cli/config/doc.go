// Package config stores the bloombuddy-cli profile.
//
// The profile (~/.bloombuddy/cli.yaml by default) remembers the server,
// the preferred output format, the account token from the last login and
// the tokens of paired sensors, so that later commands need no
// credentials on the command line. The file holds bearer tokens and is
// written with mode 0600.
package config
