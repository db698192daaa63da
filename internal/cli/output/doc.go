// Package output renders bloombuddy-cli results as tables, JSON or YAML.
//
// Table output is for people; values that know how to lay themselves out
// implement Tabular. JSON and YAML are for scripts and encode the value
// as is.
package output
