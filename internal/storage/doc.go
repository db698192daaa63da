// Package storage provides the persistent record store for BloomBuddy.
//
// Two backends implement service.Store:
//
//   - BadgerStore: embedded Badger v3 database with optimistic, conflict
//     checked transactions. This is the default for single-node setups.
//   - sqlstore.Store: PostgreSQL through GORM, using row locks on the
//     owning account to serialize ownership changes.
//
// Records are kept under these Badger key prefixes:
//
//	account/<id>            JSON domain.Account
//	account-name/<name>     account id (login name index)
//	sensor/<owner>/<id>     JSON domain.Sensor
//	device/<owner>/<id>     JSON domain.Device
package storage
