// Package cli provides the interactive GarageKeeper command-line client.
//
// It wires configuration, the local SQLite store, the cloud backup services
// and a line-oriented REPL. Commands configure the backup folder and service
// account key, export and import snapshots, list cloud backups and run
// scheduled backups in the foreground (watch).
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
