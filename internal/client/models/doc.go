// Package models defines the client-side data types of the cloud backup
// feature: sync configuration, remote backup records and snapshots.
package models
