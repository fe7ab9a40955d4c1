// Package app is the facade presentation code talks to.
//
// It forwards commands to the session manager, fans published snapshots out
// to subscribers and keeps access tokens fresh in the background.
package app
