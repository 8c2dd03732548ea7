// Package cli is the interactive LogMoments client.
//
// Runtime builds and owns the component graph (local store, staging buffer,
// remote table, sync engine, scheduler). App drives a line-oriented REPL on
// top of it:
//
//   - login / logout with a bearer token
//   - add, list, show, delete moments
//   - insights over the local timeline
//   - sync, mode and status for the sync engine
//
// App.Run blocks until the user exits or stdin closes.
package cli
