// Package memory provides in-memory storage for sessguard.
//
// It backs the dev-mode server and the service test suites. Data is
// lost on restart; production deployments use the postgres store.
package memory
