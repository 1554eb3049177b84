// Package web3 houses blockchain connectivity for tasks: the Client
// abstraction, a JSON-RPC implementation for configured endpoints, an
// in-process simulated chain for networks without an endpoint, and a
// registry that builds clients per network on demand.
package web3
