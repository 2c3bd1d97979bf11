// Package config holds the CLI configuration types.
package config

// Role represents the user's chosen role (listen or connect).
type Role string

const (
	RoleListen  Role = "listen"  // run the acceptor side (echo server)
	RoleConnect Role = "connect" // run the connector side (interactive client)
)

// Config stores all parameters gathered from flags or interactive prompts.
type Config struct {
	Role       Role
	Port       int    // Listen: local UDP port to bind
	RemoteAddr string // Connect: "host:port" of the acceptor
	Debug      bool   // enable debug logging
}
