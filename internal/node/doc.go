// Package node runs the echo node: a TCP listener that gives every accepted
// transport its own session.Conn over a shared packet registry.
package node
