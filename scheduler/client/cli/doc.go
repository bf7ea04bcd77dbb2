/*
Package cli provides a CLI implementation of a client for the scheduler status server.
The current implementation is tethered to the CLI processing, and the client interface
is not independent.
*/
package cli
