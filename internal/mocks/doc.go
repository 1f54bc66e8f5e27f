// Package mocks holds testify mocks of the ports used by handler and
// application tests.
package mocks
