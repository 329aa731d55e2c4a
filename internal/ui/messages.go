// Package ui provides the Bubble Tea TUI for Lunchtray.
package ui

// FetchComplete is sent when a background fetch for one restaurant
// finishes, successfully or not.
type FetchComplete struct {
	Code string
	Err  error
}
