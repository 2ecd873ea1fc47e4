package repository

import "errors"

var (
	// ErrCaptureTimeout indicates the page did not finish loading in time.
	ErrCaptureTimeout = errors.New("capture timed out")
	// ErrNavigationFailed indicates the browser could not navigate to the city page.
	ErrNavigationFailed = errors.New("navigation failed")
	// ErrNotFound indicates no capture exists for the requested city.
	ErrNotFound = errors.New("capture not found")
	// ErrNoInput indicates a processing run found zero capture files.
	ErrNoInput = errors.New("no capture files found")
)
