package converter

import "errors"

// Sentinel errors returned by Convert.
var (
	// ErrEmptyInput is returned when the HTML input is empty or blank.
	ErrEmptyInput = errors.New("html input is empty")

	// ErrParse is returned when the input cannot be parsed into a tree.
	ErrParse = errors.New("failed to parse html")
)
