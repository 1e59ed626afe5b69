package classify

import "github.com/rotisserie/eris"

var (
	// ErrInvalidK is returned when the cluster count is below one.
	ErrInvalidK = eris.New("classify: k must be at least 1")

	// ErrTooFewPixels is returned when there are fewer valid pixels than
	// clusters.
	ErrTooFewPixels = eris.New("classify: fewer pixels than clusters")

	// ErrUnknownInit is returned for an unrecognised initialisation method.
	ErrUnknownInit = eris.New("classify: unknown initialisation method")
)
