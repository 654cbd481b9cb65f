package rotation

import "errors"

var (
	errNilSource   = errors.New("rotation: source is required")
	errNilRenderer = errors.New("rotation: renderer is required")
)
