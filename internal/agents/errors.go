package agents

import "errors"

var (
	ErrAgentNotFound   = errors.New("agent not found")
	ErrExtractionParse = errors.New("extraction parse failure")
	ErrValidation      = errors.New("validation failure")
	ErrNotAuthorized   = errors.New("not authorized")
	ErrReviewNotFound  = errors.New("review not found")
)
