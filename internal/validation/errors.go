package validation

import "errors"

// Sentinel errors returned by the validators. Use errors.Is to check them.
var (
	ErrEmptyName       = errors.New("name is required")
	ErrDuplicateName   = errors.New("name already exists")
	ErrInvalidName     = errors.New("only letters, digits, underscores and hyphens are allowed")
	ErrInvalidCron     = errors.New("invalid cron expression")
	ErrInvalidRange    = errors.New("minimum price must be lower than maximum price")
	ErrUnknownOperator = errors.New("unknown operator")
	ErrInvalidFilter   = errors.New("invalid filter")
	ErrInvalidMarkup   = errors.New("invalid markup rules")
)
