package app

import "sectorview/database"

// Terminal refresh errors, shared with the HTTP layer through the
// database package.
var (
	ErrRefreshInProgress = database.ErrRefreshInProgress
	ErrDataUnavailable   = database.ErrDataUnavailable
)
