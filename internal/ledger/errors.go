package ledger

import "errors"

// ErrAlreadyInitialized is returned by Init when the backing log already
// holds rows and the caller did not request an overwrite.
var ErrAlreadyInitialized = errors.New("ledger: already initialized")

// ErrCorrupt is returned when a log file contains a line that does not
// decode as a row state.
var ErrCorrupt = errors.New("ledger: corrupt log entry")
