package manager

import "errors"

// ErrAlreadyStarted is returned by Start when a manager is already bound
// to its endpoint, in this process or a previous one still holding it.
var ErrAlreadyStarted = errors.New("manager: already started")

// ErrUninitialized is returned by Start when the ledger holds no rows —
// init must be run before serve.
var ErrUninitialized = errors.New("manager: ledger is not initialized")
