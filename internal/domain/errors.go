package domain

import "errors"

// ErrCollaboratorUnavailable is returned when a call out to an external
// collaborator (catalog, prediction, payment) times out or fails. Callers
// retry with backoff; it is never treated as "assume valid".
var ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
