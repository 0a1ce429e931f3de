package protocol

const (
	// Transport validation.
	ErrBadRequest = "E_BAD_REQUEST"
	ErrNotFound   = "E_NOT_FOUND"

	// Playback state.
	ErrBusy       = "E_BUSY"
	ErrNotLoaded  = "E_NOT_LOADED"
	ErrLoadFailed = "E_LOAD_FAILED"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrBadRequest: {},
	ErrNotFound:   {},
	ErrBusy:       {},
	ErrNotLoaded:  {},
	ErrLoadFailed: {},
	ErrInternal:   {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
