package winmix

// OsError represents a failure reported by the underlying platform audio or
// process subsystem. Op names the operation that failed; Err is the platform
// error (an *ole.OleError on Windows, a protocol error on Linux).
type OsError struct {
	Op  string
	Err error
}

func (e *OsError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *OsError) Unwrap() error {
	return e.Err
}

func newOsError(op string, err error) *OsError {
	return &OsError{Op: op, Err: err}
}
