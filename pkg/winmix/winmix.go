// Package winmix enumerates per-application audio sessions and lets callers
// adjust each session's volume and mute state independently, the same way the
// system volume mixer does.
//
// A Context is the entry point. Enumerate performs a fresh walk of the
// platform audio topology on every call and returns one Session per process
// currently rendering audio; nothing is cached between calls. The underlying
// audio subsystem connection is apartment/thread-affine: a Context, and any
// Session or VolumeControl derived from it, should be used from the goroutine
// that created the Context.
package winmix

import (
	"go.uber.org/zap"
)

// Context owns the process-wide audio subsystem connection for as long as it
// lives. It releases that connection on Release only if it was the one to
// establish it; a subsystem already initialized elsewhere in the process is
// left alone.
type Context struct {
	logger *zap.SugaredLogger
	finder sessionFinder
}

// New creates a Context. It never fails: if the audio subsystem can't be
// initialized here, the failure resurfaces from the first call that actually
// needs it. A nil logger disables logging.
func New(logger *zap.SugaredLogger) *Context {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	logger = logger.Named("winmix")

	c := &Context{
		logger: logger,
		finder: newSessionFinder(logger),
	}

	c.logger.Debug("Created winmix context")

	return c
}

// Enumerate walks all active audio output endpoints and returns one Session
// per process-owned audio session found on them. The system sounds
// pseudo-session is excluded. Endpoint and session ordering is
// platform-determined and may change between calls.
//
// Enumeration is all or nothing: if the platform rejects any step of the
// walk, the partial result is released and an *OsError is returned.
func (c *Context) Enumerate() ([]*Session, error) {
	return c.finder.GetAllSessions()
}

// Devices lists the audio devices currently known to the platform.
func (c *Context) Devices() ([]DeviceInfo, error) {
	return c.finder.GetAllDevices()
}

// Release tears down the subsystem connection if this Context established it,
// and is a no-op otherwise. Sessions obtained from this Context must not be
// used afterwards.
func (c *Context) Release() error {
	c.logger.Debug("Releasing winmix context")
	return c.finder.Release()
}
