package winmix

import (
	"fmt"
	"strings"

	ps "github.com/mitchellh/go-ps"
	"go.uber.org/zap"
)

// VolumeControl is a per-session capability for reading and adjusting the
// session's master volume and mute state. Nothing is cached: every call
// round-trips to the platform, so changes made externally (e.g. through the
// system volume mixer) are visible on the next read. Volume is a scalar in
// [0.0, 1.0]; out-of-range values passed to SetMasterVolume are forwarded
// as-is and the platform's reaction is platform-defined.
//
// A VolumeControl stays bound to its underlying platform session. Once that
// session's process exits, operations fail with an *OsError rather than
// misbehave.
type VolumeControl interface {
	GetMasterVolume() (float32, error)
	SetMasterVolume(v float32) error

	GetMute() (bool, error)
	SetMute(v bool) error

	// Release drops the platform references backing this capability.
	Release()
}

const (
	sessionCreationLogMessage = "Created audio session instance"

	// format this with the session's description and whatever the current volume is
	sessionStringFormat = "<session: %s, vol: %.2f>"
)

// Session is one process-owned audio session produced by a single
// enumeration. It holds no claim on anything beyond the platform session
// object its VolumeControl wraps; call Release when done with it.
type Session struct {

	// PID of the process that owns this audio session, never 0.
	PID uint32

	// Path is the full path of that process's executable, best effort.
	// Empty when the process couldn't be inspected (commonly a privilege
	// gap, or the process exited mid-enumeration).
	Path string

	// ProcessName is the executable's base name, best effort like Path.
	ProcessName string

	// Vol adjusts this session's volume and mute state.
	Vol VolumeControl

	logger *zap.SugaredLogger
}

// pathResolver resolves a pid to its executable path (util.GetProcessPath,
// injectable for tests)
type pathResolver func(pid int) (string, error)

// buildSession assembles the public record for one platform session.
// pid 0 marks the shared system sounds pseudo-session, which is not
// attributable to a single process and yields no record. Name and path
// resolution are best effort only: a session is never dropped because its
// process couldn't be inspected.
func buildSession(logger *zap.SugaredLogger, pid uint32, processName string, vol VolumeControl, resolve pathResolver) *Session {
	if pid == 0 {
		return nil
	}

	s := &Session{
		PID:         pid,
		ProcessName: processName,
		Vol:         vol,
	}

	if s.ProcessName == "" {
		if process, err := ps.FindProcess(int(pid)); err == nil && process != nil {
			s.ProcessName = process.Executable()
		}
	}

	if resolve != nil {
		if path, err := resolve(int(pid)); err == nil {
			s.Path = path
		} else {
			logger.Debugw("Failed to get process path, leaving it empty", "pid", pid, "error", err)
		}
	}

	// use a self-identifying session name e.g. winmix.sessions.chrome
	s.logger = logger.Named(strings.TrimSuffix(strings.ToLower(s.ProcessName), ".exe"))
	s.logger.Debugw(sessionCreationLogMessage, "session", s)

	return s
}

// releaseSessions drops the platform references of a partial enumeration
// result that won't be returned to the caller.
func releaseSessions(sessions []*Session) {
	for _, s := range sessions {
		s.Release()
	}
}

// Release drops the platform references held by this session's VolumeControl.
func (s *Session) Release() {
	s.logger.Debug("Releasing audio session")
	s.Vol.Release()
}

func (s *Session) String() string {
	desc := fmt.Sprintf("%s (pid %d)", s.ProcessName, s.PID)

	level, err := s.Vol.GetMasterVolume()
	if err != nil {
		level = -1
	}

	return fmt.Sprintf(sessionStringFormat, desc, level)
}
