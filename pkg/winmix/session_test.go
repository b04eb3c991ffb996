package winmix

import (
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
)

type fakeVolume struct {
	level float32
	muted bool

	failWith error
	released bool
}

func (f *fakeVolume) GetMasterVolume() (float32, error) {
	if f.failWith != nil {
		return 0, f.failWith
	}
	return f.level, nil
}

func (f *fakeVolume) SetMasterVolume(v float32) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.level = v
	return nil
}

func (f *fakeVolume) GetMute() (bool, error) {
	if f.failWith != nil {
		return false, f.failWith
	}
	return f.muted, nil
}

func (f *fakeVolume) SetMute(v bool) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.muted = v
	return nil
}

func (f *fakeVolume) Release() {
	f.released = true
}

func TestBuildSessionSkipsSystemSoundsSession(t *testing.T) {
	logger := zap.NewNop().Sugar()

	// one endpoint exposing the system sounds pseudo-session and a real one
	sessions := []*Session{}
	for _, pid := range []uint32{0, 1234} {
		if s := buildSession(logger, pid, "some.exe", &fakeVolume{}, nil); s != nil {
			sessions = append(sessions, s)
		}
	}

	if len(sessions) != 1 {
		t.Fatalf("expected exactly 1 session, got %d", len(sessions))
	}
	if sessions[0].PID != 1234 {
		t.Errorf("expected pid 1234, got %d", sessions[0].PID)
	}
}

func TestBuildSessionPathIsBestEffort(t *testing.T) {
	logger := zap.NewNop().Sugar()

	resolveFail := func(pid int) (string, error) {
		return "", errors.New("access is denied")
	}

	s := buildSession(logger, 4321, "chrome.exe", &fakeVolume{}, resolveFail)
	if s == nil {
		t.Fatal("session dropped because of a failed path resolution")
	}
	if s.Path != "" {
		t.Errorf("expected empty path on resolver failure, got %q", s.Path)
	}

	resolveOK := func(pid int) (string, error) {
		return "/opt/chrome/chrome", nil
	}

	s = buildSession(logger, 4321, "chrome.exe", &fakeVolume{}, resolveOK)
	if s.Path != "/opt/chrome/chrome" {
		t.Errorf("expected resolved path, got %q", s.Path)
	}
}

func TestBuildSessionForExitedProcess(t *testing.T) {
	logger := zap.NewNop().Sugar()

	// way above any real pid range, so name and path lookups both miss
	const exitedPID = 2147483646

	s := buildSession(logger, exitedPID, "", &fakeVolume{}, nil)
	if s == nil {
		t.Fatal("session dropped because its process already exited")
	}
	if s.PID != exitedPID {
		t.Errorf("expected pid %d, got %d", exitedPID, s.PID)
	}
	if s.Path != "" || s.ProcessName != "" {
		t.Errorf("expected empty name and path, got %q / %q", s.ProcessName, s.Path)
	}
}

func TestVolumeRoundTrips(t *testing.T) {
	logger := zap.NewNop().Sugar()

	vol := &fakeVolume{level: 1.0}
	s := buildSession(logger, 1234, "spotify.exe", vol, nil)

	for _, level := range []float32{0.0, 0.5, 1.0} {
		if err := s.Vol.SetMasterVolume(level); err != nil {
			t.Fatalf("set volume to %.2f: %v", level, err)
		}

		got, err := s.Vol.GetMasterVolume()
		if err != nil {
			t.Fatalf("get volume: %v", err)
		}
		if got != level {
			t.Errorf("expected volume %.2f, got %.2f", level, got)
		}

		// reads are idempotent without an intervening write
		again, err := s.Vol.GetMasterVolume()
		if err != nil {
			t.Fatalf("get volume again: %v", err)
		}
		if again != got {
			t.Errorf("consecutive reads disagree: %.2f then %.2f", got, again)
		}
	}
}

func TestMuteRoundTrip(t *testing.T) {
	logger := zap.NewNop().Sugar()

	vol := &fakeVolume{level: 1.0}
	s := buildSession(logger, 1234, "spotify.exe", vol, nil)

	if err := s.Vol.SetMasterVolume(0.25); err != nil {
		t.Fatalf("set volume: %v", err)
	}
	if err := s.Vol.SetMute(true); err != nil {
		t.Fatalf("set mute: %v", err)
	}

	level, err := s.Vol.GetMasterVolume()
	if err != nil {
		t.Fatalf("get volume: %v", err)
	}
	muted, err := s.Vol.GetMute()
	if err != nil {
		t.Fatalf("get mute: %v", err)
	}

	if level != 0.25 || !muted {
		t.Errorf("expected 0.25/muted, got %.2f/%v", level, muted)
	}

	if err := s.Vol.SetMute(false); err != nil {
		t.Fatalf("unmute: %v", err)
	}
	if muted, _ := s.Vol.GetMute(); muted {
		t.Error("expected session to be unmuted")
	}
}

func TestSessionReleaseDropsVolumeRefs(t *testing.T) {
	logger := zap.NewNop().Sugar()

	vol := &fakeVolume{}
	s := buildSession(logger, 1234, "chrome.exe", vol, nil)

	s.Release()
	if !vol.released {
		t.Error("expected volume control to be released with the session")
	}
}

func TestSessionString(t *testing.T) {
	logger := zap.NewNop().Sugar()

	s := buildSession(logger, 1234, "chrome.exe", &fakeVolume{level: 0.5}, nil)

	str := s.String()
	if !strings.Contains(str, "chrome.exe (pid 1234)") || !strings.Contains(str, "0.50") {
		t.Errorf("unexpected session string: %s", str)
	}
}
