package winmix

import (
	"errors"
	"testing"

	"go.uber.org/zap"
)

type fakeFinder struct {
	sessions []*Session
	devices  []DeviceInfo
	err      error

	releaseCount int
}

func (f *fakeFinder) GetAllSessions() ([]*Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sessions, nil
}

func (f *fakeFinder) GetAllDevices() ([]DeviceInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.devices, nil
}

func (f *fakeFinder) Release() error {
	f.releaseCount++
	return nil
}

func newTestContext(finder sessionFinder) *Context {
	return &Context{
		logger: zap.NewNop().Sugar(),
		finder: finder,
	}
}

func TestEnumerateReturnsOnlyProcessSessions(t *testing.T) {
	logger := zap.NewNop().Sugar()

	finder := &fakeFinder{}
	for _, pid := range []uint32{0, 1234} {
		if s := buildSession(logger, pid, "proc.exe", &fakeVolume{}, nil); s != nil {
			finder.sessions = append(finder.sessions, s)
		}
	}

	ctx := newTestContext(finder)
	defer ctx.Release()

	sessions, err := ctx.Enumerate()
	if err != nil {
		t.Fatalf("enumerate: %v", err)
	}

	if len(sessions) != 1 {
		t.Fatalf("expected exactly 1 session, got %d", len(sessions))
	}

	for _, s := range sessions {
		if s.PID == 0 {
			t.Error("enumeration result contains a session with pid 0")
		}
	}
}

func TestEnumerateIsAllOrNothing(t *testing.T) {
	finder := &fakeFinder{err: newOsError("enumerate active output endpoints", errors.New("device invalidated"))}

	ctx := newTestContext(finder)
	defer ctx.Release()

	sessions, err := ctx.Enumerate()
	if err == nil {
		t.Fatal("expected an error from a failing walk")
	}
	if sessions != nil {
		t.Errorf("expected no partial results, got %d sessions", len(sessions))
	}

	osErr := &OsError{}
	if !errors.As(err, &osErr) {
		t.Errorf("expected an *OsError, got %T", err)
	}
}

func TestContextReleaseDelegatesOnce(t *testing.T) {
	finder := &fakeFinder{}

	ctx := newTestContext(finder)
	if err := ctx.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}

	if finder.releaseCount != 1 {
		t.Errorf("expected 1 finder release, got %d", finder.releaseCount)
	}
}

func TestDevicesPassThrough(t *testing.T) {
	finder := &fakeFinder{devices: []DeviceInfo{
		{Name: "Speakers (Realtek Audio)", Type: "Output"},
		{Name: "Microphone (USB Audio)", Type: "Input", Description: "USB Audio"},
	}}

	ctx := newTestContext(finder)
	defer ctx.Release()

	devices, err := ctx.Devices()
	if err != nil {
		t.Fatalf("devices: %v", err)
	}

	if len(devices) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(devices))
	}
	if devices[0].Type != "Output" || devices[1].Type != "Input" {
		t.Errorf("unexpected device types: %s, %s", devices[0].Type, devices[1].Type)
	}
}

func TestOsErrorWrapsPlatformError(t *testing.T) {
	underlying := errors.New("0x88890004")
	err := newOsError("set session volume", underlying)

	if err.Error() != "set session volume: 0x88890004" {
		t.Errorf("unexpected error string: %s", err.Error())
	}
	if !errors.Is(err, underlying) {
		t.Error("expected OsError to unwrap to the platform error")
	}
}
