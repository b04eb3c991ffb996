package winmix

import (
	"fmt"

	ole "github.com/go-ole/go-ole"
	wca "github.com/moutend/go-wca"
	"go.uber.org/zap"
)

// wcaSession adjusts one session's volume through its ISimpleAudioVolume.
// Every call round-trips to the audio engine; once the owning process exits,
// calls start failing with AUDCLNT_E_DEVICE_INVALIDATED or similar, wrapped
// as *OsError.
type wcaSession struct {
	logger *zap.SugaredLogger

	control *wca.IAudioSessionControl2
	volume  *wca.ISimpleAudioVolume

	eventCtx *ole.GUID
}

func newWCASession(
	logger *zap.SugaredLogger,
	control *wca.IAudioSessionControl2,
	volume *wca.ISimpleAudioVolume,
	eventCtx *ole.GUID,
) *wcaSession {

	return &wcaSession{
		logger:   logger,
		control:  control,
		volume:   volume,
		eventCtx: eventCtx,
	}
}

func (s *wcaSession) GetMasterVolume() (float32, error) {
	var level float32

	if err := s.volume.GetMasterVolume(&level); err != nil {
		s.logger.Warnw("Failed to get session volume", "error", err)
		return 0, newOsError("get session volume", err)
	}

	return level, nil
}

func (s *wcaSession) SetMasterVolume(v float32) error {
	if err := s.volume.SetMasterVolume(v, s.eventCtx); err != nil {
		s.logger.Warnw("Failed to set session volume", "error", err)
		return newOsError("set session volume", err)
	}

	s.logger.Debugw("Adjusting session volume", "to", fmt.Sprintf("%.2f", v))

	return nil
}

func (s *wcaSession) GetMute() (bool, error) {
	var muted bool

	if err := s.volume.GetMute(&muted); err != nil {
		s.logger.Warnw("Failed to get session mute state", "error", err)
		return false, newOsError("get session mute", err)
	}

	return muted, nil
}

func (s *wcaSession) SetMute(v bool) error {
	if err := s.volume.SetMute(v, s.eventCtx); err != nil {
		s.logger.Warnw("Failed to set session mute state", "error", err)
		return newOsError("set session mute", err)
	}

	s.logger.Debugw("Setting session mute state", "muted", v)

	return nil
}

func (s *wcaSession) Release() {
	s.volume.Release()
	s.control.Release()
}
