package winmix

import (
	"fmt"

	"github.com/jfreymuth/pulse/proto"
	"go.uber.org/zap"
)

// normal PulseAudio volume (100%)
const maxVolume = 0x10000

// paSession adjusts one sink input's volume over the PulseAudio native
// protocol. Reads fetch fresh sink input info on every call; once the stream
// is gone the server rejects the request and it surfaces as *OsError.
type paSession struct {
	logger *zap.SugaredLogger

	client *proto.Client

	sinkInputIndex    uint32
	sinkInputChannels byte
}

func newPASession(
	logger *zap.SugaredLogger,
	client *proto.Client,
	sinkInputIndex uint32,
	sinkInputChannels byte,
) *paSession {

	return &paSession{
		logger:            logger,
		client:            client,
		sinkInputIndex:    sinkInputIndex,
		sinkInputChannels: sinkInputChannels,
	}
}

func (s *paSession) GetMasterVolume() (float32, error) {
	request := proto.GetSinkInputInfo{
		SinkInputIndex: s.sinkInputIndex,
	}
	reply := proto.GetSinkInputInfoReply{}

	if err := s.client.Request(&request, &reply); err != nil {
		s.logger.Warnw("Failed to get session volume", "error", err)
		return 0, newOsError("get session volume", err)
	}

	return parseChannelVolumes(reply.ChannelVolumes), nil
}

func (s *paSession) SetMasterVolume(v float32) error {
	request := proto.SetSinkInputVolume{
		SinkInputIndex: s.sinkInputIndex,
		ChannelVolumes: createChannelVolumes(s.sinkInputChannels, v),
	}

	if err := s.client.Request(&request, nil); err != nil {
		s.logger.Warnw("Failed to set session volume", "error", err)
		return newOsError("set session volume", err)
	}

	s.logger.Debugw("Adjusting session volume", "to", fmt.Sprintf("%.2f", v))

	return nil
}

func (s *paSession) GetMute() (bool, error) {
	request := proto.GetSinkInputInfo{
		SinkInputIndex: s.sinkInputIndex,
	}
	reply := proto.GetSinkInputInfoReply{}

	if err := s.client.Request(&request, &reply); err != nil {
		s.logger.Warnw("Failed to get session mute state", "error", err)
		return false, newOsError("get session mute", err)
	}

	return reply.Muted, nil
}

func (s *paSession) SetMute(v bool) error {
	request := proto.SetSinkInputMute{
		SinkInputIndex: s.sinkInputIndex,
		Mute:           v,
	}

	if err := s.client.Request(&request, nil); err != nil {
		s.logger.Warnw("Failed to set session mute state", "error", err)
		return newOsError("set session mute", err)
	}

	s.logger.Debugw("Setting session mute state", "muted", v)

	return nil
}

func (s *paSession) Release() {
	// no per-stream references to drop, the finder owns the connection
}

func createChannelVolumes(channels byte, volume float32) []uint32 {
	volumes := make([]uint32, channels)

	for i := range volumes {
		volumes[i] = uint32(volume * maxVolume)
	}

	return volumes
}

func parseChannelVolumes(volumes []uint32) float32 {
	var level uint32

	for _, volume := range volumes {
		level += volume
	}

	if len(volumes) == 0 {
		return 0
	}

	return float32(level) / float32(len(volumes)) / float32(maxVolume)
}
