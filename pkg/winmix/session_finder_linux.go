package winmix

import (
	"net"
	"strconv"

	"github.com/jfreymuth/pulse/proto"
	"go.uber.org/zap"

	"github.com/stalexteam/winmix/pkg/winmix/util"
)

type paSessionFinder struct {
	logger        *zap.SugaredLogger
	sessionLogger *zap.SugaredLogger

	client *proto.Client
	conn   net.Conn
}

func newSessionFinder(logger *zap.SugaredLogger) sessionFinder {
	sf := &paSessionFinder{
		logger:        logger.Named("session_finder"),
		sessionLogger: logger.Named("sessions"),
	}

	sf.logger.Debug("Created PA session finder instance")

	return sf
}

// ensureClient establishes the PulseAudio connection on first use, keeping
// Context creation infallible
func (sf *paSessionFinder) ensureClient() error {
	if sf.client != nil {
		return nil
	}

	client, conn, err := proto.Connect("")
	if err != nil {
		sf.logger.Warnw("Failed to establish PulseAudio connection", "error", err)
		return newOsError("establish PulseAudio connection", err)
	}

	request := proto.SetClientName{
		Props: proto.PropList{
			"application.name": proto.PropListString("winmix"),
		},
	}
	reply := proto.SetClientNameReply{}

	if err := client.Request(&request, &reply); err != nil {
		conn.Close()
		sf.logger.Warnw("Failed to set PulseAudio client name", "error", err)
		return newOsError("set PulseAudio client name", err)
	}

	sf.client = client
	sf.conn = conn

	return nil
}

func (sf *paSessionFinder) GetAllSessions() ([]*Session, error) {
	if err := sf.ensureClient(); err != nil {
		return nil, err
	}

	sessions := []*Session{}

	request := proto.GetSinkInputInfoList{}
	reply := proto.GetSinkInputInfoListReply{}

	if err := sf.client.Request(&request, &reply); err != nil {
		sf.logger.Warnw("Failed to get sink input list", "error", err)
		return nil, newOsError("get sink input list", err)
	}

	for _, info := range reply {

		// streams without an owning process id are the PulseAudio analog of
		// the system sounds session - not attributable to a single process
		pidProp, ok := info.Properties["application.process.id"]
		if !ok {
			sf.logger.Debugw("Skipping sink input without process id",
				"sinkInputIndex", info.SinkInputIndex)

			continue
		}

		pid, err := strconv.ParseUint(pidProp.String(), 10, 32)
		if err != nil || pid == 0 {
			sf.logger.Debugw("Skipping sink input with unusable process id",
				"sinkInputIndex", info.SinkInputIndex,
				"value", pidProp.String())

			continue
		}

		processName := ""
		if nameProp, ok := info.Properties["application.process.binary"]; ok {
			processName = nameProp.String()
		}

		vol := newPASession(sf.sessionLogger, sf.client, info.SinkInputIndex, info.Channels)

		session := buildSession(sf.sessionLogger, uint32(pid), processName, vol, util.GetProcessPath)
		if session == nil {
			continue
		}

		sessions = append(sessions, session)
	}

	return sessions, nil
}

func (sf *paSessionFinder) GetAllDevices() ([]DeviceInfo, error) {
	if err := sf.ensureClient(); err != nil {
		return nil, err
	}

	devices := []DeviceInfo{}

	sinkRequest := proto.GetSinkInfoList{}
	sinkReply := proto.GetSinkInfoListReply{}

	if err := sf.client.Request(&sinkRequest, &sinkReply); err != nil {
		sf.logger.Warnw("Failed to get sink list", "error", err)
		return nil, newOsError("get sink list", err)
	}

	for _, sink := range sinkReply {
		if sink == nil {
			continue
		}

		devices = append(devices, DeviceInfo{
			Name:        sink.SinkName,
			Type:        "Output",
			Description: devicePropString(sink.Properties, "device.description"),
		})
	}

	sourceRequest := proto.GetSourceInfoList{}
	sourceReply := proto.GetSourceInfoListReply{}

	if err := sf.client.Request(&sourceRequest, &sourceReply); err != nil {
		sf.logger.Warnw("Failed to get source list", "error", err)
		return nil, newOsError("get source list", err)
	}

	for _, source := range sourceReply {
		if source == nil {
			continue
		}

		// skip monitor sources, they mirror sinks rather than being real inputs
		if source.MonitorSourceIndex != proto.Undefined {
			continue
		}

		devices = append(devices, DeviceInfo{
			Name:        source.SourceName,
			Type:        "Input",
			Description: devicePropString(source.Properties, "device.description"),
		})
	}

	return devices, nil
}

func (sf *paSessionFinder) Release() error {
	if sf.conn == nil {
		return nil
	}

	if err := sf.conn.Close(); err != nil {
		sf.logger.Warnw("Failed to close PulseAudio connection", "error", err)
		return newOsError("close PulseAudio connection", err)
	}

	sf.client = nil
	sf.conn = nil

	sf.logger.Debug("Released PA session finder instance")

	return nil
}

func devicePropString(props proto.PropList, key string) string {
	if props == nil {
		return ""
	}

	prop, ok := props[key]
	if !ok {
		return ""
	}

	return prop.String()
}
