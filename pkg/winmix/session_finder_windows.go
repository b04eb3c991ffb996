package winmix

import (
	"errors"
	"unsafe"

	ole "github.com/go-ole/go-ole"
	wca "github.com/moutend/go-wca"
	"go.uber.org/zap"

	"github.com/stalexteam/winmix/pkg/winmix/util"
)

const (

	// there's no real mystery here, it's just a random GUID. it identifies
	// volume changes made through winmix to IAudioSessionEvents listeners
	volumeEventCtxGUID = "{e0a2b9c4-51d3-4e6f-8a07-93c5b1f47d28}"

	// CoInitializeEx results that mean COM is usable but was already set up
	// by someone else in this process
	hresultSFalse          = 0x00000001
	hresultRPCEChangedMode = 0x80010106

	// "success" HRESULT returned by GetProcessId for the system sounds
	// session, which go-wca surfaces as an error
	audclntSNoCurrentProcess = 0x0889000D
)

type wcaSessionFinder struct {
	logger        *zap.SugaredLogger
	sessionLogger *zap.SugaredLogger

	com initToken

	eventCtx *ole.GUID
}

func newSessionFinder(logger *zap.SugaredLogger) sessionFinder {
	sf := &wcaSessionFinder{
		logger:        logger.Named("session_finder"),
		sessionLogger: logger.Named("sessions"),
		eventCtx:      ole.NewGUID(volumeEventCtxGUID),
	}

	// if we're the ones to initialize COM, we're the ones who must tear it
	// down on release. S_FALSE and RPC_E_CHANGED_MODE mean the apartment is
	// already up courtesy of someone else in this process, and it's theirs
	// to tear down. any other failure resurfaces on the first enumeration
	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		oleError := &ole.OleError{}
		if errors.As(err, &oleError) &&
			(oleError.Code() == hresultSFalse || oleError.Code() == hresultRPCEChangedMode) {

			sf.logger.Debug("COM already initialized in this process")
		} else {
			sf.logger.Warnw("Failed to initialize COM, deferring failure to first enumeration",
				"error", err)
		}
	} else {
		sf.com = initToken{owned: true, teardown: ole.CoUninitialize}
	}

	sf.logger.Debug("Created WCA session finder instance")

	return sf
}

func (sf *wcaSessionFinder) GetAllSessions() ([]*Session, error) {
	sessions := []*Session{}

	// get a fresh device enumerator on every call - endpoints are never cached
	var mmDeviceEnumerator *wca.IMMDeviceEnumerator
	if err := wca.CoCreateInstance(
		wca.CLSID_MMDeviceEnumerator,
		0,
		wca.CLSCTX_ALL,
		wca.IID_IMMDeviceEnumerator,
		&mmDeviceEnumerator,
	); err != nil {
		sf.logger.Warnw("Failed to create device enumerator", "error", err)
		return nil, newOsError("create device enumerator", err)
	}
	defer mmDeviceEnumerator.Release()

	var deviceCollection *wca.IMMDeviceCollection
	if err := mmDeviceEnumerator.EnumAudioEndpoints(wca.ERender, wca.DEVICE_STATE_ACTIVE, &deviceCollection); err != nil {
		sf.logger.Warnw("Failed to enumerate active output endpoints", "error", err)
		return nil, newOsError("enumerate active output endpoints", err)
	}
	defer deviceCollection.Release()

	var deviceCount uint32
	if err := deviceCollection.GetCount(&deviceCount); err != nil {
		sf.logger.Warnw("Failed to get endpoint count", "error", err)
		return nil, newOsError("get endpoint count", err)
	}

	for deviceIdx := uint32(0); deviceIdx < deviceCount; deviceIdx++ {
		var endpoint *wca.IMMDevice
		if err := deviceCollection.Item(deviceIdx, &endpoint); err != nil {
			sf.logger.Warnw("Failed to get endpoint from collection",
				"deviceIdx", deviceIdx,
				"error", err)

			releaseSessions(sessions)
			return nil, newOsError("get endpoint from collection", err)
		}

		err := sf.enumerateEndpointSessions(endpoint, &sessions)
		endpoint.Release()

		if err != nil {
			releaseSessions(sessions)
			return nil, err
		}
	}

	return sessions, nil
}

func (sf *wcaSessionFinder) GetAllDevices() ([]DeviceInfo, error) {
	var mmDeviceEnumerator *wca.IMMDeviceEnumerator
	if err := wca.CoCreateInstance(
		wca.CLSID_MMDeviceEnumerator,
		0,
		wca.CLSCTX_ALL,
		wca.IID_IMMDeviceEnumerator,
		&mmDeviceEnumerator,
	); err != nil {
		sf.logger.Warnw("Failed to create device enumerator", "error", err)
		return nil, newOsError("create device enumerator", err)
	}
	defer mmDeviceEnumerator.Release()

	devices := []DeviceInfo{}

	if err := sf.appendDevices(mmDeviceEnumerator, wca.ERender, "Output", &devices); err != nil {
		return nil, err
	}

	if err := sf.appendDevices(mmDeviceEnumerator, wca.ECapture, "Input", &devices); err != nil {
		return nil, err
	}

	return devices, nil
}

func (sf *wcaSessionFinder) Release() error {

	// release the COM apartment only if we own its initialization, and at
	// most once even if Release is called again
	sf.com.release()
	sf.com = initToken{}

	sf.logger.Debug("Released WCA session finder instance")

	return nil
}

func (sf *wcaSessionFinder) enumerateEndpointSessions(endpoint *wca.IMMDevice, sessions *[]*Session) error {
	var audioSessionManager2 *wca.IAudioSessionManager2
	if err := endpoint.Activate(
		wca.IID_IAudioSessionManager2,
		wca.CLSCTX_ALL,
		nil,
		&audioSessionManager2,
	); err != nil {
		sf.logger.Warnw("Failed to activate endpoint's session manager", "error", err)
		return newOsError("activate session manager", err)
	}
	defer audioSessionManager2.Release()

	var sessionEnumerator *wca.IAudioSessionEnumerator
	if err := audioSessionManager2.GetSessionEnumerator(&sessionEnumerator); err != nil {
		sf.logger.Warnw("Failed to get endpoint's session enumerator", "error", err)
		return newOsError("get session enumerator", err)
	}
	defer sessionEnumerator.Release()

	var sessionCount int
	if err := sessionEnumerator.GetCount(&sessionCount); err != nil {
		sf.logger.Warnw("Failed to get session count", "error", err)
		return newOsError("get session count", err)
	}

	for sessionIdx := 0; sessionIdx < sessionCount; sessionIdx++ {
		var audioSessionControl *wca.IAudioSessionControl
		if err := sessionEnumerator.GetSession(sessionIdx, &audioSessionControl); err != nil {
			sf.logger.Warnw("Failed to get session from enumerator",
				"sessionIdx", sessionIdx,
				"error", err)

			return newOsError("get session from enumerator", err)
		}

		dispatchAudioSessionControl2, err := audioSessionControl.QueryInterface(wca.IID_IAudioSessionControl2)
		audioSessionControl.Release()
		if err != nil {
			sf.logger.Warnw("Failed to query session's IAudioSessionControl2", "error", err)
			return newOsError("query session control", err)
		}

		audioSessionControl2 := (*wca.IAudioSessionControl2)(unsafe.Pointer(dispatchAudioSessionControl2))

		var pid uint32
		if err := audioSessionControl2.GetProcessId(&pid); err != nil {

			// the system sounds session reports no current process through
			// an undocumented success HRESULT; it's the one session we
			// deliberately leave out, along with anything claiming pid 0
			oleError := &ole.OleError{}
			if errors.As(err, &oleError) && oleError.Code() == audclntSNoCurrentProcess {
				audioSessionControl2.Release()
				continue
			}

			sf.logger.Warnw("Failed to query session's pid", "error", err)
			audioSessionControl2.Release()
			return newOsError("query session pid", err)
		}

		if pid == 0 {
			audioSessionControl2.Release()
			continue
		}

		dispatchSimpleAudioVolume, err := audioSessionControl2.QueryInterface(wca.IID_ISimpleAudioVolume)
		if err != nil {
			sf.logger.Warnw("Failed to query session's ISimpleAudioVolume", "error", err)
			audioSessionControl2.Release()
			return newOsError("query session volume control", err)
		}

		simpleAudioVolume := (*wca.ISimpleAudioVolume)(unsafe.Pointer(dispatchSimpleAudioVolume))

		vol := newWCASession(sf.sessionLogger, audioSessionControl2, simpleAudioVolume, sf.eventCtx)

		session := buildSession(sf.sessionLogger, pid, "", vol, util.GetProcessPath)
		if session == nil {
			vol.Release()
			continue
		}

		*sessions = append(*sessions, session)
	}

	return nil
}

func (sf *wcaSessionFinder) appendDevices(
	mmDeviceEnumerator *wca.IMMDeviceEnumerator,
	dataFlow uint32,
	deviceType string,
	devices *[]DeviceInfo,
) error {

	var deviceCollection *wca.IMMDeviceCollection
	if err := mmDeviceEnumerator.EnumAudioEndpoints(dataFlow, wca.DEVICE_STATE_ACTIVE, &deviceCollection); err != nil {
		sf.logger.Warnw("Failed to enumerate active endpoints", "deviceType", deviceType, "error", err)
		return newOsError("enumerate active endpoints", err)
	}
	defer deviceCollection.Release()

	var deviceCount uint32
	if err := deviceCollection.GetCount(&deviceCount); err != nil {
		sf.logger.Warnw("Failed to get endpoint count", "error", err)
		return newOsError("get endpoint count", err)
	}

	for deviceIdx := uint32(0); deviceIdx < deviceCount; deviceIdx++ {
		var endpoint *wca.IMMDevice
		if err := deviceCollection.Item(deviceIdx, &endpoint); err != nil {
			sf.logger.Warnw("Failed to get endpoint from collection", "error", err)
			return newOsError("get endpoint from collection", err)
		}

		name := sf.endpointFriendlyName(endpoint)
		endpoint.Release()

		*devices = append(*devices, DeviceInfo{
			Name: name,
			Type: deviceType,
		})
	}

	return nil
}

// endpointFriendlyName reads the endpoint's friendly name from its property
// store, best effort
func (sf *wcaSessionFinder) endpointFriendlyName(endpoint *wca.IMMDevice) string {
	var propertyStore *wca.IPropertyStore
	if err := endpoint.OpenPropertyStore(wca.STGM_READ, &propertyStore); err != nil {
		sf.logger.Warnw("Failed to open endpoint's property store", "error", err)
		return ""
	}
	defer propertyStore.Release()

	value := &wca.PROPVARIANT{}
	if err := propertyStore.GetValue(&wca.PKEY_Device_FriendlyName, value); err != nil {
		sf.logger.Warnw("Failed to get device friendly name", "error", err)
		return ""
	}

	return value.String()
}
