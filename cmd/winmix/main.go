package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/thoas/go-funk"
	"go.uber.org/zap"

	"github.com/stalexteam/winmix/pkg/winmix"
	"github.com/stalexteam/winmix/pkg/winmix/util"
)

var (
	verbose     bool
	listDevices bool
	monitor     bool
	targetName  string
	targetPID   uint
	setLevel    float64
	mute        bool
	unmute      bool
)

func init() {
	flag.BoolVar(&verbose, "verbose", false, "show verbose logs (useful for debugging)")
	flag.BoolVar(&listDevices, "devices", false, "list audio devices instead of sessions")
	flag.BoolVar(&monitor, "monitor", false, "keep re-listing sessions on an interval")
	flag.StringVar(&targetName, "target", "", "only address sessions matching this process name (or configured alias)")
	flag.UintVar(&targetPID, "pid", 0, "only address the sessions owned by this process id")
	flag.Float64Var(&setLevel, "set", -1, "set the master volume of addressed sessions (0.0 to 1.0)")
	flag.BoolVar(&mute, "mute", false, "mute addressed sessions")
	flag.BoolVar(&unmute, "unmute", false, "unmute addressed sessions")
	flag.Parse()
}

func main() {
	logger, err := winmix.NewLogger(verbose)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	notifier, err := NewToastNotifier(logger)
	if err != nil {
		logger.Fatalw("Failed to create notifier", "error", err)
	}

	config := NewConfig(logger, notifier)
	if err := config.Load(); err != nil {
		logger.Fatalw("Failed to load config", "error", err)
	}

	ctx := winmix.New(logger)
	defer ctx.Release()

	if listDevices {
		if err := printDevices(ctx); err != nil {
			logger.Fatalw("Failed to list audio devices", "error", err)
		}
		return
	}

	if monitor {
		runMonitor(logger, config, ctx)
		return
	}

	if err := runOnce(config, ctx); err != nil {
		logger.Fatalw("Failed to address audio sessions", "error", err)
	}
}

// runOnce performs one enumeration, applies any requested volume/mute change
// to the addressed sessions and prints them.
func runOnce(config *Config, ctx *winmix.Context) error {
	sessions, err := ctx.Enumerate()
	if err != nil {
		return err
	}
	defer releaseAll(sessions)

	addressed := filterSessions(config, sessions)

	if setLevel >= 0 {
		for _, session := range addressed {
			if err := session.Vol.SetMasterVolume(float32(setLevel)); err != nil {
				return err
			}
		}
	}

	if mute || unmute {
		for _, session := range addressed {
			if err := session.Vol.SetMute(mute); err != nil {
				return err
			}
		}
	}

	printSessions(addressed)

	return nil
}

func runMonitor(logger *zap.SugaredLogger, config *Config, ctx *winmix.Context) {
	logger.Info("Monitoring audio sessions, ctrl+C to stop")

	go config.WatchConfigFileChanges()
	defer config.StopWatchingConfigFile()

	configReload := config.SubscribeToChanges()
	interrupt := util.SetupCloseHandler()

	ticker := time.NewTicker(config.MonitorInterval)
	defer ticker.Stop()

	for {
		if err := runOnce(config, ctx); err != nil {
			logger.Warnw("Failed to list audio sessions", "error", err)
		}

		fmt.Println()

		select {
		case sig := <-interrupt:
			logger.Debugw("Interrupted", "signal", sig)
			return
		case <-configReload:
			logger.Debug("Config reloaded, adjusting monitor interval")
			ticker.Reset(config.MonitorInterval)
		case <-ticker.C:
		}
	}
}

func filterSessions(config *Config, sessions []*winmix.Session) []*winmix.Session {
	if targetPID != 0 {
		return funk.Filter(sessions, func(s *winmix.Session) bool {
			return s.PID == uint32(targetPID)
		}).([]*winmix.Session)
	}

	if targetName != "" {
		want := strings.ToLower(config.ResolveTarget(targetName))

		return funk.Filter(sessions, func(s *winmix.Session) bool {
			return strings.ToLower(s.ProcessName) == want
		}).([]*winmix.Session)
	}

	return sessions
}

func printSessions(sessions []*winmix.Session) {
	for _, session := range sessions {
		volDesc := "?"
		if level, err := session.Vol.GetMasterVolume(); err == nil {
			volDesc = fmt.Sprintf("%.2f", util.NormalizeScalar(level))
		}

		muteDesc := ""
		if muted, err := session.Vol.GetMute(); err == nil && muted {
			muteDesc = " [muted]"
		}

		fmt.Printf("%6d  %-24s vol %s%s  %s\n",
			session.PID, session.ProcessName, volDesc, muteDesc, session.Path)
	}
}

func printDevices(ctx *winmix.Context) error {
	devices, err := ctx.Devices()
	if err != nil {
		return err
	}

	for _, device := range devices {
		desc := ""
		if device.Description != "" {
			desc = fmt.Sprintf(" (%s)", device.Description)
		}

		fmt.Printf("%-7s %s%s\n", device.Type, device.Name, desc)
	}

	return nil
}

func releaseAll(sessions []*winmix.Session) {
	for _, session := range sessions {
		session.Release()
	}
}
