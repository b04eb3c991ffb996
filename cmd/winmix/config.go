package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/stalexteam/winmix/pkg/winmix/util"
)

// Config provides access to winmix's optional configuration file, as well as
// loading/file watching logic for monitor mode
type Config struct {
	TargetAliases   map[string]string
	MonitorInterval time.Duration

	logger   *zap.SugaredLogger
	notifier Notifier

	userConfig *viper.Viper

	reloadConsumers    []chan bool
	stopWatcherChannel chan bool
}

const (
	userConfigFilepath = "winmix.yaml"

	userConfigName = "winmix"
	userConfigPath = "."

	configType = "yaml"

	configKey_TargetAliases   = "target_aliases"
	configKey_MonitorInterval = "monitor_interval_seconds"

	default_MonitorInterval = 5
)

// NewConfig creates a config instance and sets up its viper instance
func NewConfig(logger *zap.SugaredLogger, notifier Notifier) *Config {
	logger = logger.Named("config")

	cc := &Config{
		logger:             logger,
		notifier:           notifier,
		reloadConsumers:    []chan bool{},
		stopWatcherChannel: make(chan bool),
	}

	userConfig := viper.New()
	userConfig.SetConfigName(userConfigName)
	userConfig.SetConfigType(configType)
	userConfig.AddConfigPath(userConfigPath)

	userConfig.SetDefault(configKey_TargetAliases, map[string]string{})
	userConfig.SetDefault(configKey_MonitorInterval, default_MonitorInterval)

	cc.userConfig = userConfig

	logger.Debug("Created config instance")

	return cc
}

// Load reads the config file from disk and tries to parse it. A missing file
// is fine, it just means defaults.
func (cc *Config) Load() error {
	cc.logger.Debugw("Loading config", "path", userConfigFilepath)

	if !util.FileExists(userConfigFilepath) {
		cc.logger.Debugw("No config file found, using defaults", "path", userConfigFilepath)
		return cc.populateFromViper()
	}

	if err := cc.userConfig.ReadInConfig(); err != nil {
		cc.logger.Warnw("Viper failed to read user config", "error", err)

		if strings.Contains(err.Error(), "yaml:") {
			cc.notifier.Notify("Invalid configuration!",
				fmt.Sprintf("Please make sure %s is in a valid YAML format.", userConfigFilepath))
		}

		return fmt.Errorf("read user config: %w", err)
	}

	if err := cc.populateFromViper(); err != nil {
		cc.logger.Warnw("Failed to populate config fields", "error", err)
		return fmt.Errorf("populate config fields: %w", err)
	}

	cc.logger.Infow("Loaded config successfully",
		"targetAliases", cc.TargetAliases,
		"monitorInterval", cc.MonitorInterval)

	return nil
}

// ResolveTarget maps a configured alias to its process name; unknown names
// pass through unchanged
func (cc *Config) ResolveTarget(target string) string {
	if resolved, ok := cc.TargetAliases[strings.ToLower(target)]; ok {
		return resolved
	}

	return target
}

// SubscribeToChanges allows external components to receive updates when the config is reloaded
func (cc *Config) SubscribeToChanges() chan bool {
	c := make(chan bool)
	cc.reloadConsumers = append(cc.reloadConsumers, c)

	return c
}

// WatchConfigFileChanges starts watching for configuration file changes
// and attempts reloading the config when they happen
func (cc *Config) WatchConfigFileChanges() {
	cc.logger.Debugw("Starting to watch user config file for changes", "path", userConfigFilepath)

	const (
		minTimeBetweenReloadAttempts = time.Millisecond * 500
		delayBetweenEventAndReload   = time.Millisecond * 50
	)

	lastAttemptedReload := time.Now()

	// establish watch using viper as opposed to doing it ourselves, though our internal cooldown is still required
	cc.userConfig.WatchConfig()
	cc.userConfig.OnConfigChange(func(event fsnotify.Event) {

		// when we get a write event...
		if event.Op&fsnotify.Write == fsnotify.Write {

			now := time.Now()

			// ... check if it's not a duplicate (many editors will write to a file twice)
			if lastAttemptedReload.Add(minTimeBetweenReloadAttempts).Before(now) {

				// and attempt reload if appropriate
				cc.logger.Debugw("Config file modified, attempting reload", "event", event)

				// wait a bit to let the editor actually flush the new file contents to disk
				<-time.After(delayBetweenEventAndReload)

				if err := cc.Load(); err != nil {
					cc.logger.Warnw("Failed to reload config file", "error", err)
				} else {
					cc.logger.Info("Reloaded config successfully")
					cc.notifier.Notify("Configuration reloaded!", "Changes are now applied.")

					cc.onConfigReloaded()
				}

				// don't forget to update the time we last attempted to reload (no matter what happened)
				lastAttemptedReload = now
			}
		}
	})

	// wait till they stop us
	<-cc.stopWatcherChannel
	cc.logger.Debug("Stopping user config file watcher")
	cc.userConfig.OnConfigChange(nil)
}

// StopWatchingConfigFile signals our filesystem watcher to stop
func (cc *Config) StopWatchingConfigFile() {
	cc.stopWatcherChannel <- true
}

func (cc *Config) populateFromViper() error {
	cc.TargetAliases = cc.userConfig.GetStringMapString(configKey_TargetAliases)

	interval := cc.userConfig.GetInt(configKey_MonitorInterval)
	if interval < 1 {
		cc.logger.Warnw("Monitor interval too low, using default",
			"value", interval,
			"default", default_MonitorInterval)

		interval = default_MonitorInterval
	}

	cc.MonitorInterval = time.Duration(interval) * time.Second

	return nil
}

func (cc *Config) onConfigReloaded() {
	cc.logger.Debug("Notifying consumers about configuration reload")

	for _, consumer := range cc.reloadConsumers {
		consumer <- true
	}
}
