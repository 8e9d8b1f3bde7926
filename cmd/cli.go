package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"audiomidi/internal/config"
	applog "audiomidi/internal/log"
	"audiomidi/pkg/build"
)

// ParseArgs builds the runtime configuration from defaults, an optional
// YAML file and command-line flags, in that order of precedence
// (explicit flags win over the file; the file wins over defaults).
func ParseArgs() (*config.Config, error) {
	buildInfo := build.Get()
	options := config.New()
	var configPath string
	noStatus := false

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Convert live microphone audio into a MIDI note/velocity stream",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return mergeFileConfig(cmd, options, configPath)
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio input devices",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = "list"
		},
	}
	rootCmd.AddCommand(listCmd)

	portsCmd := &cobra.Command{
		Use:   "ports",
		Short: "List available MIDI output ports",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = "ports"
		},
	}
	rootCmd.AddCommand(portsCmd)

	// Capture configuration.
	rootCmd.PersistentFlags().IntVarP(&options.DeviceID, "device", "d", config.DefaultDeviceID,
		"Input device ID, use 'list' to see available devices")
	rootCmd.PersistentFlags().Float64VarP(&options.SampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate in Hertz (Hz)")
	rootCmd.PersistentFlags().IntVarP(&options.Window, "window", "w", config.DefaultWindow,
		"Analysis frame size in samples (power of 2; trades frequency resolution against latency)")
	rootCmd.PersistentFlags().IntVar(&options.HopSize, "hop", config.DefaultHopSize,
		"Samples between analysis cycles")
	rootCmd.PersistentFlags().BoolVarP(&options.LowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Request low-latency capture from the device")
	rootCmd.PersistentFlags().StringVar(&options.WindowFunc, "fft-window", config.DefaultWindowFunc,
		"FFT window function (hann, hamming, blackman, ...)")

	// Equalizer configuration.
	rootCmd.PersistentFlags().IntVarP(&options.Bands, "bands", "b", config.DefaultBands,
		"Number of equalizer bands")
	rootCmd.PersistentFlags().IntVar(&options.HistoryLen, "history", config.DefaultHistoryLen,
		"Dominant-note history length for the adaptive equalizer")

	// MIDI configuration.
	rootCmd.PersistentFlags().StringVarP(&options.MIDIPort, "midi-port", "p", config.DefaultMIDIPort,
		"MIDI output port name substring; empty connects to every port")
	rootCmd.PersistentFlags().IntVar(&options.MIDIChannel, "midi-channel", config.DefaultMIDIChannel,
		"MIDI channel (0-15)")
	rootCmd.PersistentFlags().Float64Var(&options.Sensitivity, "sensitivity", config.DefaultSensitivity,
		"Loudness-to-velocity scaling factor")
	rootCmd.PersistentFlags().BoolVar(&options.AutoGain, "auto-gain", config.DefaultAutoGain,
		"Adapt velocity gain to keep recent output inside the MIDI range")

	// Side channels.
	rootCmd.PersistentFlags().StringVar(&options.WebSocketAddr, "ws-addr", config.DefaultWebSocketAddr,
		"host:port for the WebSocket level broadcaster; empty disables it")
	rootCmd.PersistentFlags().StringVarP(&options.RecordFile, "record", "r", config.DefaultRecordFile,
		"Record raw input to this WAV file; empty disables recording")
	rootCmd.PersistentFlags().BoolVar(&noStatus, "no-status", false,
		"Suppress the per-cycle status line")

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to a YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&options.Verbose, "verbose", "v", false,
		"Show verbose output")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	options.ShowStatus = !noStatus
	if options.Verbose {
		applog.SetLevel(applog.LevelDebug)
	}
	return options, nil
}

// mergeFileConfig loads the YAML file into the options, keeping any
// value the user set explicitly on the command line.
func mergeFileConfig(cmd *cobra.Command, options *config.Config, path string) error {
	fileCfg := config.New()
	level, err := config.LoadFile(fileCfg, path)
	if err != nil {
		return err
	}
	if level != "" {
		if parsed, ok := applog.ParseLevel(level); ok {
			applog.SetLevel(parsed)
		} else {
			applog.Warnf("config: unknown log level %q", level)
		}
	}

	flags := cmd.Flags()
	if !flags.Changed("device") {
		options.DeviceID = fileCfg.DeviceID
	}
	if !flags.Changed("sample-rate") {
		options.SampleRate = fileCfg.SampleRate
	}
	if !flags.Changed("window") {
		options.Window = fileCfg.Window
	}
	if !flags.Changed("hop") {
		options.HopSize = fileCfg.HopSize
	}
	if !flags.Changed("low-latency") {
		options.LowLatency = fileCfg.LowLatency
	}
	if !flags.Changed("fft-window") {
		options.WindowFunc = fileCfg.WindowFunc
	}
	if !flags.Changed("bands") {
		options.Bands = fileCfg.Bands
	}
	if !flags.Changed("history") {
		options.HistoryLen = fileCfg.HistoryLen
	}
	if !flags.Changed("midi-port") {
		options.MIDIPort = fileCfg.MIDIPort
	}
	if !flags.Changed("midi-channel") {
		options.MIDIChannel = fileCfg.MIDIChannel
	}
	if !flags.Changed("sensitivity") {
		options.Sensitivity = fileCfg.Sensitivity
	}
	if !flags.Changed("auto-gain") {
		options.AutoGain = fileCfg.AutoGain
	}
	if !flags.Changed("ws-addr") {
		options.WebSocketAddr = fileCfg.WebSocketAddr
	}
	if !flags.Changed("record") {
		options.RecordFile = fileCfg.RecordFile
	}

	// File-only knobs have no flag counterpart.
	options.Profile = fileCfg.Profile
	options.AdjustDamp = fileCfg.AdjustDamp
	options.AdjustMin = fileCfg.AdjustMin
	options.AdjustMax = fileCfg.AdjustMax
	options.NormLow = fileCfg.NormLow
	options.NormHigh = fileCfg.NormHigh
	options.SilenceRMS = fileCfg.SilenceRMS

	return nil
}
