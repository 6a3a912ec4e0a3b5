// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"

	"reactive/internal/config"
	"reactive/pkg/build"

	"github.com/spf13/cobra"
)

// Options is the parsed invocation: the effective configuration plus
// flags that only make sense on the command line.
type Options struct {
	Config *config.Config
	Pick   bool // Choose the input device interactively before starting.
}

// flagValues holds raw flag values; only flags the user set are applied on
// top of the loaded configuration.
type flagValues struct {
	configPath string
	device     int
	sampleRate float64
	fftSize    int
	file       string
	headless   bool
	record     bool
	outputDir  string
	wsAddr     string
	udpAddr    string
	frameRate  int
	verbose    bool
	pick       bool
}

// ParseArgs parses args (without the program name). It returns nil options
// and no error when cobra handled the invocation itself, e.g. --help or
// --version.
func ParseArgs(args []string) (*Options, error) {
	buildInfo := build.GetBuildFlags()
	var (
		flags   flagValues
		options *Options
	)

	load := func(cmd *cobra.Command, command string) error {
		cfg, err := config.LoadConfig(flags.configPath)
		if err != nil {
			return err
		}
		cfg.Command = command
		if err := applyFlags(cmd, cfg, &flags); err != nil {
			return err
		}
		options = &Options{Config: cfg, Pick: flags.pick}
		return nil
	}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.String(),
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, "")
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, "list")
		},
	}
	rootCmd.AddCommand(listCmd)

	pf := rootCmd.PersistentFlags()

	pf.StringVar(&flags.configPath, "config", "",
		"Path to a YAML config file (default: ./config.yaml if present)")

	// Input
	pf.IntVarP(&flags.device, "device", "d", config.DefaultDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	pf.Float64VarP(&flags.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	pf.IntVar(&flags.fftSize, "fft-size", config.DefaultFFTSize,
		"Analyser transform size, a power of 2")
	pf.StringVarP(&flags.file, "file", "f", "",
		"Analyse a wav/mp3/ogg/flac file instead of live input")
	pf.BoolVar(&flags.pick, "pick", false,
		"Choose the input device and sample rate interactively")

	// Output
	pf.BoolVar(&flags.headless, "headless", !config.DefaultTUI,
		"Run without the terminal meter")
	pf.IntVar(&flags.frameRate, "fps", config.DefaultFrameRate,
		"Frames analysed per second")
	pf.StringVar(&flags.wsAddr, "ws", "",
		"Serve snapshots over websocket on this address (e.g. :8080)")
	pf.StringVar(&flags.udpAddr, "udp", "",
		"Send snapshot packets to this UDP address (e.g. 127.0.0.1:9090)")

	// Recording Configuration
	pf.BoolVarP(&flags.record, "record", "r", config.DefaultRecordInputStream,
		"Record audio from the specified input device")
	pf.StringVarP(&flags.outputDir, "output", "o", config.DefaultOutputDir,
		"Directory for recordings, named capture-YYYYMMDD-HHMMSS.wav")

	// Debug Configuration
	pf.BoolVarP(&flags.verbose, "verbose", "v", false,
		"Show verbose output")

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	return options, nil
}

// applyFlags overrides cfg with every flag set on the command line and
// revalidates the result.
func applyFlags(cmd *cobra.Command, cfg *config.Config, f *flagValues) error {
	changed := cmd.Flags().Changed

	if changed("device") {
		cfg.Audio.InputDevice = f.device
	}
	if changed("sample-rate") {
		cfg.Audio.SampleRate = f.sampleRate
	}
	if changed("fft-size") {
		cfg.Audio.FFTSize = f.fftSize
	}
	if changed("file") {
		cfg.Source.File = f.file
	}
	if changed("headless") {
		cfg.Render.TUI = !f.headless
	}
	if changed("fps") {
		cfg.Render.FrameRate = f.frameRate
	}
	if changed("ws") {
		cfg.Transport.WebSocketEnabled = f.wsAddr != ""
		cfg.Transport.WebSocketAddress = f.wsAddr
	}
	if changed("udp") {
		cfg.Transport.UDPEnabled = f.udpAddr != ""
		cfg.Transport.UDPTargetAddress = f.udpAddr
	}
	if changed("record") {
		cfg.Recording.Enabled = f.record
	}
	if changed("output") {
		cfg.Recording.OutputDir = f.outputDir
	}
	if changed("verbose") && f.verbose {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}

	if cfg.Recording.Enabled && cfg.Source.File != "" {
		return fmt.Errorf("%w: --record captures live input and cannot be combined with --file", config.ErrInvalidConfig)
	}
	return cfg.Validate()
}
