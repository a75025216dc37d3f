package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/animie/voicelink-go/pkg/voicelink"
)

var (
	verbose  bool
	endpoint string
	micOn    bool
	wavFile  string
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "voicelink",
		Short: "Voicelink streaming client CLI",
		Long:  "Command-line interface for the voicelink realtime audio streaming engine",
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "WebSocket endpoint URL")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(devicesCmd())
	rootCmd.AddCommand(sendCmd())

	if err := rootCmd.Execute(); err != nil {
		voicelink.GetGlobalLogger().WithError(err).Fatal("CLI execution failed")
	}
}

func buildClient() (*voicelink.Client, error) {
	config := voicelink.NewConfig()
	if endpoint != "" {
		config.WsEndpoint = endpoint
	}
	if verbose {
		config.DebugWebsocket = true
		voicelink.SetGlobalLogger(voicelink.NewLogger(&voicelink.LogConfig{
			Level:  voicelink.DebugLevel,
			Pretty: true,
			Output: os.Stdout,
		}))
	}

	if issues := config.Validate(); len(issues) > 0 {
		for _, issue := range issues {
			fmt.Fprintln(os.Stderr, "config:", issue)
		}
		return nil, fmt.Errorf("invalid configuration")
	}

	return voicelink.NewClient(config, nil)
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect and stream until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := buildClient()
			if err != nil {
				return err
			}
			defer client.Cleanup()

			client.AddMessageHandler(voicelink.CreateLoggingMessageHandler(verbose))
			client.AddTextHandler(voicelink.CreateTextPrinter())
			client.AddErrorHandler(voicelink.CreateErrorLoggingHandler("Run"))
			client.AddConnectionHandler(voicelink.CreateConnectionStatusHandler(nil))
			if verbose {
				client.AddCaptureVolumeHandler(voicelink.CreateVolumeMonitor("mic", 20))
			}

			if err := client.Connect(); err != nil {
				return err
			}

			if micOn {
				if err := client.ToggleMic(true); err != nil {
					voicelink.GetGlobalLogger().WithError(err).Warn("Mic toggle failed")
				}
			}

			if wavFile != "" {
				go func() {
					if err := client.StreamFile(wavFile); err != nil {
						voicelink.GetGlobalLogger().WithError(err).Error("File streaming failed")
					}
				}()
			}

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig

			stats := client.CaptureStats()
			fmt.Printf("\nStreamed %d blocks (%d bytes), %d dropped, peak level %.3f\n",
				stats.TotalBlocks, stats.TotalBytes, stats.DroppedFrames, stats.PeakLevel)
			return nil
		},
	}

	cmd.Flags().BoolVar(&micOn, "mic", true, "Enable the microphone on connect")
	cmd.Flags().StringVar(&wavFile, "file", "", "Stream a WAV file instead of live capture")
	return cmd
}

func devicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List host audio devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			dm := voicelink.NewDeviceManager()
			if err := dm.Initialize(); err != nil {
				return err
			}
			defer dm.Cleanup()

			for _, d := range dm.Devices() {
				marker := " "
				if d.IsDefault {
					marker = "*"
				}
				fmt.Printf("%s [%d] %s (%s) in:%d out:%d %.0fHz\n",
					marker, d.ID, d.Name, d.HostAPI,
					d.MaxInputChannels, d.MaxOutputChannels, d.DefaultSampleRate)
			}
			return nil
		},
	}
}

func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send [text]",
		Short: "Send one text message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := buildClient()
			if err != nil {
				return err
			}
			defer client.Cleanup()

			if err := client.Connect(); err != nil {
				return err
			}
			return client.SendText(args[0])
		},
	}
}
