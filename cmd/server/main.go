package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"trackserver/internal/app"
	"trackserver/internal/config"
	"trackserver/internal/logger"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:           "trackserver",
		Short:         "Live object detection and tracking server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadFile(envFile)
			applyFlags(cmd.Flags(), cfg)
			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&envFile, "env", ".env", "env file to load")
	flags.String("host", "", "listen host")
	flags.Int("port", 0, "listen port")
	flags.String("source", "", "stream source: camera index, URL, udp://host:port or file")
	flags.String("model", "", "ONNX model path")
	flags.Float64("confidence", 0, "detection confidence threshold")
	flags.Bool("autostart", true, "start streaming the default source on launch")
	flags.Bool("catalog", false, "record sightings in the sqlite catalog")
	flags.Bool("save", true, "persist new objects as image and label files")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	return cmd
}

// applyFlags overrides the loaded configuration with flags given on the command line.
func applyFlags(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed("host") {
		cfg.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		cfg.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("source") {
		cfg.StreamSource, _ = flags.GetString("source")
	}
	if flags.Changed("model") {
		cfg.ModelPath, _ = flags.GetString("model")
	}
	if flags.Changed("confidence") {
		cfg.ConfidenceThreshold, _ = flags.GetFloat64("confidence")
	}
	if flags.Changed("autostart") {
		cfg.AutoStart, _ = flags.GetBool("autostart")
	}
	if flags.Changed("catalog") {
		cfg.EnableCatalog, _ = flags.GetBool("catalog")
	}
	if flags.Changed("save") {
		cfg.SaveDetections, _ = flags.GetBool("save")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.NewLogger(cfg)
	defer log.Close()

	application, err := app.NewApp(cfg, log)
	if err != nil {
		log.Error("Failed to start server: %v", err)
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			log.Error("Error during shutdown: %v", err)
		}
	}()

	return application.Run(ctx)
}
