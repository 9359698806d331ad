package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bnema/waygrad/internal/app"
	"github.com/bnema/waygrad/internal/config"
	"github.com/bnema/waygrad/internal/logger"
	"github.com/bnema/waygrad/internal/render"
	"github.com/spf13/cobra"
)

var (
	// Version is set during build
	Version = "0.1.0-dev"

	flagConfig   string
	flagDisplay  string
	flagWidth    int
	flagHeight   int
	flagTitle    string
	flagAppID    string
	flagGradient string
	flagLogLevel string

	rootCmd = &cobra.Command{
		Use:   "waygrad",
		Short: "Waygrad - annotated minimal Wayland client",
		Long: `Waygrad opens one window on a Wayland compositor and paints a static
gradient into a shared-memory buffer, exercising the minimal
display/registry/compositor/shm/xdg-shell handshake. It exists to show
the protocol sequence, not to be a toolkit.`,
		SilenceUsage: true,
		RunE:         runDemo,
	}
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	rootCmd.Flags().StringVar(&flagConfig, "config", "", "config file (default ~/.config/waygrad/waygrad.toml)")
	rootCmd.Flags().StringVar(&flagDisplay, "display", "", "compositor socket (default from WAYLAND_DISPLAY)")
	rootCmd.Flags().IntVar(&flagWidth, "width", 0, "window width in pixels")
	rootCmd.Flags().IntVar(&flagHeight, "height", 0, "window height in pixels")
	rootCmd.Flags().StringVar(&flagTitle, "title", "", "window title")
	rootCmd.Flags().StringVar(&flagAppID, "app-id", "", "application id")
	rootCmd.Flags().StringVar(&flagGradient, "gradient", "", "gradient style: corner or hsv")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
}

func runDemo(cmd *cobra.Command, args []string) error {
	if flagConfig != "" {
		config.SetConfigPath(flagConfig)
	}
	if err := config.Init(); err != nil {
		return err
	}
	cfg := config.Get()

	// Flags beat config, config beats defaults.
	if flagWidth > 0 {
		cfg.Window.Width = flagWidth
	}
	if flagHeight > 0 {
		cfg.Window.Height = flagHeight
	}
	if flagTitle != "" {
		cfg.Window.Title = flagTitle
	}
	if flagAppID != "" {
		cfg.Window.AppID = flagAppID
	}
	if flagGradient != "" {
		cfg.Window.Gradient = flagGradient
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	switch {
	case flagLogLevel != "":
		logger.SetLevel(flagLogLevel)
	case cfg.Logging.LogLevel != "":
		logger.SetLevel(cfg.Logging.LogLevel)
	}

	style, err := render.ParseStyle(cfg.Window.Gradient)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.New(app.Options{
		Display:  flagDisplay,
		Width:    cfg.Window.Width,
		Height:   cfg.Window.Height,
		Title:    cfg.Window.Title,
		AppID:    cfg.Window.AppID,
		Gradient: style,
	}).Run(ctx)
}
