// SPDX-License-Identifier: EPL-2.0

// Command audmix plays, mixes down and inspects audio files with the audmix
// engine.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/driver"
	"github.com/ik5/audmix/engine"
	"github.com/ik5/audmix/formats"
)

// app is the state shared by every subcommand.
type app struct {
	v          *viper.Viper
	configFile string
	debug      bool

	cfg      engine.Config
	registry *audio.Registry
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{v: viper.New(), registry: formats.NewRegistry()}

	root := &cobra.Command{
		Use:           "audmix",
		Short:         "Software audio mixer",
		Long:          "Play, mix down and inspect audio files through the audmix mixing engine.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			setupLogging(a.debug)

			cfg, err := loadConfig(a.v, a.configFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			log.Debug("configuration loaded",
				"file", a.v.ConfigFileUsed(),
				"driver", cfg.Driver,
				"mixer_frequency", cfg.MixerFrequency,
				"channels", cfg.Channels)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default $XDG_CONFIG_HOME/audmix/audmix.yaml)")
	flags.BoolVarP(&a.debug, "debug", "d", false, "enable debug output")
	flags.String("driver", "", "output driver: "+driverNames())
	flags.String("quality", "", "mixer interpolation: point, linear or cubic")
	flags.Int("rate", 0, "mixer frequency in Hz")
	flags.String("channels", "", "channel layout, for example 2 or 5.1")

	_ = a.v.BindPFlag("audio.driver", flags.Lookup("driver"))
	_ = a.v.BindPFlag("audio.default_mixer_quality", flags.Lookup("quality"))
	_ = a.v.BindPFlag("audio.primary_mixer_frequency", flags.Lookup("rate"))
	_ = a.v.BindPFlag("audio.channels", flags.Lookup("channels"))

	root.AddCommand(
		playCommand(a),
		renderCommand(a),
		infoCommand(a),
	)
	return root
}

// loadConfig reads path, or audmix.yaml from the user config directory or
// the working directory when path is empty. A missing default file is not
// an error.
func loadConfig(v *viper.Viper, path string) (engine.Config, error) {
	engine.SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("audmix")
		v.SetConfigType("yaml")
		if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
			v.AddConfigPath(filepath.Join(dir, "audmix"))
		} else if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "audmix"))
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return engine.Config{}, fmt.Errorf("reading config: %w", err)
		}
	}
	return engine.LoadConfig(v)
}

func setupLogging(debug bool) {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}

	base := log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: debug,
	})
	log.SetDefault(base)
	audio.SetLogger(base.WithPrefix("audio"))
	driver.SetLogger(base.WithPrefix("driver"))
	engine.SetLogger(base.WithPrefix("engine"))
}
