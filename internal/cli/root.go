// Package cli implements the ppcache command: inspection and maintenance of a
// pluginplay save location.
package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	pluginplay "github.com/NWChemEx/PluginPlay-sub003"
	ppzap "github.com/NWChemEx/PluginPlay-sub003/log/zap"
)

const envPrefix = "PPCACHE"

type app struct {
	v   *viper.Viper
	log *zap.Logger
}

// NewRootCmd builds the command tree. Flags may also be given as PPCACHE_*
// environment variables, e.g. PPCACHE_DIR.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "ppcache",
		Short:         "Inspect and maintain pluginplay save locations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			l, err := newZap(a.v.GetBool("verbose"))
			if err != nil {
				return err
			}
			a.log = l
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringP("dir", "d", "", "save location directory")
	root.PersistentFlags().BoolP("verbose", "v", false, "debug logging to stderr")

	root.AddCommand(a.lsCmd(), a.clearCmd(), a.hashCmd())
	return root
}

func newZap(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.DisableStacktrace = true
	return cfg.Build()
}

func (a *app) logger() pluginplay.Logger { return ppzap.New(a.log) }
