package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	pluginplay "github.com/NWChemEx/PluginPlay-sub003"
)

func (a *app) clearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear --module ID [--module ID...]",
		Short: "Invalidate the persisted module and user caches of modules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			dir := a.v.GetString("dir")
			if dir == "" {
				return errNoDir
			}
			ids := a.v.GetStringSlice("module")
			if len(ids) == 0 {
				return errors.New("at least one --module is required")
			}
			ctx := cmd.Context()
			m, err := pluginplay.NewModuleManagerCache(pluginplay.Options{Logger: a.logger()})
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, m.Close(ctx)) }()

			if err := m.ChangeSaveLocation(dir); err != nil {
				return err
			}
			for _, id := range ids {
				mc, err := m.GetOrMakeModuleCache(id)
				if err != nil {
					return err
				}
				if err := mc.Clear(ctx); err != nil {
					return fmt.Errorf("clear module %s: %w", id, err)
				}
				uc, err := m.GetOrMakeUserCache(id)
				if err != nil {
					return err
				}
				if err := uc.Reset(ctx); err != nil {
					return fmt.Errorf("reset user cache %s: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", id)
			}
			return nil
		},
	}
	cmd.Flags().StringSlice("module", nil, "module id to clear")
	return cmd
}
