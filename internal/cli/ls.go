package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	gen "github.com/NWChemEx/PluginPlay-sub003/genstore"
	"github.com/NWChemEx/PluginPlay-sub003/internal/util"
	"github.com/NWChemEx/PluginPlay-sub003/internal/wire"
	"github.com/NWChemEx/PluginPlay-sub003/provider/badger"
)

var errNoDir = errors.New("no save location: pass --dir or set PPCACHE_DIR")

type lsRow struct {
	ns, key string
	gen     uint64
	size    int
	state   string
}

func (a *app) lsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List persisted entries with their generation state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir := a.v.GetString("dir")
			if dir == "" {
				return errNoDir
			}
			ns := a.v.GetString("namespace")
			rows, err := a.list(cmd.Context(), dir, ns)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAMESPACE\tKEY\tGEN\tBYTES\tSTATE")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", r.ns, r.key, r.gen, r.size, r.state)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().String("namespace", "", "only list this namespace, e.g. module:scf")
	return cmd
}

func (a *app) list(ctx context.Context, dir, ns string) ([]lsRow, error) {
	p, err := badger.New(badger.DefaultConfig(dir))
	if err != nil {
		return nil, err
	}
	defer p.Close(ctx)

	prefix := util.KindEntry + ":"
	if ns != "" {
		prefix = util.EntryPrefix(ns)
	}
	var rows []lsRow
	err = p.Walk(ctx, prefix, func(sk string, raw []byte) (bool, error) {
		_, ns, key, ok := util.SplitStorageKey(sk)
		if !ok {
			a.log.Debug("skipping malformed key", zap.String("key", sk))
			return true, nil
		}
		r := lsRow{ns: ns, key: key, size: len(raw), state: "current"}
		g, _, derr := wire.DecodeSingle(raw)
		if derr != nil {
			r.state = "corrupt"
		}
		r.gen = g
		rows = append(rows, r)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	gens := gen.NewProviderGenStore(p)
	cur := make(map[string]uint64)
	for i := range rows {
		r := &rows[i]
		g, ok := cur[r.ns]
		if !ok {
			if g, err = gens.Snapshot(ctx, r.ns); err != nil {
				return nil, err
			}
			cur[r.ns] = g
		}
		if r.state == "current" && r.gen != g {
			r.state = "stale"
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ns != rows[j].ns {
			return rows[i].ns < rows[j].ns
		}
		return rows[i].key < rows[j].key
	})
	return rows, nil
}
