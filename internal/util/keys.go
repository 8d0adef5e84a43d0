package util

import (
	"strings"
)

// Storage key kinds. The keyspaces "entry:" and "gen:" in a provider are owned
// by pluginplay.
const (
	KindEntry = "entry"
	KindGen   = "gen"
)

// Namespaces such as "module:scf" contain ':'. They are escaped so that no
// namespace's prefix can match the keys of another ("module:scf" vs
// "module:scf:df").
var (
	nsEscaper   = strings.NewReplacer("%", "%25", ":", "%3A")
	nsUnescaper = strings.NewReplacer("%3A", ":", "%25", "%")
)

func EscapeNamespace(ns string) string { return nsEscaper.Replace(ns) }

// StorageKey returns "<kind>:<escaped ns>:<key>". key is not escaped and may
// contain ':'.
func StorageKey(kind, ns, key string) string {
	ens := EscapeNamespace(ns)
	var b strings.Builder
	b.Grow(len(kind) + len(ens) + len(key) + 2)
	b.WriteString(kind)
	b.WriteByte(':')
	b.WriteString(ens)
	b.WriteByte(':')
	b.WriteString(key)
	return b.String()
}

// EntryPrefix is the provider prefix shared by every entry of ns and by no
// entry of any other namespace.
func EntryPrefix(ns string) string {
	return KindEntry + ":" + EscapeNamespace(ns) + ":"
}

// SplitStorageKey is the inverse of StorageKey.
func SplitStorageKey(sk string) (kind, ns, key string, ok bool) {
	kind, rest, ok := strings.Cut(sk, ":")
	if !ok {
		return "", "", "", false
	}
	ens, key, ok := strings.Cut(rest, ":")
	if !ok {
		return "", "", "", false
	}
	return kind, nsUnescaper.Replace(ens), key, true
}
