// Package sloghooks reports cache events through log/slog, with sampling for
// the noisy ones and key redaction.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	pluginplay "github.com/NWChemEx/PluginPlay-sub003"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery    uint64
	BackendLoadEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr    atomic.Uint64
	backendLoadCtr atomic.Uint64
}

var _ pluginplay.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) SelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("pluginplay.self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) ProviderSetRejected(storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Warn("pluginplay.provider_set_rejected",
		"key", h.redact(storageKey))
}

func (h *Hooks) BackendLoaded(namespace, key string) {
	if h.l == nil || !sample(h.opts.BackendLoadEvery, &h.backendLoadCtr) {
		return
	}
	h.l.Debug("pluginplay.backend_loaded",
		"ns", namespace,
		"key", h.redact(key))
}

func (h *Hooks) NamespaceCleared(namespace string, gen uint64) {
	if h.l == nil {
		return
	}
	h.l.Info("pluginplay.namespace_cleared",
		"ns", namespace,
		"gen", gen)
}

func (h *Hooks) GenError(namespace string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("pluginplay.gen_error",
		"ns", namespace,
		"err", err)
}

func (h *Hooks) SaveLocationBusy(path string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("pluginplay.save_location_busy",
		"path", path,
		"err", err)
}
