package auth

import (
	"sort"
	"strings"
	"sync"
)

// DefaultMasterDevices are the device models whitelisted when none are configured.
var DefaultMasterDevices = []string{
	"iPhone14,7",
	"iPhone14,2",
	"iPhone14,3",
	"iPhone15,2",
	"iPhone15,3",
	"iPhone16,1",
	"iPhone16,2",
}

// Whitelist is the set of device identifiers that assert the master identity.
type Whitelist struct {
	mu      sync.RWMutex
	devices map[string]struct{}
}

func NewWhitelist(devices ...string) *Whitelist {
	w := &Whitelist{devices: make(map[string]struct{}, len(devices))}
	for _, d := range devices {
		w.Add(d)
	}
	return w
}

// Add reports whether the device was newly added.
func (w *Whitelist) Add(device string) bool {
	device = strings.TrimSpace(device)
	if device == "" {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.devices[device]; ok {
		return false
	}
	w.devices[device] = struct{}{}
	return true
}

// Remove reports whether the device was present.
func (w *Whitelist) Remove(device string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.devices[device]; !ok {
		return false
	}
	delete(w.devices, device)
	return true
}

func (w *Whitelist) Contains(device string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.devices[device]
	return ok
}

// List returns the whitelisted devices in sorted order.
func (w *Whitelist) List() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]string, 0, len(w.devices))
	for d := range w.devices {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func (w *Whitelist) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.devices)
}
