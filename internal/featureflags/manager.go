// Package featureflags evaluates runtime toggles defined in configuration.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
)

type flagKind int

const (
	flagOff flagKind = iota
	flagOn
	flagPercent
)

type flagValue struct {
	kind    flagKind
	percent int
}

// Manager evaluates feature flags defined in a simple key=value list.
// Example: "notifications=on,bulk_download=25%,lateral_forwards=off"
type Manager struct {
	flags map[string]flagValue
}

// NewManager creates a feature-flag manager from a comma-separated config string.
// Malformed pairs are skipped.
func NewManager(raw string) *Manager {
	out := make(map[string]flagValue)

	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := normalize(parts[0])
		value, ok := parseValue(normalize(parts[1]))
		if key == "" || !ok {
			continue
		}
		out[key] = value
	}

	return &Manager{flags: out}
}

func parseValue(raw string) (flagValue, bool) {
	switch raw {
	case "on", "true", "1":
		return flagValue{kind: flagOn}, true
	case "off", "false", "0":
		return flagValue{kind: flagOff}, true
	}
	if strings.HasSuffix(raw, "%") {
		pct, err := strconv.Atoi(strings.TrimSuffix(raw, "%"))
		if err != nil || pct < 0 || pct > 100 {
			return flagValue{}, false
		}
		return flagValue{kind: flagPercent, percent: pct}, true
	}
	return flagValue{}, false
}

// Enabled reports whether a flag is on for the given user. Unknown flags
// are off. Percentage flags roll out deterministically per user.
func (m *Manager) Enabled(name string, userID uint) bool {
	return m.EnabledOrDefault(name, userID, false)
}

// EnabledOrDefault is Enabled with an explicit fallback for flags absent
// from configuration. Use a true fallback for kill-switch flags.
func (m *Manager) EnabledOrDefault(name string, userID uint, fallback bool) bool {
	if m == nil {
		return fallback
	}

	value, ok := m.flags[normalize(name)]
	if !ok {
		return fallback
	}

	switch value.kind {
	case flagOn:
		return true
	case flagPercent:
		if value.percent >= 100 {
			return true
		}
		if value.percent <= 0 || userID == 0 {
			return false
		}
		return rolloutBucket(name, userID) < value.percent
	default:
		return false
	}
}

// Snapshot returns evaluated flag status for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	if m == nil {
		return map[string]bool{}
	}
	out := make(map[string]bool, len(m.flags))
	for name := range m.flags {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(fmt.Sprintf("%s:%d", normalize(name), userID)))
	return int(h.Sum32() % 100)
}
