// Package version carries release announcements shown to users once per
// release. Versions are dotted numeric strings compared tuple-wise.
package version

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Release is one announcement.
type Release struct {
	Version string
	Message string
	Active  bool
}

// Releases is the full announcement history, sorted ascending by
// version at init.
var Releases = sortReleases([]Release{
	{
		Version: "2025.11.07.0",
		Message: "🚀 Обновление: умные напоминания\n\n" +
			"Теперь я умею делать умные напоминания. Просто скажи слово «Напомни», " +
			"и я пришлю напоминание в нужное время!\n" +
			"☝️ Например:\n" +
			"• 'Напомни мне сходить к парикмахеру завтра в 10:00'\n" +
			"• 'Напомни мне выключить кастрюлю через 20 минут\n",
		Active: true,
	},
})

// Current is the newest known version.
var Current = currentVersion()

func currentVersion() string {
	if len(Releases) == 0 {
		return "0.0.0"
	}
	return Releases[len(Releases)-1].Version
}

// parseVersion turns "2025.11.7" into [2025 11 7]. Empty segments are
// skipped, an empty string is the zero version.
func parseVersion(v string) ([]int, error) {
	if v == "" {
		return nil, nil
	}
	var parts []int
	for _, raw := range strings.Split(v, ".") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("bad version %q: %w", v, err)
		}
		parts = append(parts, n)
	}
	return parts, nil
}

// Compare orders two dotted versions: -1, 0 or 1. Unparseable versions
// compare as the zero version.
func Compare(a, b string) int {
	av, _ := parseVersion(a)
	bv, _ := parseVersion(b)
	for i := 0; i < len(av) || i < len(bv); i++ {
		var x, y int
		if i < len(av) {
			x = av[i]
		}
		if i < len(bv) {
			y = bv[i]
		}
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	}
	return 0
}

func sortReleases(rs []Release) []Release {
	out := append([]Release(nil), rs...)
	sort.SliceStable(out, func(i, j int) bool {
		return Compare(out[i].Version, out[j].Version) < 0
	})
	return out
}

// Pending returns active releases newer than the version the user last
// saw. An empty lastSeen means the user has seen nothing.
func Pending(lastSeen string) []Release {
	var out []Release
	for _, r := range Releases {
		if !r.Active {
			continue
		}
		if Compare(r.Version, lastSeen) > 0 {
			out = append(out, r)
		}
	}
	return out
}
