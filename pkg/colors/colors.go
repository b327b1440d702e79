// Package colors assigns each class a stable two-tone colour pair for
// rendered timetables. Hues advance by the golden ratio so neighbouring
// classes never cluster, and both tones stay dark enough for white text.
package colors

import (
	"fmt"
	"math"
	"sort"
)

const goldenRatio = 0.618033988749

// Pair holds the two tones used when drawing a class cell.
type Pair struct {
	Header string `json:"header"`
	Body   string `json:"body"`
}

// Assign maps every class name to a colour pair. Names are sorted before
// assignment, so the same set always yields the same colours regardless
// of input order.
func Assign(classNames []string) map[string]Pair {
	assigned := make(map[string]Pair, len(classNames))
	if len(classNames) == 0 {
		return assigned
	}

	sorted := make([]string, len(classNames))
	copy(sorted, classNames)
	sort.Strings(sorted)

	for i, name := range sorted {
		hue := math.Mod(float64(i)*goldenRatio*360.0, 360)
		hue = math.Mod(hue+float64(i%7)*8, 360)
		h := hue / 360.0

		headerSat := 0.75 + float64(i%5)*0.04
		headerLight := 0.25 + float64(i%6)*0.02
		bodySat := 0.65 + float64(i%5)*0.04
		bodyLight := 0.35 + float64(i%6)*0.02

		assigned[name] = Pair{
			Header: hslHex(h, headerLight, headerSat),
			Body:   hslHex(h, bodyLight, bodySat),
		}
	}
	return assigned
}

func hslHex(h, l, s float64) string {
	r, g, b := hslToRGB(h, l, s)
	return fmt.Sprintf("#%02x%02x%02x", int(r*255), int(g*255), int(b*255))
}

func hslToRGB(h, l, s float64) (float64, float64, float64) {
	if s == 0 {
		return l, l, l
	}
	var m2 float64
	if l <= 0.5 {
		m2 = l * (1 + s)
	} else {
		m2 = l + s - l*s
	}
	m1 := 2*l - m2
	return hueComponent(m1, m2, h+1.0/3.0),
		hueComponent(m1, m2, h),
		hueComponent(m1, m2, h-1.0/3.0)
}

func hueComponent(m1, m2, hue float64) float64 {
	hue = math.Mod(hue, 1.0)
	if hue < 0 {
		hue++
	}
	switch {
	case hue < 1.0/6.0:
		return m1 + (m2-m1)*hue*6
	case hue < 0.5:
		return m2
	case hue < 2.0/3.0:
		return m1 + (m2-m1)*(2.0/3.0-hue)*6
	}
	return m1
}
