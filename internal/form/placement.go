package form

import (
	"strconv"
	"strings"
)

// DefaultPlacement is used for fields with no placement.
const DefaultPlacement = "small:0,12"

// Placement holds the CSS grid classes for a field, its label and its value.
type Placement struct {
	Field string `json:"field"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// Label widths when a field spans the full row, per screen size.
var labelWidths = map[string]int{"small": 12, "medium": 2, "large": 2}

// ParsePlacement converts a placement string such as
// "small:0,12;medium:0,6" into grid classes. Parsing stops at the first
// malformed part.
func ParsePlacement(s string) Placement {
	s = strings.TrimSpace(s)
	if s == "" {
		s = DefaultPlacement
	}
	var field, label, value []string
	right := false
	for _, part := range strings.Split(s, ";") {
		size, offset, width, isRight, ok := parsePlacementPart(part)
		if !ok {
			break
		}
		right = right || isRight
		field = append(field, size+"-"+strconv.Itoa(width))
		if offset > 0 {
			field = append(field, size+"-offset-"+strconv.Itoa(offset))
		}
		lw := labelWidths[size] * 12 / width
		if lw > 12 {
			lw = 12
		}
		vw := 12 - lw
		if lw == 12 {
			vw = 12
		}
		label = append(label, size+"-"+strconv.Itoa(lw))
		value = append(value, size+"-"+strconv.Itoa(vw))
	}
	p := Placement{
		Field: strings.Join(append(field, "columns"), " "),
		Label: strings.Join(append(label, "columns"), " "),
		Value: strings.Join(append(value, "columns"), " "),
	}
	if right {
		p.Field += " right"
	}
	return p
}

func parsePlacementPart(part string) (size string, offset, width int, right, ok bool) {
	size, rest, found := strings.Cut(strings.TrimSpace(part), ":")
	if !found {
		return "", 0, 0, false, false
	}
	if _, known := labelWidths[size]; !known {
		return "", 0, 0, false, false
	}
	if r, cut := strings.CutSuffix(rest, "right"); cut {
		rest = strings.TrimSuffix(r, ",")
		right = true
	}
	o, w, found := strings.Cut(rest, ",")
	if !found {
		return "", 0, 0, false, false
	}
	offset, err := strconv.Atoi(o)
	if err != nil || offset < 0 {
		return "", 0, 0, false, false
	}
	width, err = strconv.Atoi(w)
	if err != nil || width <= 0 || width > 12 {
		return "", 0, 0, false, false
	}
	return size, offset, width, right, true
}
