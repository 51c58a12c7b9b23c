package domain

import (
	"encoding/json"
	"strings"
)

// MapActionType discriminates map mutation variants.
type MapActionType string

const (
	// MapActionShowMarkers places a set of markers on the map.
	MapActionShowMarkers MapActionType = "SHOW_MARKERS"
	// MapActionShowRoute draws a path between positions.
	MapActionShowRoute MapActionType = "SHOW_ROUTE"
	// MapActionCenter recenters the map on a single position.
	MapActionCenter MapActionType = "CENTER"
)

// LatLng is a geographic position.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Marker is a single map marker.
type Marker struct {
	Position LatLng `json:"position"`
	Title    string `json:"title"`
	Detail   string `json:"detail,omitempty"`
}

// Bounds is an explicit viewport rectangle.
type Bounds struct {
	Southwest LatLng `json:"southwest"`
	Northeast LatLng `json:"northeast"`
}

// MapAction is a structured instruction, embedded in a tool result, telling
// the presentation layer how to update the map view. Payload fields are used
// according to Type; unused fields stay empty on the wire.
type MapAction struct {
	Type MapActionType `json:"type"`

	// SHOW_MARKERS
	Markers   []Marker `json:"markers,omitempty"`
	Center    *LatLng  `json:"center,omitempty"`
	Zoom      *float64 `json:"zoom,omitempty"`
	FitBounds bool     `json:"fitBounds,omitempty"`
	Bounds    *Bounds  `json:"bounds,omitempty"`

	// SHOW_ROUTE
	Path []LatLng `json:"path,omitempty"`

	// CENTER
	Position *LatLng `json:"position,omitempty"`
}

// valid reports whether the action carries the payload its tag requires.
func (a *MapAction) valid() bool {
	switch a.Type {
	case MapActionShowMarkers:
		return len(a.Markers) > 0
	case MapActionShowRoute:
		return len(a.Path) > 0
	case MapActionCenter:
		return a.Position != nil
	default:
		// Unknown tags are ignored for forward compatibility.
		return false
	}
}

// toolResultDoc is the structured document a tool result text may contain.
type toolResultDoc struct {
	Result    json.RawMessage `json:"result"`
	MapAction *MapAction      `json:"mapAction"`
	Error     string          `json:"error"`
}

// ParseMapAction attempts to extract a map action from a tool's result text.
// It is total: any input yields either one well-formed action or nil. Most
// tool results carry no map action, so nil is the normal outcome, not an
// error.
func ParseMapAction(resultText string) *MapAction {
	trimmed := strings.TrimSpace(resultText)
	if trimmed == "" || trimmed[0] != '{' {
		return nil
	}

	var doc toolResultDoc
	if err := json.Unmarshal([]byte(trimmed), &doc); err == nil && doc.MapAction != nil {
		if doc.MapAction.valid() {
			return doc.MapAction
		}
		return nil
	}

	// Some tools emit the action as the top-level document.
	var action MapAction
	if err := json.Unmarshal([]byte(trimmed), &action); err == nil && action.valid() {
		return &action
	}
	return nil
}
