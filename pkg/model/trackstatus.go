package model

type TrackStatusCode string

const (
	TrackClear       TrackStatusCode = "1"
	TrackYellow      TrackStatusCode = "2"
	TrackSCDeployed  TrackStatusCode = "4"
	TrackRed         TrackStatusCode = "5"
	TrackVSCDeployed TrackStatusCode = "6"
	TrackVSCEnding   TrackStatusCode = "7"
)

type trackStatusStyle struct {
	label     string
	color     Color
	textColor Color
}

var trackStatusStyles = map[TrackStatusCode]trackStatusStyle{
	TrackClear:       {"Green Flag", Green, Black},
	TrackYellow:      {"Yellow Flag", Yellow, Black},
	TrackSCDeployed:  {"Safety Car", Yellow, Black},
	TrackRed:         {"Red Flag", Red, White},
	TrackVSCDeployed: {"Virtual Safety Car", Yellow, Black},
	TrackVSCEnding:   {"VSC Ending", Yellow, Black},
}

// TrackStatusStyle returns display label and colors for a status code.
// Unknown codes use the code as label on a transparent background.
func TrackStatusStyle(code TrackStatusCode) (label string, color, textColor Color) {
	if s, ok := trackStatusStyles[code]; ok {
		return s.label, s.color, s.textColor
	}
	return string(code), Transparent, White
}

// TrackStatusInterval is a track status mapped onto the tick axis.
// Both StartTick and EndTick are inclusive.
type TrackStatusInterval struct {
	Status    TrackStatusCode `json:"status"`
	Label     string          `json:"label"`
	Message   string          `json:"message"`
	Color     Color           `json:"color"`
	TextColor Color           `json:"textColor"`
	StartTick int             `json:"startTick"`
	EndTick   int             `json:"endTick"`
}
