package config

import "strings"

type LayoutMainSplit string

const (
	LayoutMainSplitVertical   LayoutMainSplit = "vertical"
	LayoutMainSplitHorizontal LayoutMainSplit = "horizontal"
)

// LayoutSettings controls how the request list, stream log and composer share
// the screen.
type LayoutSettings struct {
	SidebarWidth   float64         `json:"sidebar_width"   toml:"sidebar_width"`
	LogSplitRatio  float64         `json:"log_split_ratio" toml:"log_split_ratio"`
	MainSplit      LayoutMainSplit `json:"main_split"      toml:"main_split"`
	ShowTimestamps bool            `json:"show_timestamps" toml:"show_timestamps"`
}

const (
	LayoutSidebarWidthDefault = 0.22
	LayoutSidebarWidthMin     = 0.1
	LayoutSidebarWidthMax     = 0.4
	LayoutLogRatioDefault     = 0.7
	LayoutLogRatioMin         = 0.3
	LayoutLogRatioMax         = 0.9
)

func DefaultLayoutSettings() LayoutSettings {
	return LayoutSettings{
		SidebarWidth:   LayoutSidebarWidthDefault,
		LogSplitRatio:  LayoutLogRatioDefault,
		MainSplit:      LayoutMainSplitVertical,
		ShowTimestamps: true,
	}
}

func NormaliseLayoutSettings(in LayoutSettings) LayoutSettings {
	layout := DefaultLayoutSettings()
	layout.SidebarWidth = clampFloat(
		in.SidebarWidth,
		LayoutSidebarWidthMin,
		LayoutSidebarWidthMax,
		LayoutSidebarWidthDefault,
	)
	layout.LogSplitRatio = clampFloat(
		in.LogSplitRatio,
		LayoutLogRatioMin,
		LayoutLogRatioMax,
		LayoutLogRatioDefault,
	)
	layout.MainSplit = normaliseMainSplit(in.MainSplit, layout.MainSplit)
	layout.ShowTimestamps = in.ShowTimestamps
	return layout
}

func normaliseMainSplit(in LayoutMainSplit, def LayoutMainSplit) LayoutMainSplit {
	switch strings.ToLower(strings.TrimSpace(string(in))) {
	case string(LayoutMainSplitHorizontal):
		return LayoutMainSplitHorizontal
	case string(LayoutMainSplitVertical):
		return LayoutMainSplitVertical
	default:
		return def
	}
}

func clampFloat[T ~float64](value, min, max, fallback T) T {
	if value == 0 {
		return fallback
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
