package config

import "testing"

func TestNormaliseLayoutClampsValues(t *testing.T) {
	layout := NormaliseLayoutSettings(LayoutSettings{
		SidebarWidth:  0.95,
		LogSplitRatio: 0.01,
		MainSplit:     " HORIZONTAL ",
	})
	if layout.SidebarWidth != LayoutSidebarWidthMax {
		t.Fatalf("sidebar not clamped: %v", layout.SidebarWidth)
	}
	if layout.LogSplitRatio != LayoutLogRatioMin {
		t.Fatalf("log ratio not clamped: %v", layout.LogSplitRatio)
	}
	if layout.MainSplit != LayoutMainSplitHorizontal {
		t.Fatalf("main split not normalised: %v", layout.MainSplit)
	}
}

func TestNormaliseLayoutZeroFallsBackToDefaults(t *testing.T) {
	layout := NormaliseLayoutSettings(LayoutSettings{})
	def := DefaultLayoutSettings()
	if layout.SidebarWidth != def.SidebarWidth || layout.LogSplitRatio != def.LogSplitRatio {
		t.Fatalf("expected defaults, got %+v", layout)
	}
	if layout.MainSplit != LayoutMainSplitVertical {
		t.Fatalf("unexpected main split %v", layout.MainSplit)
	}
}
