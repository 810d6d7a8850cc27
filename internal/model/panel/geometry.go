package panel

// Position is the top-left corner of the floating panel in viewport
// coordinates.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is the panel's bounding box.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Viewport is the visible browser area the panel must stay inside.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Layout 表示面板的布局模式：桌面端自由拖拽，小屏改为固定通栏。
type Layout string

const (
	LayoutFloating Layout = "floating"
	LayoutDocked   Layout = "docked"
)

// Default panel geometry, matching the desktop card and its spawn corner.
const (
	DefaultWidth  = 340
	DefaultHeight = 110
	spawnMarginX  = 360
	spawnMarginY  = 32
)

// DefaultMobileBreakpoint is the viewport width at or below which the panel
// docks and dragging is disabled.
const DefaultMobileBreakpoint = 700

// SpawnPosition places the panel in the top-right corner of the viewport.
func SpawnPosition(vp Viewport) Position {
	return Clamp(Position{X: vp.Width - spawnMarginX, Y: spawnMarginY}, Size{Width: DefaultWidth, Height: DefaultHeight}, vp)
}

// Clamp constrains p so the panel's box stays fully inside vp on both axes.
// A viewport smaller than the panel collapses the valid range to the origin.
func Clamp(p Position, size Size, vp Viewport) Position {
	maxX := vp.Width - size.Width
	maxY := vp.Height - size.Height
	if maxX < 0 {
		maxX = 0
	}
	if maxY < 0 {
		maxY = 0
	}
	return Position{
		X: clampAxis(p.X, maxX),
		Y: clampAxis(p.Y, maxY),
	}
}

func clampAxis(v, max float64) float64 {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// LayoutFor 根据视口宽度选择布局模式。
func LayoutFor(vp Viewport, breakpoint float64) Layout {
	if vp.Width <= breakpoint {
		return LayoutDocked
	}
	return LayoutFloating
}
