package panel

import (
	panelmodel "github.com/Satwikmbadiger/EmoTutor/internal/model/panel"
)

// BeginDrag starts tracking from a pointer-down inside the panel, recording
// the pointer's offset from the current position. Dragging is refused while
// hidden and in the docked small-viewport layout.
func (p *Panel) BeginDrag(pointerX, pointerY float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateHidden {
		return false
	}
	if panelmodel.LayoutFor(p.viewport, p.breakpoint) == panelmodel.LayoutDocked {
		return false
	}

	p.dragging = true
	p.dragOffset = panelmodel.Position{X: pointerX - p.pos.X, Y: pointerY - p.pos.Y}
	return true
}

// Drag moves the panel to pointer − offset, clamped so the box stays fully
// inside the viewport. Moves outside an active drag are ignored.
func (p *Panel) Drag(pointerX, pointerY float64) panelmodel.Position {
	p.mu.Lock()
	if !p.dragging {
		pos := p.pos
		p.mu.Unlock()
		return pos
	}

	raw := panelmodel.Position{X: pointerX - p.dragOffset.X, Y: pointerY - p.dragOffset.Y}
	p.pos = panelmodel.Clamp(raw, p.size, p.viewport)
	pos := p.pos
	p.mu.Unlock()

	p.notify()
	return pos
}

// EndDrag exits the dragging state. Pointer-up and pointer-leave of the
// tracking surface both land here.
func (p *Panel) EndDrag() {
	p.mu.Lock()
	changed := p.dragging
	p.dragging = false
	p.mu.Unlock()

	if changed {
		p.notify()
	}
}

// Resize re-clamps the stored position against the new viewport bounds. An
// active drag is abandoned when the layout docks.
func (p *Panel) Resize(vp panelmodel.Viewport) {
	if vp.Width <= 0 || vp.Height <= 0 {
		return
	}

	p.mu.Lock()
	p.viewport = vp
	p.pos = panelmodel.Clamp(p.pos, p.size, vp)
	if panelmodel.LayoutFor(vp, p.breakpoint) == panelmodel.LayoutDocked {
		p.dragging = false
	}
	p.mu.Unlock()

	p.notify()
}

// Position returns the panel's clamped top-left corner.
func (p *Panel) Position() panelmodel.Position {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pos
}
