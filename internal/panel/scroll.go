package panel

import (
	"time"

	"github.com/hammamikhairi/smartlearn/internal/domain"
)

const scrollInterval = 1000 * time.Millisecond

// scrollTickLocked advances the reply by half a line while audio plays and
// moves to SLEEP once both the text and the audio are exhausted. Scrolling
// only moves forward.
func (c *Controller) scrollTickLocked() {
	p := &c.progress
	if !p.Captured || !p.AudioStarted {
		return
	}

	// The surface may have re-wrapped the text since it was captured.
	p.ContentHeight = c.surface.ContentHeight(domain.ObjLabelReplyContent)
	viewport := c.surface.Height(domain.ObjContainerReplyContent)
	offset := c.surface.ScrollY(domain.ObjContainerReplyContent)
	limit := p.ContentHeight - viewport

	if p.ContentHeight > viewport && offset < limit {
		step := max(1, c.surface.LineHeight(domain.ObjLabelReplyContent)/2)
		c.surface.ScrollToY(domain.ObjContainerReplyContent, min(offset+step, limit))
		// A surface that refused to move has no distance left.
		if c.surface.ScrollY(domain.ObjContainerReplyContent) > offset {
			return
		}
	}

	if !p.AudioEnded {
		return
	}

	p.Reset()
	c.scroll.Pause()
	c.surface.StopAnimations()
	c.showPanelLocked(domain.PanelSleep, ReplyCoolDown)
}
