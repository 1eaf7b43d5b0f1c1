package extraction

import (
	"github.com/draftforge/draftforge-engine/pkg/models"
)

// ShouldDiscloseOutline decides whether the outline should be presented to
// the user this turn. It fires exactly on the rising edge where type, name
// and location became all known: once per conversation, since the core never
// clears facts.
func ShouldDiscloseOutline(previous, next models.ProjectFacts) bool {
	return next.Ready() && !previous.Ready()
}
