// Package stage2 implements C9: the three-layer scoring engine that ranks
// stage1 survivors on a 100-point scale and classifies a recommendation.
package stage2

import (
	"github.com/jsj9346/screener/internal/domain"
)

// Module is one independently-scored dimension of a ticker's setup. Each
// module inspects the same bar history and returns a score capped at its
// own weight, plus a short human-readable explanation.
type Module interface {
	Name() string
	MaxPoints() int
	Score(bars []domain.OHLCVBar) (points int, explanation string)
}

// layer groups modules that share a scoring budget (spec §4.7's
// Macro/Structural/Micro split).
type layer struct {
	name    string
	modules []Module
}
