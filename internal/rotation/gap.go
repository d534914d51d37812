package rotation

import (
	"fmt"
	"time"

	"github.com/souzalinux78/gestao-organista/internal/scheduler"
)

// GapReason explains why a slot could not be filled.
type GapReason string

const (
	ReasonUnknownService GapReason = "unknown_service"
	ReasonMissingCycle   GapReason = "missing_cycle"
	ReasonEmptyCycle     GapReason = "empty_cycle"
	ReasonNoCertified    GapReason = "no_certified_musician"
	ReasonNoDistinct     GapReason = "no_distinct_musician"
)

// Gap is an expected slot the generator left unfilled. Gaps are reported
// alongside the generated items and never abort generation.
type Gap struct {
	Date        time.Time
	ServiceID   string
	CycleNumber int
	Role        scheduler.Role
	Reason      GapReason
}

func (g Gap) String() string {
	return fmt.Sprintf("%s %s %s: %s", g.Date.Format("2006-01-02"), g.ServiceID, g.Role, g.Reason)
}

// GapsByService groups gaps by service ID.
func GapsByService(gaps []Gap) map[string][]Gap {
	out := make(map[string][]Gap)
	for _, gap := range gaps {
		out[gap.ServiceID] = append(out[gap.ServiceID], gap)
	}
	return out
}
