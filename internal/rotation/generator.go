// Package rotation maps service occurrences to musicians by walking each
// service's cycle round-robin.
//
// Generation is a pure function of its Request: the starting Cursor comes in,
// the final Cursor goes out, and unfillable slots are reported as gaps.
package rotation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/souzalinux78/gestao-organista/internal/recurrence"
	"github.com/souzalinux78/gestao-organista/internal/scheduler"
)

// DrawOrder selects which role is drawn first when a church staffs the two
// roles of an occurrence with different musicians.
type DrawOrder int

const (
	// ServiceFirst draws the certified service musician first and gives the
	// prelude to the next entry of the cycle.
	ServiceFirst DrawOrder = iota
	// PreludeFirst draws the prelude from the cursor and then walks to the next
	// certified musician for the service.
	PreludeFirst
)

func (o DrawOrder) String() string {
	if o == PreludeFirst {
		return "prelude_first"
	}
	return "service_first"
}

// ParseDrawOrder parses a configured draw order. Empty input yields ServiceFirst.
func ParseDrawOrder(value string) (DrawOrder, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "service_first", "service-first":
		return ServiceFirst, nil
	case "prelude_first", "prelude-first":
		return PreludeFirst, nil
	}
	return ServiceFirst, fmt.Errorf("rotation: unknown draw order %q", value)
}

// Policy carries the church level rules applied during generation.
type Policy struct {
	SameMusicianBothRoles bool
	DrawOrder             DrawOrder
}

// Member is a cycle entry enriched with the musician data generation needs.
type Member struct {
	MusicianID string
	Name       string
	Phone      string
	Certified  bool
}

// Cycle is the ordered queue of musicians of one service.
type Cycle struct {
	Number  int
	Members []Member
}

// IndexOf returns the position of musicianID or -1.
func (c Cycle) IndexOf(musicianID string) int {
	for i, m := range c.Members {
		if m.MusicianID == musicianID {
			return i
		}
	}
	return -1
}

// Request is the input of Generate.
type Request struct {
	Occurrences []recurrence.Occurrence
	// Services indexes the definitions by ID.
	Services map[string]scheduler.ServiceDefinition
	// Cycles indexes the cycle of each service by service ID.
	Cycles map[string]Cycle
	Policy Policy
	Start  Cursor
	// From drops occurrences before this day when set.
	From time.Time
}

// Result is the output of Generate.
type Result struct {
	Items []scheduler.Assignment
	Gaps  []Gap
	End   Cursor
}

// Generate walks the occurrences chronologically and assigns musicians.
func Generate(req Request) Result {
	occurrences := orderOccurrences(req.Occurrences, req.Services)

	g := generation{req: req, cursor: req.Start}
	for _, occ := range occurrences {
		if !req.From.IsZero() && occ.Date.Before(req.From) {
			continue
		}
		g.fill(occ)
	}

	return Result{Items: g.items, Gaps: g.gaps, End: g.cursor}
}

func orderOccurrences(in []recurrence.Occurrence, services map[string]scheduler.ServiceDefinition) []recurrence.Occurrence {
	out := append([]recurrence.Occurrence(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		at, bt := services[a.ServiceID].TimeOfDay, services[b.ServiceID].TimeOfDay
		if at != bt {
			return at < bt
		}
		return scheduler.CompareIDs(a.ServiceID, b.ServiceID) < 0
	})
	return out
}

type generation struct {
	req    Request
	cursor Cursor
	items  []scheduler.Assignment
	gaps   []Gap
}

func requiredRoles(svc scheduler.ServiceDefinition) []scheduler.Role {
	if svc.Type == scheduler.ServiceYouth {
		return []scheduler.Role{scheduler.RoleService}
	}
	return []scheduler.Role{scheduler.RolePrelude, scheduler.RoleService}
}

func (g *generation) gap(occ recurrence.Occurrence, number int, role scheduler.Role, reason GapReason) {
	g.gaps = append(g.gaps, Gap{
		Date:        occ.Date,
		ServiceID:   occ.ServiceID,
		CycleNumber: number,
		Role:        role,
		Reason:      reason,
	})
}

func (g *generation) fill(occ recurrence.Occurrence) {
	svc, ok := g.req.Services[occ.ServiceID]
	if !ok {
		g.gap(occ, 0, scheduler.RoleService, ReasonUnknownService)
		return
	}
	roles := requiredRoles(svc)

	cycle, ok := g.req.Cycles[svc.ID]
	if !ok {
		for _, role := range roles {
			g.gap(occ, 0, role, ReasonMissingCycle)
		}
		return
	}
	if len(cycle.Members) == 0 {
		for _, role := range roles {
			g.gap(occ, cycle.Number, role, ReasonEmptyCycle)
		}
		return
	}

	n := len(cycle.Members)
	pos := mod(g.cursor.Position(cycle.Number), n)

	var prelude, service *Member
	switch {
	case svc.Type == scheduler.ServiceYouth:
		service = &cycle.Members[pos]
		pos++

	case g.req.Policy.SameMusicianBothRoles:
		if idx, found := nextCertified(cycle.Members, pos, ""); found {
			prelude, service = &cycle.Members[idx], &cycle.Members[idx]
			pos = idx + 1
		} else {
			prelude = &cycle.Members[pos]
			pos++
		}

	case g.req.Policy.DrawOrder == PreludeFirst:
		prelude = &cycle.Members[pos]
		pos++
		exclude := ""
		if n > 1 {
			exclude = prelude.MusicianID
		}
		if idx, found := nextCertified(cycle.Members, pos, exclude); found {
			service = &cycle.Members[idx]
			pos = idx + 1
		}

	default:
		if idx, found := nextCertified(cycle.Members, pos, ""); found {
			service = &cycle.Members[idx]
			pos = idx + 1
		}
		candidate := &cycle.Members[mod(pos, n)]
		if service != nil && n > 1 && candidate.MusicianID == service.MusicianID {
			pos++
			candidate = &cycle.Members[mod(pos, n)]
		}
		if service == nil || n == 1 || candidate.MusicianID != service.MusicianID {
			prelude = candidate
			pos++
		}
	}
	g.cursor = g.cursor.With(cycle.Number, mod(pos, n))

	for _, role := range roles {
		member := service
		if role == scheduler.RolePrelude {
			member = prelude
		}
		if member == nil {
			g.gap(occ, cycle.Number, role, g.reasonFor(role, cycle))
			continue
		}
		g.items = append(g.items, scheduler.Assignment{
			Date:          occ.Date,
			Time:          svc.TimeOfDay,
			ServiceID:     svc.ID,
			ServiceName:   svc.DisplayName(),
			ServiceType:   svc.Type,
			Role:          role,
			MusicianID:    member.MusicianID,
			MusicianName:  member.Name,
			MusicianPhone: member.Phone,
			CycleNumber:   cycle.Number,
		})
	}
}

func (g *generation) reasonFor(role scheduler.Role, cycle Cycle) GapReason {
	if role == scheduler.RoleService {
		certified := 0
		for _, m := range cycle.Members {
			if m.Certified {
				certified++
			}
		}
		if certified == 0 {
			return ReasonNoCertified
		}
	}
	return ReasonNoDistinct
}

// nextCertified walks at most one lap from start and returns the index of the
// first certified member other than exclude.
func nextCertified(members []Member, start int, exclude string) (int, bool) {
	n := len(members)
	for step := 0; step < n; step++ {
		idx := mod(start+step, n)
		m := members[idx]
		if m.Certified && (exclude == "" || m.MusicianID != exclude) {
			return idx, true
		}
	}
	return 0, false
}

func mod(v, n int) int {
	if n <= 0 {
		return 0
	}
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
