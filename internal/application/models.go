package application

import (
	"io"
	"time"

	"github.com/souzalinux78/gestao-organista/internal/rotation"
	"github.com/souzalinux78/gestao-organista/internal/scheduler"
)

// CycleEntry is one musician of a cycle as shown to editors.
type CycleEntry struct {
	Position   int    `json:"position"`
	MusicianID string `json:"musician_id"`
	Name       string `json:"name"`
	Certified  bool   `json:"certified"`
	Active     bool   `json:"active"`
}

// CycleView is the working copy of one cycle.
type CycleView struct {
	ChurchID string       `json:"church_id"`
	Number   int          `json:"number"`
	Dirty    bool         `json:"dirty"`
	Entries  []CycleEntry `json:"entries"`
}

// PreviewParams is a generation request. StartDate defaults to today and the
// period to PeriodMonths (or the configured default) when EndDate is absent.
type PreviewParams struct {
	ChurchID     string     `json:"church_id" validate:"required"`
	PeriodMonths int        `json:"period_months" validate:"omitempty,min=1"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	// StartingCycle restarts that cycle at StartingMusicianID, or at its first
	// position when no musician is given.
	StartingCycle      int    `json:"starting_cycle,omitempty" validate:"omitempty,min=1"`
	StartingMusicianID string `json:"starting_musician_id,omitempty"`
}

// PreviewResult is an unsaved generation.
type PreviewResult struct {
	ChurchID  string                 `json:"church_id"`
	StartDate time.Time              `json:"start_date"`
	EndDate   time.Time              `json:"end_date"`
	Items     []scheduler.Assignment `json:"items"`
	Gaps      []rotation.Gap         `json:"gaps"`
	Conflicts []scheduler.Conflict   `json:"conflicts,omitempty"`
	Cursor    rotation.Cursor        `json:"-"`
}

// RegenerateParams asks to redo the saved rotation from a cutover date.
type RegenerateParams struct {
	ChurchID string    `json:"church_id" validate:"required"`
	FromDate time.Time `json:"from_date" validate:"required"`
}

// RegenerateResult summarizes a regeneration.
type RegenerateResult struct {
	FromDate    time.Time      `json:"from_date"`
	ScheduleIDs []string       `json:"schedule_ids"`
	ItemCount   int            `json:"item_count"`
	Gaps        []rotation.Gap `json:"gaps"`
}

// SaveScheduleParams stores a preview as a schedule. When Items is nil the
// rotation for the period is generated from the current cycles.
type SaveScheduleParams struct {
	ChurchID      string                   `json:"church_id" validate:"required"`
	ReferenceName string                   `json:"reference_name" validate:"required,max=120"`
	StartDate     time.Time                `json:"start_date" validate:"required"`
	EndDate       time.Time                `json:"end_date" validate:"required"`
	Status        scheduler.ScheduleStatus `json:"status" validate:"omitempty,oneof=draft published"`
	Items         []scheduler.Assignment   `json:"items"`
}

// UpdateScheduleParams fully replaces a saved schedule.
type UpdateScheduleParams struct {
	ScheduleID    string                   `json:"schedule_id" validate:"required"`
	ReferenceName string                   `json:"reference_name" validate:"required,max=120"`
	StartDate     time.Time                `json:"start_date" validate:"required"`
	EndDate       time.Time                `json:"end_date" validate:"required"`
	Status        scheduler.ScheduleStatus `json:"status" validate:"omitempty,oneof=draft published"`
	Items         []scheduler.Assignment   `json:"items"`
}

// ListSchedulesParams narrows schedule listings to a church and optional window.
type ListSchedulesParams struct {
	ChurchID string     `json:"church_id" validate:"required"`
	From     *time.Time `json:"from,omitempty"`
	To       *time.Time `json:"to,omitempty"`
}

// ImportParams creates a schedule from a bulk file.
type ImportParams struct {
	ChurchID      string    `json:"church_id" validate:"required"`
	ReferenceName string    `json:"reference_name" validate:"required,max=120"`
	Source        io.Reader `json:"-" validate:"required"`
}

// ImportResult reports the created schedule and the skipped duplicate lines.
type ImportResult struct {
	Schedule       scheduler.Schedule `json:"schedule"`
	DuplicateLines []int              `json:"duplicate_lines,omitempty"`
}

// DashboardParams selects the coverage period of a church. Zero dates select
// the current month.
type DashboardParams struct {
	ChurchID string    `json:"church_id" validate:"required"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}
