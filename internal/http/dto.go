package http

import (
	"fmt"
	"strings"
	"time"

	"github.com/souzalinux78/gestao-organista/internal/calendar"
	"github.com/souzalinux78/gestao-organista/internal/rotation"
	"github.com/souzalinux78/gestao-organista/internal/scheduler"
)

// assignmentDTO is one row of a rotation. Dates are civil dates (AAAA-MM-DD).
type assignmentDTO struct {
	Date          string `json:"date"`
	Weekday       string `json:"weekday"`
	Time          string `json:"time"`
	ServiceID     string `json:"service_id"`
	ServiceName   string `json:"service_name"`
	ServiceType   string `json:"service_type"`
	Role          string `json:"role"`
	MusicianID    string `json:"musician_id"`
	MusicianName  string `json:"musician_name"`
	MusicianPhone string `json:"musician_phone,omitempty"`
	CycleNumber   int    `json:"cycle_number"`
}

func toAssignmentDTO(item scheduler.Assignment) assignmentDTO {
	return assignmentDTO{
		Date:          calendar.FormatDate(item.Date),
		Weekday:       calendar.WeekdayPT(item.Date.Weekday()),
		Time:          item.Time,
		ServiceID:     item.ServiceID,
		ServiceName:   item.ServiceName,
		ServiceType:   item.ServiceType.String(),
		Role:          item.Role.String(),
		MusicianID:    item.MusicianID,
		MusicianName:  item.MusicianName,
		MusicianPhone: item.MusicianPhone,
		CycleNumber:   item.CycleNumber,
	}
}

func toAssignmentDTOs(items []scheduler.Assignment) []assignmentDTO {
	out := make([]assignmentDTO, 0, len(items))
	for _, item := range items {
		out = append(out, toAssignmentDTO(item))
	}
	return out
}

// toAssignment parses a client supplied row. Unknown service types are left
// zero; the role must be valid.
func (d assignmentDTO) toAssignment(loc *time.Location) (scheduler.Assignment, error) {
	date, err := calendar.ParseDate(d.Date, loc)
	if err != nil {
		return scheduler.Assignment{}, err
	}
	role, err := scheduler.ParseRole(d.Role)
	if err != nil {
		return scheduler.Assignment{}, err
	}
	serviceType, _ := scheduler.ParseServiceType(d.ServiceType)
	return scheduler.Assignment{
		Date:          date,
		Time:          strings.TrimSpace(d.Time),
		ServiceID:     strings.TrimSpace(d.ServiceID),
		ServiceName:   d.ServiceName,
		ServiceType:   serviceType,
		Role:          role,
		MusicianID:    strings.TrimSpace(d.MusicianID),
		MusicianName:  d.MusicianName,
		MusicianPhone: d.MusicianPhone,
		CycleNumber:   d.CycleNumber,
	}, nil
}

// toAssignments keeps nil distinct from empty: a nil slice asks the service
// to generate the rotation.
func toAssignments(items []assignmentDTO, loc *time.Location) ([]scheduler.Assignment, error) {
	if items == nil {
		return nil, nil
	}
	out := make([]scheduler.Assignment, 0, len(items))
	for i, item := range items {
		parsed, err := item.toAssignment(loc)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, parsed)
	}
	return out, nil
}

type gapDTO struct {
	Date        string `json:"date"`
	ServiceID   string `json:"service_id"`
	CycleNumber int    `json:"cycle_number"`
	Role        string `json:"role"`
	Reason      string `json:"reason"`
}

func toGapDTOs(gaps []rotation.Gap) []gapDTO {
	if len(gaps) == 0 {
		return nil
	}
	out := make([]gapDTO, 0, len(gaps))
	for _, gap := range gaps {
		out = append(out, gapDTO{
			Date:        calendar.FormatDate(gap.Date),
			ServiceID:   gap.ServiceID,
			CycleNumber: gap.CycleNumber,
			Role:        gap.Role.String(),
			Reason:      string(gap.Reason),
		})
	}
	return out
}

type conflictDTO struct {
	Type       string `json:"type"`
	MusicianID string `json:"musician_id"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Bookings   int    `json:"bookings"`
}

func toConflictDTOs(conflicts []scheduler.Conflict) []conflictDTO {
	if len(conflicts) == 0 {
		return nil
	}
	out := make([]conflictDTO, 0, len(conflicts))
	for _, conflict := range conflicts {
		out = append(out, conflictDTO{
			Type:       string(conflict.Type),
			MusicianID: conflict.MusicianID,
			Date:       calendar.FormatDate(conflict.Date),
			Time:       conflict.Time,
			Bookings:   len(conflict.Items),
		})
	}
	return out
}

type scheduleDTO struct {
	ID            string          `json:"id"`
	ChurchID      string          `json:"church_id"`
	ReferenceName string          `json:"reference_name"`
	StartDate     string          `json:"start_date"`
	EndDate       string          `json:"end_date"`
	Status        string          `json:"status"`
	Items         []assignmentDTO `json:"items,omitempty"`
	CreatedAt     string          `json:"created_at,omitempty"`
	UpdatedAt     string          `json:"updated_at,omitempty"`
}

func toScheduleDTO(schedule scheduler.Schedule) scheduleDTO {
	dto := scheduleDTO{
		ID:            schedule.ID,
		ChurchID:      schedule.ChurchID,
		ReferenceName: schedule.ReferenceName,
		StartDate:     calendar.FormatDate(schedule.StartDate),
		EndDate:       calendar.FormatDate(schedule.EndDate),
		Status:        string(schedule.Status),
		CreatedAt:     formatTimestamp(schedule.CreatedAt),
		UpdatedAt:     formatTimestamp(schedule.UpdatedAt),
	}
	if schedule.Items != nil {
		dto.Items = toAssignmentDTOs(schedule.Items)
	}
	return dto
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// parseOptionalDate returns nil for blank input.
func parseOptionalDate(value string, loc *time.Location) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	parsed, err := calendar.ParseDate(value, loc)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
