// Package seed loads church setups (services, musicians and cycles) from YAML
// files into the repositories.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/souzalinux78/gestao-organista/internal/calendar"
	"github.com/souzalinux78/gestao-organista/internal/persistence"
	"github.com/souzalinux78/gestao-organista/internal/scheduler"
)

// File is the document layout of a seed file.
type File struct {
	Churches []Church `yaml:"churches"`
}

// Church describes one church and everything it owns.
type Church struct {
	ID                    string           `yaml:"id"`
	Name                  string           `yaml:"name"`
	SameMusicianBothRoles bool             `yaml:"same_musician_both_roles"`
	Services              []Service        `yaml:"services"`
	Musicians             []Musician       `yaml:"musicians"`
	Cycles                map[int][]string `yaml:"cycles"`
}

// Service is a recurring service. Weekday accepts numbers or names in
// Portuguese or English; Active defaults to true.
type Service struct {
	ID             string `yaml:"id"`
	Name           string `yaml:"name"`
	Weekday        string `yaml:"weekday"`
	Time           string `yaml:"time"`
	Type           string `yaml:"type"`
	Recurrence     string `yaml:"recurrence"`
	MonthlyOrdinal int    `yaml:"monthly_ordinal"`
	Active         *bool  `yaml:"active"`
}

// Musician is an organist. Certified and Active default to true.
type Musician struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Phone     string `yaml:"phone"`
	Certified *bool  `yaml:"certified"`
	Active    *bool  `yaml:"active"`
}

// Repositories are the write targets of Apply.
type Repositories struct {
	Churches  persistence.ChurchRepository
	Services  persistence.ServiceRepository
	Musicians persistence.MusicianRepository
	Cycles    persistence.CycleRepository
}

// Summary counts what Apply wrote.
type Summary struct {
	Churches  int
	Services  int
	Musicians int
	Cycles    int
}

// Parse decodes and validates a seed document.
func Parse(data []byte) (File, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return File{}, errors.New("seed: document is empty")
	}
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return File{}, fmt.Errorf("seed: decode: %w", err)
	}
	if err := file.validate(); err != nil {
		return File{}, err
	}
	return file, nil
}

// Load reads a seed document from r.
func Load(r io.Reader) (File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return File{}, fmt.Errorf("seed: read: %w", err)
	}
	return Parse(data)
}

// LoadFile reads a seed document from path.
func LoadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("seed: read %s: %w", path, err)
	}
	file, err := Parse(data)
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", path, err)
	}
	return file, nil
}

func (f File) validate() error {
	var problems []string
	churches := make(map[string]struct{}, len(f.Churches))
	for i, church := range f.Churches {
		label := fmt.Sprintf("churches[%d]", i)
		if strings.TrimSpace(church.ID) == "" {
			problems = append(problems, label+": id is required")
			continue
		}
		if _, dup := churches[church.ID]; dup {
			problems = append(problems, fmt.Sprintf("%s: duplicate church %q", label, church.ID))
		}
		churches[church.ID] = struct{}{}

		for j, svc := range church.Services {
			if _, err := svc.definition(church.ID); err != nil {
				problems = append(problems, fmt.Sprintf("%s.services[%d]: %v", label, j, err))
			}
		}
		musicians := make(map[string]struct{}, len(church.Musicians))
		for j, m := range church.Musicians {
			if strings.TrimSpace(m.ID) == "" || strings.TrimSpace(m.Name) == "" {
				problems = append(problems, fmt.Sprintf("%s.musicians[%d]: id and name are required", label, j))
				continue
			}
			musicians[m.ID] = struct{}{}
		}
		for _, number := range sortedCycles(church.Cycles) {
			if number < 1 {
				problems = append(problems, fmt.Sprintf("%s.cycles: invalid cycle number %d", label, number))
			}
			seen := make(map[string]struct{})
			for _, id := range church.Cycles[number] {
				if _, ok := musicians[id]; !ok {
					problems = append(problems, fmt.Sprintf("%s.cycles[%d]: unknown musician %q", label, number, id))
				}
				if _, dup := seen[id]; dup {
					problems = append(problems, fmt.Sprintf("%s.cycles[%d]: musician %q listed twice", label, number, id))
				}
				seen[id] = struct{}{}
			}
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("seed: invalid document:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}

func (s Service) definition(churchID string) (scheduler.ServiceDefinition, error) {
	if strings.TrimSpace(s.ID) == "" {
		return scheduler.ServiceDefinition{}, errors.New("id is required")
	}
	weekday, err := calendar.ParseWeekday(s.Weekday)
	if err != nil {
		return scheduler.ServiceDefinition{}, err
	}
	clock, err := calendar.ParseClock(s.Time)
	if err != nil {
		return scheduler.ServiceDefinition{}, err
	}
	serviceType := scheduler.ServiceOfficial
	if s.Type != "" {
		if serviceType, err = scheduler.ParseServiceType(s.Type); err != nil {
			return scheduler.ServiceDefinition{}, err
		}
	}
	recurrence := scheduler.RecurrenceWeekly
	if s.Recurrence != "" {
		if recurrence, err = scheduler.ParseRecurrence(s.Recurrence); err != nil {
			return scheduler.ServiceDefinition{}, err
		}
	}
	def := scheduler.ServiceDefinition{
		ID:             s.ID,
		ChurchID:       churchID,
		Name:           strings.TrimSpace(s.Name),
		Weekday:        weekday,
		TimeOfDay:      clock,
		Type:           serviceType,
		Recurrence:     recurrence,
		MonthlyOrdinal: s.MonthlyOrdinal,
		Active:         boolOr(s.Active, true),
	}
	if problems := def.Validate(); problems != nil {
		keys := make([]string, 0, len(problems))
		for field := range problems {
			keys = append(keys, field)
		}
		sort.Strings(keys)
		return scheduler.ServiceDefinition{}, errors.New(problems[keys[0]])
	}
	return def, nil
}

// Apply writes the document. Existing churches, services and musicians are
// updated in place and listed cycles are replaced.
func (f File) Apply(ctx context.Context, repos Repositories, logger *slog.Logger) (Summary, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var summary Summary
	for _, c := range f.Churches {
		church := scheduler.Church{ID: c.ID, Name: strings.TrimSpace(c.Name), SameMusicianBothRoles: c.SameMusicianBothRoles}
		if err := upsert(ctx, church, repos.Churches.CreateChurch, repos.Churches.UpdateChurch); err != nil {
			return summary, fmt.Errorf("seed: church %s: %w", c.ID, err)
		}
		summary.Churches++

		for _, s := range c.Services {
			def, err := s.definition(c.ID)
			if err != nil {
				return summary, fmt.Errorf("seed: service %s: %w", s.ID, err)
			}
			if err := upsert(ctx, def, repos.Services.CreateService, repos.Services.UpdateService); err != nil {
				return summary, fmt.Errorf("seed: service %s: %w", s.ID, err)
			}
			summary.Services++
		}

		for i, m := range c.Musicians {
			musician := scheduler.Musician{
				ID:        m.ID,
				ChurchID:  c.ID,
				Name:      strings.TrimSpace(m.Name),
				Phone:     strings.TrimSpace(m.Phone),
				Certified: boolOr(m.Certified, true),
				Active:    boolOr(m.Active, true),
				Order:     i,
			}
			if err := upsert(ctx, musician, repos.Musicians.CreateMusician, repos.Musicians.UpdateMusician); err != nil {
				return summary, fmt.Errorf("seed: musician %s: %w", m.ID, err)
			}
			summary.Musicians++
		}

		for _, number := range sortedCycles(c.Cycles) {
			if err := repos.Cycles.ReplaceCycle(ctx, c.ID, number, c.Cycles[number]); err != nil {
				return summary, fmt.Errorf("seed: church %s cycle %d: %w", c.ID, number, err)
			}
			summary.Cycles++
		}

		logger.InfoContext(ctx, "church seeded",
			"church_id", c.ID,
			"services", len(c.Services),
			"musicians", len(c.Musicians),
			"cycles", len(c.Cycles),
		)
	}
	return summary, nil
}

func upsert[T any](ctx context.Context, value T, create, update func(context.Context, T) error) error {
	err := create(ctx, value)
	if errors.Is(err, persistence.ErrDuplicate) {
		return update(ctx, value)
	}
	return err
}

func sortedCycles(cycles map[int][]string) []int {
	numbers := make([]int, 0, len(cycles))
	for number := range cycles {
		numbers = append(numbers, number)
	}
	sort.Ints(numbers)
	return numbers
}

func boolOr(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}
