package http

import (
	"context"
	"io"
	"time"

	"github.com/souzalinux78/gestao-organista/internal/application"
	"github.com/souzalinux78/gestao-organista/internal/coverage"
	"github.com/souzalinux78/gestao-organista/internal/scheduler"
)

var testLocation = time.FixedZone("BRT", -3*60*60)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, testLocation)
}

type fakeCycles struct {
	view   application.CycleView
	err    error
	calls  []string
	from   int
	to     int
	index  int
	added  string
	church string
	number int
}

func (f *fakeCycles) record(op, churchID string, number int) (application.CycleView, error) {
	f.calls = append(f.calls, op)
	f.church = churchID
	f.number = number
	return f.view, f.err
}

func (f *fakeCycles) Current(_ context.Context, churchID string, number int) (application.CycleView, error) {
	return f.record("current", churchID, number)
}

func (f *fakeCycles) Add(_ context.Context, churchID string, number int, musicianID string) (application.CycleView, error) {
	f.added = musicianID
	return f.record("add", churchID, number)
}

func (f *fakeCycles) Move(_ context.Context, churchID string, number, from, to int) (application.CycleView, error) {
	f.from, f.to = from, to
	return f.record("move", churchID, number)
}

func (f *fakeCycles) Remove(_ context.Context, churchID string, number, index int) (application.CycleView, error) {
	f.index = index
	return f.record("remove", churchID, number)
}

func (f *fakeCycles) Save(_ context.Context, churchID string, number int) (application.CycleView, error) {
	return f.record("save", churchID, number)
}

type fakeRotation struct {
	preview     application.PreviewResult
	regenerate  application.RegenerateResult
	err         error
	lastPreview application.PreviewParams
	lastRegen   application.RegenerateParams
}

func (f *fakeRotation) Preview(_ context.Context, params application.PreviewParams) (application.PreviewResult, error) {
	f.lastPreview = params
	return f.preview, f.err
}

func (f *fakeRotation) Regenerate(_ context.Context, params application.RegenerateParams) (application.RegenerateResult, error) {
	f.lastRegen = params
	return f.regenerate, f.err
}

type fakeSchedules struct {
	schedule   scheduler.Schedule
	schedules  []scheduler.Schedule
	imported   application.ImportResult
	exported   string
	err        error
	lastSave   application.SaveScheduleParams
	lastUpdate application.UpdateScheduleParams
	lastList   application.ListSchedulesParams
	lastImport string
	importName string
	deleted    string
}

func (f *fakeSchedules) SaveSchedule(_ context.Context, params application.SaveScheduleParams) (scheduler.Schedule, error) {
	f.lastSave = params
	return f.schedule, f.err
}

func (f *fakeSchedules) GetSchedule(_ context.Context, _ string) (scheduler.Schedule, error) {
	return f.schedule, f.err
}

func (f *fakeSchedules) ListSchedules(_ context.Context, params application.ListSchedulesParams) ([]scheduler.Schedule, error) {
	f.lastList = params
	return f.schedules, f.err
}

func (f *fakeSchedules) UpdateSchedule(_ context.Context, params application.UpdateScheduleParams) (scheduler.Schedule, error) {
	f.lastUpdate = params
	return f.schedule, f.err
}

func (f *fakeSchedules) DeleteSchedule(_ context.Context, id string) error {
	f.deleted = id
	return f.err
}

func (f *fakeSchedules) Export(_ context.Context, _ string, w io.Writer) (scheduler.Schedule, error) {
	if f.err != nil {
		return scheduler.Schedule{}, f.err
	}
	_, err := io.WriteString(w, f.exported)
	return f.schedule, err
}

func (f *fakeSchedules) Import(_ context.Context, params application.ImportParams) (application.ImportResult, error) {
	body, _ := io.ReadAll(params.Source)
	f.lastImport = string(body)
	f.importName = params.ReferenceName
	return f.imported, f.err
}

type fakeDashboard struct {
	snapshot coverage.Snapshot
	err      error
	last     application.DashboardParams
}

func (f *fakeDashboard) Dashboard(_ context.Context, params application.DashboardParams) (coverage.Snapshot, error) {
	f.last = params
	return f.snapshot, f.err
}
