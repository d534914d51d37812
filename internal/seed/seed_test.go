package seed

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/souzalinux78/gestao-organista/internal/scheduler"
	"github.com/souzalinux78/gestao-organista/internal/testfixtures"
)

func TestLoadFile(t *testing.T) {
	t.Parallel()

	file, err := LoadFile("testdata/central.yaml")
	require.NoError(t, err)
	require.Len(t, file.Churches, 1)

	church := file.Churches[0]
	assert.Equal(t, "Central", church.Name)
	require.Len(t, church.Services, 3)
	assert.Equal(t, []string{"A", "B", "C"}, church.Cycles[1])

	youth, err := church.Services[1].definition(church.ID)
	require.NoError(t, err)
	assert.Equal(t, time.Wednesday, youth.Weekday)
	assert.Equal(t, scheduler.ServiceYouth, youth.Type)
	assert.True(t, youth.Active)

	rehearsal, err := church.Services[2].definition(church.ID)
	require.NoError(t, err)
	assert.Equal(t, scheduler.RecurrenceMonthly, rehearsal.Recurrence)
	assert.Equal(t, time.Saturday, rehearsal.Weekday)
	assert.False(t, rehearsal.Active)
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		doc  string
		want string
	}{
		{"empty", "   ", "document is empty"},
		{"syntax", "churches: [", "decode"},
		{"missing church id", "churches:\n  - name: X\n", "id is required"},
		{"bad weekday", "churches:\n  - id: c1\n    services:\n      - {id: s, weekday: feriado, time: \"10:00\"}\n", "invalid weekday"},
		{"bad time", "churches:\n  - id: c1\n    services:\n      - {id: s, weekday: \"0\", time: \"25:00\"}\n", "invalid time"},
		{"monthly without ordinal", "churches:\n  - id: c1\n    services:\n      - {id: s, weekday: \"0\", time: \"10:00\", recurrence: monthly}\n", "monthly ordinal"},
		{"unknown cycle musician", "churches:\n  - id: c1\n    musicians:\n      - {id: A, name: A}\n    cycles:\n      1: [A, Z]\n", `unknown musician "Z"`},
		{"repeated cycle musician", "churches:\n  - id: c1\n    musicians:\n      - {id: A, name: A}\n    cycles:\n      1: [A, A]\n", "listed twice"},
		{"duplicate church", "churches:\n  - id: c1\n  - id: c1\n", "duplicate church"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(strings.NewReader(tc.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestApply(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)
	storage := harness.Storage
	repos := Repositories{Churches: storage.Churches, Services: storage.Services, Musicians: storage.Musicians, Cycles: storage.Cycles}

	file, err := LoadFile("testdata/central.yaml")
	require.NoError(t, err)

	var logs bytes.Buffer
	summary, err := file.Apply(ctx, repos, slog.New(slog.NewTextHandler(&logs, nil)))
	require.NoError(t, err)
	assert.Equal(t, Summary{Churches: 1, Services: 3, Musicians: 6, Cycles: 2}, summary)
	assert.Contains(t, logs.String(), "church seeded")

	musicians, err := storage.Musicians.ListMusicians(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, musicians, 6)
	assert.Equal(t, "A", musicians[0].ID)
	assert.False(t, musicians[5].Certified)

	cycles, err := storage.Cycles.ListCycles(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "E"}, cycles[2])

	t.Run("reapplying updates in place", func(t *testing.T) {
		file.Churches[0].Name = "Central Renovada"
		file.Churches[0].Cycles[1] = []string{"C", "B", "A"}

		_, err := file.Apply(ctx, repos, slog.New(slog.NewTextHandler(io.Discard, nil)))
		require.NoError(t, err)

		church, err := storage.Churches.GetChurch(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, "Central Renovada", church.Name)

		order, err := storage.Cycles.ListCycle(ctx, "c1", 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"C", "B", "A"}, order)

		services, err := storage.Services.ListServices(ctx, "c1")
		require.NoError(t, err)
		assert.Len(t, services, 3)
	})
}
