package exchange

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/souzalinux78/gestao-organista/internal/scheduler"
)

const bom = "\xef\xbb\xbf"

func sampleItems() []scheduler.Assignment {
	sunday := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	return []scheduler.Assignment{
		{Date: sunday, Time: "10:00", ServiceID: "svc-sun", Role: scheduler.RolePrelude, MusicianName: "Beatriz", MusicianPhone: "11 98765-4321", CycleNumber: 1},
		{Date: sunday, Time: "10:00", ServiceID: "svc-sun", Role: scheduler.RoleService, MusicianName: "Ana Conceição", CycleNumber: 1},
	}
}

func TestEncode(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, "Central", sampleItems()))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, bom), "file must start with a BOM")
	lines := strings.Split(strings.TrimSuffix(strings.TrimPrefix(out, bom), "\n"), "\n")
	assert.Equal(t, []string{
		"data;dia_semana;hora;ciclo;funcao;organista;telefone;igreja",
		"01/03/2026;Domingo;10:00;1;meia_hora;Beatriz;11 98765-4321;Central",
		"01/03/2026;Domingo;10:00;1;culto;Ana Conceição;;Central",
	}, lines)
}

func TestDecodeRoundTripsEncodedFile(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, "Central", sampleItems()))

	rows, err := Decode(&buf, time.UTC)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), rows[0].Date)
	assert.Equal(t, scheduler.RolePrelude, rows[0].Role)
	assert.Equal(t, "Ana Conceição", rows[1].Musician)
	assert.Equal(t, scheduler.RoleService, rows[1].Role)
	assert.Equal(t, "Central", rows[1].Church)
}

func TestDecodeAcceptsFilesWithoutBOM(t *testing.T) {
	t.Parallel()

	input := "data;dia_semana;hora;ciclo;funcao;organista;telefone;igreja\n" +
		"04/03/2026;Quarta-feira;19:00;2;culto;Daniel;;Central\n" +
		";;;;;;;\n"
	rows, err := Decode(strings.NewReader(input), time.UTC)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Cycle)
	assert.Equal(t, "19:00", rows[0].Time)
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	_, err := Decode(strings.NewReader(""), time.UTC)
	assert.ErrorIs(t, err, ErrHeader)

	_, err = Decode(strings.NewReader("date;weekday\n"), time.UTC)
	assert.ErrorIs(t, err, ErrHeader)

	header := strings.Join(Header, ";") + "\n"
	tests := map[string]string{
		"data":      "2026-03-01;Domingo;10:00;1;culto;Ana;;Central\n",
		"hora":      "01/03/2026;Domingo;10h;1;culto;Ana;;Central\n",
		"ciclo":     "01/03/2026;Domingo;10:00;x;culto;Ana;;Central\n",
		"funcao":    "01/03/2026;Domingo;10:00;1;coro;Ana;;Central\n",
		"organista": "01/03/2026;Domingo;10:00;1;culto;;;Central\n",
	}
	for column, line := range tests {
		_, err := Decode(strings.NewReader(header+line), time.UTC)
		var rowErr *RowError
		require.True(t, errors.As(err, &rowErr), column)
		assert.Equal(t, column, rowErr.Column)
		assert.Equal(t, 2, rowErr.Line)
	}
}

func TestDedupe(t *testing.T) {
	t.Parallel()

	date := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	rows := []Row{
		{Line: 2, Date: date, Time: "10:00", Cycle: 1, Role: scheduler.RoleService, Musician: "Ana Conceição"},
		{Line: 3, Date: date, Time: "10:00", Cycle: 1, Role: scheduler.RoleService, Musician: "ana conceicao"},
		{Line: 4, Date: date, Time: "10:00", Cycle: 1, Role: scheduler.RolePrelude, Musician: "Ana Conceição"},
		{Line: 5, Date: date, Time: "19:00", Cycle: 1, Role: scheduler.RoleService, Musician: "Ana Conceição"},
	}

	unique, duplicates := Dedupe(rows)
	assert.Len(t, unique, 3)
	require.Len(t, duplicates, 1)
	assert.Equal(t, 3, duplicates[0].Line)
}
