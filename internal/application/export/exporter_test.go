package export

import (
	"bufio"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sac/membership/internal/domain/membership"
	"github.com/sac/membership/internal/domain/shared"
	"github.com/sac/membership/internal/infrastructure/config"
	"github.com/sac/membership/internal/infrastructure/job"
	"github.com/sac/membership/internal/infrastructure/storage"
	"github.com/sac/membership/internal/infrastructure/tabular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExporter(t *testing.T, f *fixture, maxAttempts int) (*Exporter, *storage.LocalStorage, *int) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	failures := 0
	runner := job.NewRunner(job.Config{MaxAttempts: maxAttempts}, job.Hooks{
		OnError: func(context.Context, *job.Job, error) { failures++ },
	}, nil)
	e := NewExporter(f.service, store, runner, config.ExportConfig{
		Separator:           ";",
		MitgliederSeparator: "$",
	})
	e.now = func() time.Time { return time.Date(2024, time.March, 15, 9, 30, 0, 0, time.UTC) }
	return e, store, &failures
}

func TestExporter_Mitglieder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	e, store, _ := newExporter(t, f, 1)

	p := f.person(t, "Anna", "Aebi", 1980)
	f.member(t, p, membership.RoleMitglied, membership.BeitragskategorieAdult, date(2024, time.January, 1), date(2024, time.December, 31))

	a, err := e.Export(ctx, Request{Kind: KindMitglieder, LayerID: f.bern.ID}, tabular.FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, "exports/sac_mitglieder/sac_bern/20240315T093000Z.csv", a.Key)
	assert.Equal(t, 1, a.Rows)
	assert.True(t, strings.HasPrefix(a.URL, "file://"))

	r, err := store.Get(ctx, a.Key)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, a.Size, len(data))

	lines := bufio.NewScanner(strings.NewReader(string(data)))
	require.True(t, lines.Scan())
	assert.True(t, strings.HasPrefix(lines.Text(), "Mitglied-Nr$Nachname$Vorname$"))
	require.True(t, lines.Scan())
	assert.Contains(t, lines.Text(), "$Aebi$Anna$")
}

func TestExporter_GenericSeparatorAndXLSX(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	e, store, _ := newExporter(t, f, 1)

	a, err := e.Export(ctx, Request{Kind: KindStatistik, LayerID: f.bern.ID, Year: 2024}, tabular.FormatCSV)
	require.NoError(t, err)
	r, err := store.Get(ctx, a.Key)
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.True(t, strings.HasPrefix(string(data), "Beitragskategorie;Stammsektion;"))
	assert.Equal(t, 4, a.Rows)

	a, err = e.Export(ctx, Request{Kind: KindPersonen, LayerID: f.bern.ID}, tabular.FormatXLSX)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(a.Key, ".xlsx"))
	exists, err := store.Exists(ctx, a.Key)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestExporter_UnknownLayerIsNotRetried(t *testing.T) {
	f := setup(t)
	e, _, failures := newExporter(t, f, 3)

	_, err := e.Export(context.Background(), Request{Kind: KindMitglieder, LayerID: uuid.New()}, tabular.FormatCSV)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.True(t, job.IsPermanent(err))
	assert.Equal(t, 1, *failures)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "sac_bern", slug("SAC  Bern"))
	assert.Equal(t, "uto", slug(" Uto "))
}
