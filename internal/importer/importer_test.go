package importer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventcheckin/internal/attendance"
)

type countingNotifier struct{ registered []string }

func (n *countingNotifier) ParticipantRegistered(_ context.Context, _ attendance.Event, p attendance.Participant) error {
	n.registered = append(n.registered, p.Email)
	return nil
}

func (n *countingNotifier) ActivityConfirmed(context.Context, attendance.Event, attendance.Participant, attendance.DailyActivity, attendance.Kind) error {
	return nil
}

func seed(t *testing.T) (*attendance.InMemory, attendance.Event) {
	t.Helper()
	store := attendance.NewInMemory()
	svc := attendance.NewService(store)
	evt, err := svc.CreateEvent(context.Background(), "org-1", attendance.NewEvent{
		Name:     "Fest",
		StartDay: attendance.NewDay(2024, 3, 1),
		EndDay:   attendance.NewDay(2024, 3, 2),
	})
	require.NoError(t, err)
	return store, evt
}

func TestReadCSV(t *testing.T) {
	in := "\ufeff Name ,EMAIL,Phone,College,Notes\n" +
		"  Alice , alice@example.com ,111,MIT,x\n" +
		",,,,\n" +
		"Bob,bob@example.com,222\n"

	rows, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Row{Line: 2, Name: "Alice", Email: "alice@example.com", Phone: "111", College: "MIT"}, rows[0])
	assert.Equal(t, Row{Line: 4, Name: "Bob", Email: "bob@example.com", Phone: "222"}, rows[1])

	_, err = ReadCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestReconcileBatch(t *testing.T) {
	store, evt := seed(t)
	notifier := &countingNotifier{}
	rec := New(store, notifier)

	rows := []Row{
		{Line: 2, Name: "Alice", Email: "alice@example.com", Phone: "111", College: "MIT"},
		{Line: 3, Name: "Alice Again", Email: "ALICE@Example.com", Phone: "999", College: "MIT"},
		{Line: 4, Name: "Bob", Email: "bob@example.com", Phone: "222"},
		{Line: 5, Name: "Carol", Email: "carol@example.com", Phone: "333", College: "UCLA"},
		{Line: 6, Name: "Dan", Email: "dan@example.com", Phone: "444", College: "NYU"},
		{Line: 7, Name: "Eve", Email: "eve@example.com", Phone: "555", College: "CMU"},
	}
	rep, err := rec.Reconcile(context.Background(), evt.ID, rows)
	require.NoError(t, err)

	assert.Equal(t, len(rows), rep.Processed)
	assert.Equal(t, len(rows)-2, rep.Inserted)
	require.Len(t, rep.Duplicates, 1)
	assert.Equal(t, 3, rep.Duplicates[0].Row.Line)
	require.Len(t, rep.Invalid, 1)
	assert.Equal(t, 4, rep.Invalid[0].Row.Line)
	assert.Equal(t, "missing required fields", rep.Invalid[0].Reason)
	assert.Len(t, notifier.registered, len(rows)-2)

	n, err := store.CountParticipants(context.Background(), evt.ID)
	require.NoError(t, err)
	assert.Equal(t, len(rows)-2, n)
}

func TestReconcileAgainstStore(t *testing.T) {
	store, evt := seed(t)
	rec := New(store, nil)
	ctx := context.Background()

	_, err := rec.Reconcile(ctx, evt.ID, []Row{{Line: 2, Name: "Alice", Email: "alice@example.com", Phone: "(111) 222-3333", College: "MIT"}})
	require.NoError(t, err)

	rep, err := rec.Reconcile(ctx, evt.ID, []Row{
		{Line: 2, Name: "Alice", Email: "Alice@example.com", Phone: "000", College: "MIT"},
		{Line: 3, Name: "Al", Email: "al@example.com", Phone: "111-222-3333", College: "MIT"},
		{Line: 4, Name: "Zed", Email: "not-an-email", Phone: "777", College: "MIT"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Inserted)
	assert.Len(t, rep.Duplicates, 2)
	require.Len(t, rep.Invalid, 1)
	assert.Equal(t, "invalid email format", rep.Invalid[0].Reason)
}

func TestReconcilePhoneWithoutDigits(t *testing.T) {
	store, evt := seed(t)
	rep, err := New(store, nil).Reconcile(context.Background(), evt.ID, []Row{
		{Line: 2, Name: "Bo", Email: "bo@example.com", Phone: "n/a", College: "MIT"},
		{Line: 3, Name: "Cy", Email: "cy@example.com", Phone: "tbd", College: "MIT"},
		{Line: 4, Name: "Di", Email: "di@example.com", Phone: "+1 (555) 010-2030", College: "MIT"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Inserted)
	assert.Empty(t, rep.Duplicates)
	require.Len(t, rep.Invalid, 2)
	for _, skipped := range rep.Invalid {
		assert.Equal(t, "invalid phone number", skipped.Reason)
	}
}

func TestReconcileUnknownEvent(t *testing.T) {
	store, _ := seed(t)
	_, err := New(store, nil).Reconcile(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, attendance.ErrNotFound)
}
