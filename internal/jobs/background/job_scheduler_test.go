package background

import (
	"context"
	"testing"
	"time"

	"sciportfolio/internal/models"
	"sciportfolio/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newScheduler(t *testing.T, fx *testhelpers.Fixture, intervals Intervals) *JobScheduler {
	t.Helper()
	js, err := NewJobScheduler(fx.Store, intervals, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = js.Stop() })
	return js
}

func TestJobScheduler_Registration(t *testing.T) {
	fx := testhelpers.NewFixture(t)

	js := newScheduler(t, fx, Intervals{ExpiryScan: time.Hour, ShareSweep: 10 * time.Minute})
	status := js.GetJobStatus()
	require.Len(t, status, 2)
	assert.Equal(t, ExpiryScanJob, status[0].Name)
	assert.Equal(t, ShareSweepJob, status[1].Name)

	require.Error(t, js.AddJob(ShareSweepJob, time.Minute, func(context.Context) error { return nil }),
		"job names are unique")
	assert.Len(t, js.GetJobStatus(), 2)

	disabled := newScheduler(t, fx, Intervals{})
	assert.Empty(t, disabled.GetJobStatus())
}

func TestJobScheduler_RunsTasks(t *testing.T) {
	js := newScheduler(t, testhelpers.NewFixture(t), Intervals{})
	ran := make(chan struct{}, 1)
	require.NoError(t, js.AddJob("tick", 50*time.Millisecond, func(ctx context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}))
	js.Start()

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("job never ran")
	}
}

func TestScanExpiringDocuments(t *testing.T) {
	fx := testhelpers.NewFixture(t)
	owner := fx.User("Olivia Owner")
	structure := fx.Structure(owner.ID)
	property := fx.StructureProperty(structure.ID)
	tenant := fx.Tenant(owner.ID, "Alice", "Durand")

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	days := func(n int) *time.Time { return testhelpers.TimePtr(now.AddDate(0, 0, n)) }
	fx.Document(owner.ID, models.DocumentStructure, structure.ID, days(-2))
	fx.Document(owner.ID, models.DocumentProperty, property.ID, days(29))
	fx.Document(owner.ID, models.DocumentProperty, property.ID, days(31))
	fx.Document(owner.ID, models.DocumentTenant, tenant.ID, days(5))
	fx.Document(owner.ID, models.DocumentTenant, tenant.ID, nil)

	js := newScheduler(t, fx, Intervals{})
	js.now = func() time.Time { return now }

	counts, err := js.ScanExpiringDocuments(fx.Ctx)
	require.NoError(t, err)
	assert.Equal(t, map[models.DocumentCategory]int{
		models.DocumentStructure: 1,
		models.DocumentProperty:  1,
		models.DocumentTenant:    1,
	}, counts)
}

func TestSweepShareLinks(t *testing.T) {
	fx := testhelpers.NewFixture(t)
	owner := fx.User("Olivia Owner")
	property := fx.StructureProperty(fx.Structure(owner.ID).ID)
	now := time.Now().UTC()

	share := func(expiry time.Time) *models.Inspection {
		i := fx.Inspection(property.ID, models.InspectionDraft)
		token := "tok-" + i.ID.String()
		i.ShareToken, i.ShareExpiry = &token, &expiry
		require.NoError(t, fx.Store.Inspections().Update(fx.Ctx, i))
		return i
	}
	stale := share(now.Add(-time.Hour))
	live := share(now.Add(time.Hour))

	js := newScheduler(t, fx, Intervals{})
	js.now = func() time.Time { return now }

	cleared, err := js.SweepShareLinks(fx.Ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, cleared)

	got, err := fx.Store.Inspections().GetByID(fx.Ctx, stale.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ShareToken)
	got, err = fx.Store.Inspections().GetByID(fx.Ctx, live.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.ShareToken)

	cleared, err = js.SweepShareLinks(fx.Ctx)
	require.NoError(t, err)
	assert.Zero(t, cleared)
}
