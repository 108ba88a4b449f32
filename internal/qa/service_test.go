package qa

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func passingGate() Gate {
	return Gate{
		CompanyID: "co_1",
		JobID:     "job_1",
		StartupMetrics: &StartupMetrics{
			MicronsReading:          350,
			TemperatureDifferential: f64(18),
			AirflowCFM:              f64(400),
			ElectricalReadings:      map[string]float64{"amps": 12.5},
		},
		Photos: []Photo{
			{Type: "before", URL: "https://cdn.example.com/1.jpg"},
			{Type: "after", URL: "https://cdn.example.com/2.jpg"},
			{Type: "equipment", URL: "https://cdn.example.com/3.jpg"},
		},
	}
}

func newTestService() (*Service, *MemoryRepo) {
	repo := NewMemoryRepo()
	s := NewService(repo, DefaultPolicy())
	s.clock = func() time.Time { return time.Unix(1700000000, 0).UTC() }
	return s, repo
}

func TestEvaluate_PassingGate(t *testing.T) {
	ev := passingGate().Evaluate(DefaultPolicy())
	if !ev.OverallPass || !ev.MicronsPass || !ev.PhotosPass || !ev.MetricsPass {
		t.Fatalf("expected pass, got %+v", ev)
	}
}

func TestEvaluate_MicronsMustBeBelowLimit(t *testing.T) {
	g := passingGate()
	g.StartupMetrics.MicronsReading = 500
	if g.Evaluate(DefaultPolicy()).MicronsPass {
		t.Fatalf("expected 500 to fail a limit of 500")
	}
	g.StartupMetrics.MicronsReading = 499.9
	if !g.Evaluate(DefaultPolicy()).MicronsPass {
		t.Fatalf("expected 499.9 to pass")
	}
}

func TestFailureDetail(t *testing.T) {
	g := passingGate()
	g.StartupMetrics.MicronsReading = 501
	g.Photos = g.Photos[:1]
	got := g.FailureDetail(DefaultPolicy())
	want := "microns reading 501 exceeds limit (500); missing required photos: after, equipment"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestFailureDetail_ReadingAtLimit(t *testing.T) {
	g := passingGate()
	g.StartupMetrics.MicronsReading = 500
	got := g.FailureDetail(DefaultPolicy())
	want := "microns reading 500 is not below limit (500)"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestCanClose_ReasonsInFixedOrder(t *testing.T) {
	s, repo := newTestService()
	ctx := context.Background()

	g := passingGate()
	g.StartupMetrics.MicronsReading = 900
	_ = repo.PutGate(ctx, g)
	_ = repo.PutWarranty(ctx, Warranty{CompanyID: "co_1", JobID: "job_1", Registered: false})
	_ = repo.PutInspection(ctx, Inspection{CompanyID: "co_1", JobID: "job_1", Required: true, Completed: true, Passed: false})

	err := s.CanClose(ctx, "co_1", "job_1")
	be, ok := AsBlocked(err)
	if !ok {
		t.Fatalf("expected BlockedError, got %v", err)
	}
	want := []string{
		"QA gate not passed: microns reading 900 exceeds limit (500)",
		"Warranty not registered",
		"Inspection failed",
	}
	if !reflect.DeepEqual(be.Reasons, want) {
		t.Fatalf("unexpected reasons:\n got %q\nwant %q", be.Reasons, want)
	}
}

func TestCanClose_MissingRecordsBlock(t *testing.T) {
	s, _ := newTestService()
	be, ok := AsBlocked(s.CanClose(context.Background(), "co_1", "job_9"))
	if !ok || len(be.Reasons) != 3 {
		t.Fatalf("expected three reasons, got %+v", be)
	}
	if be.Reasons[2] != ReasonInspectionNotCompleted {
		t.Fatalf("expected missing inspection to count as pending, got %q", be.Reasons[2])
	}
}

func TestCanClose_InspectionNotRequired(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()
	if _, err := s.RecordGate(ctx, passingGate()); err != nil {
		t.Fatalf("record gate: %v", err)
	}
	if err := s.RecordWarranty(ctx, Warranty{CompanyID: "co_1", JobID: "job_1", Registered: true, RegistrationNumber: "W-1"}); err != nil {
		t.Fatalf("record warranty: %v", err)
	}
	if err := s.RecordInspection(ctx, Inspection{CompanyID: "co_1", JobID: "job_1", Required: false}); err != nil {
		t.Fatalf("record inspection: %v", err)
	}
	if err := s.CanClose(ctx, "co_1", "job_1"); err != nil {
		t.Fatalf("expected closable, got %v", err)
	}
}

func TestRecord_NotifiesListeners(t *testing.T) {
	s, _ := newTestService()
	var jobs []string
	s.OnChange(func(ctx context.Context, companyID, jobID string) { jobs = append(jobs, jobID) })

	_, _ = s.RecordGate(context.Background(), passingGate())
	_ = s.RecordWarranty(context.Background(), Warranty{CompanyID: "co_1", JobID: "job_1"})
	if len(jobs) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(jobs))
	}
	if err := s.RecordInspection(context.Background(), Inspection{CompanyID: "co_1", JobID: "job_1", Passed: true}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected passed-without-completed to be rejected, got %v", err)
	}
}

func TestEvaluate_IsPureFunctionOfInputs(t *testing.T) {
	types := []string{"before", "after", "equipment", "serial", "other"}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("overall pass equals the conjunction of derived checks", prop.ForAll(
		func(microns float64, hasTemp, hasAirflow bool, readings int, photoIdx []int) bool {
			g := Gate{CompanyID: "co_1", JobID: "job_1"}
			m := &StartupMetrics{MicronsReading: microns, ElectricalReadings: map[string]float64{}}
			if hasTemp {
				m.TemperatureDifferential = f64(20)
			}
			if hasAirflow {
				m.AirflowCFM = f64(380)
			}
			for i := 0; i < readings; i++ {
				m.ElectricalReadings[types[i]] = float64(i)
			}
			g.StartupMetrics = m
			have := map[string]bool{}
			for _, i := range photoIdx {
				g.Photos = append(g.Photos, Photo{Type: types[i], URL: "u"})
				have[types[i]] = true
			}

			ev := g.Evaluate(DefaultPolicy())
			wantPhotos := have["before"] && have["after"] && have["equipment"]
			wantMetrics := hasTemp && hasAirflow && readings > 0
			wantMicrons := microns < 500
			if ev.PhotosPass != wantPhotos || ev.MetricsPass != wantMetrics || ev.MicronsPass != wantMicrons {
				return false
			}
			if ev.OverallPass != (wantPhotos && wantMetrics && wantMicrons) {
				return false
			}

			// Dropping one required photo must flip photosPass when it was the only copy.
			if wantPhotos {
				var kept []Photo
				for _, p := range g.Photos {
					if p.Type != "after" {
						kept = append(kept, p)
					}
				}
				g.Photos = kept
				ev2 := g.Evaluate(DefaultPolicy())
				if ev2.PhotosPass || ev2.OverallPass {
					return false
				}
			}
			return true
		},
		gen.Float64Range(0, 1000),
		gen.Bool(),
		gen.Bool(),
		gen.IntRange(0, 3),
		gen.SliceOf(gen.IntRange(0, len(types)-1)),
	))

	properties.TestingRun(t)
}

func TestPostgresRepo_GateRoundTripsJSON(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	updated := time.Unix(1700000000, 0).UTC()
	mock.ExpectQuery(regexp.QuoteMeta("FROM qa_gates")).
		WithArgs("co_1", "job_1").
		WillReturnRows(sqlmock.NewRows([]string{"company_id", "job_id", "startup_metrics", "photos", "required_photo_types", "updated_at"}).
			AddRow("co_1", "job_1",
				[]byte(`{"microns_reading":420,"temperature_differential":19,"airflow_cfm":410,"electrical_readings":{"amps":11}}`),
				[]byte(`[{"type":"before","url":"a"},{"type":"after","url":"b"},{"type":"equipment","url":"c"}]`),
				[]byte(`null`),
				updated))

	g, err := NewPostgresRepo(db).GetGate(context.Background(), "co_1", "job_1")
	require.NoError(t, err)
	require.NotNil(t, g.StartupMetrics)
	assert.Equal(t, 420.0, g.StartupMetrics.MicronsReading)
	assert.True(t, g.Evaluate(DefaultPolicy()).OverallPass)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_WarrantyMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM warranty_registrations")).
		WillReturnRows(sqlmock.NewRows([]string{"company_id"}))

	_, err = NewPostgresRepo(db).GetWarranty(context.Background(), "co_1", "job_1")
	assert.ErrorIs(t, err, ErrNotFound)
}
