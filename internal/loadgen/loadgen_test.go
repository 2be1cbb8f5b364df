package loadgen

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/hrdesk/internal/adapters/http/api"
	service "github.com/okian/hrdesk/internal/app"
	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/internal/domain/scoring"
	"github.com/okian/hrdesk/internal/domain/types"
	"github.com/okian/hrdesk/internal/seed"
	"github.com/okian/hrdesk/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	_ = logger.SetLevelString("error")
}

// skewedScorer stores a score that is off by a tenth.
type skewedScorer struct{}

func (skewedScorer) Score(ctx context.Context, in scoring.Input) (scoring.Result, error) {
	res, err := scoring.NewWeightedScorer().Score(ctx, in)
	res.OverallScore += 0.1
	return res, err
}

// newTestServer serves the evaluation API over a seeded in-memory service.
func newTestServer(opts ...service.Option) *httptest.Server {
	fx, err := seed.Default()
	So(err, ShouldBeNil)
	svc := service.New(append([]service.Option{
		service.WithFixtures(fx),
		service.WithWorkerCount(2),
		service.WithQueueSize(64),
	}, opts...)...)
	So(svc.Start(context.Background()), ShouldBeNil)

	server := api.NewServer(svc, svc,
		api.WithCollection[model.Employee](svc.Employees),
		api.WithCollection[model.EvaluationForm](svc.EvaluationForms),
		api.WithCollection[model.Evaluation](svc.Evaluations),
	)
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	ts := httptest.NewServer(mux)
	Reset(func() {
		ts.Close()
		svc.Stop()
	})
	return ts
}

func testConfig(baseURL string) *Config {
	return &Config{
		BaseURL:     baseURL,
		Evaluations: 40,
		FormID:      "form-annual",
		PeriodID:    "period-2024",
		Workers:     4,
		Timeout:     5 * time.Second,
		Wait:        5 * time.Second,
	}
}

func TestRun(t *testing.T) {
	Convey("Given a running server", t, func() {
		ts := newTestServer()
		cfg := testConfig(ts.URL)

		Convey("When submissions are queued", func() {
			stats, err := Run(context.Background(), cfg)

			Convey("Then every stored score matches the local computation", func() {
				So(err, ShouldBeNil)
				So(stats.EvaluationsCreated, ShouldEqual, 40)
				So(stats.Submitted, ShouldEqual, 40)
				So(stats.Accepted+stats.Throttled, ShouldEqual, 40)
				So(stats.Verified, ShouldEqual, stats.Accepted)
				So(stats.Mismatched, ShouldEqual, 0)
			})
		})

		Convey("When submissions are scored synchronously", func() {
			cfg.Sync = true
			stats, err := Run(context.Background(), cfg)

			Convey("Then each answer is already scored", func() {
				So(err, ShouldBeNil)
				So(stats.Scored, ShouldEqual, 40)
				So(stats.Verified, ShouldEqual, 40)
			})
		})

		Convey("When the form does not exist", func() {
			cfg.FormID = "missing"
			_, err := Run(context.Background(), cfg)

			Convey("Then the run fails before creating anything", func() {
				So(errors.Is(err, ErrUnexpectedStatus), ShouldBeTrue)
			})
		})
	})

	Convey("Given a server that stores skewed scores", t, func() {
		ts := newTestServer(service.WithScorer(skewedScorer{}))
		cfg := testConfig(ts.URL)
		cfg.Evaluations = 5
		cfg.Sync = true

		Convey("Then the run reports a verification failure", func() {
			stats, err := Run(context.Background(), cfg)
			So(errors.Is(err, ErrVerification), ShouldBeTrue)
			So(stats.Mismatched, ShouldEqual, 5)
			So(stats.Verified, ShouldEqual, 0)
		})
	})

	Convey("Given no server", t, func() {
		ts := httptest.NewServer(http.NotFoundHandler())
		ts.Close()

		Convey("Then the health check fails", func() {
			_, err := Run(context.Background(), testConfig(ts.URL))
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "health check")
		})
	})
}

func TestGenerateScores(t *testing.T) {
	Convey("Given the annual review criteria", t, func() {
		criteria := []model.Criterion{
			{ID: "1", Weight: 25}, {ID: "2", Weight: 20}, {ID: "3", Weight: 20},
			{ID: "4", Weight: 15}, {ID: "5", Weight: 20},
		}

		Convey("Then generated scores are valid and reference known criteria", func() {
			for i := 0; i < 200; i++ {
				scores := generateScores(criteria)
				So(len(scores), ShouldBeBetweenOrEqual, 1, len(criteria))
				So(scores[0].CriterionID, ShouldEqual, "1")
				for _, s := range scores {
					So(s.Value, ShouldBeBetweenOrEqual, model.MinScoreValue, model.MaxScoreValue)
					_, ok := model.EvaluationForm{Criteria: criteria}.Criterion(s.CriterionID)
					So(ok, ShouldBeTrue)
				}
			}
		})
	})
}

func TestSubmitSingle(t *testing.T) {
	Convey("Given servers answering with fixed statuses", t, func() {
		cases := []struct {
			status int
			body   string
			want   string
		}{
			{status: http.StatusAccepted, body: `{"status":"accepted"}`, want: outcomeAccepted},
			{status: http.StatusOK, body: `{"status":"scored"}`, want: outcomeScored},
			{status: http.StatusOK, body: `{"status":"duplicate","duplicate":true}`, want: outcomeDuplicate},
			{status: http.StatusOK, body: `{"status":"stale"}`, want: outcomeFailed},
			{status: http.StatusOK, body: `not json`, want: outcomeFailed},
			{status: http.StatusTooManyRequests, body: `{}`, want: outcomeThrottled},
			{status: http.StatusBadRequest, body: `{}`, want: outcomeFailed},
		}

		Convey("Then each response is classified", func() {
			for _, tc := range cases {
				ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(tc.status)
					_, _ = w.Write([]byte(tc.body))
				}))
				client := newHTTPClient(ts.URL, time.Second, 0, 0)
				got := submitSingle(context.Background(), client, "/submit", types.SubmitRequest{})
				ts.Close()
				So(got, ShouldEqual, tc.want)
			}
		})
	})

	Convey("Given a server that throttles twice", t, func() {
		var calls atomic.Int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) <= 2 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.WriteHeader(http.StatusAccepted)
		}))
		Reset(ts.Close)
		client := newHTTPClient(ts.URL, time.Second, 0, 0)

		Convey("Then the submission is retried until accepted", func() {
			got := submitWithRetry(context.Background(), client, &Config{}, Job{EvaluationID: "e"})
			So(got, ShouldEqual, outcomeAccepted)
			So(int(calls.Load()), ShouldEqual, 3)
		})
	})
}
