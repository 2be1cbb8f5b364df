package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/hrdesk/internal/adapters/http/api"
	service "github.com/okian/hrdesk/internal/app"
	"github.com/okian/hrdesk/internal/domain/model"
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

// newTestMux serves the full API over a seeded in-memory service.
func newTestMux(opts ...api.Option) (*http.ServeMux, *service.Service) {
	fx, err := seed.Default()
	So(err, ShouldBeNil)
	svc := service.New(service.WithFixtures(fx), service.WithWorkerCount(1), service.WithQueueSize(10))
	So(svc.Start(context.Background()), ShouldBeNil)

	server := api.NewServer(svc, svc, append([]api.Option{
		api.WithMaxListLimit(50),
		api.WithCollection[model.Employee](svc.Employees),
		api.WithCollection[model.Department](svc.Departments),
		api.WithCollection[model.Training](svc.Trainings),
		api.WithCollection[model.EvaluationForm](svc.EvaluationForms),
		api.WithCollection[model.Evaluation](svc.Evaluations),
	}, opts...)...)
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux, svc
}

func do(mux *http.ServeMux, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode[T any](w *httptest.ResponseRecorder) T {
	var v T
	So(json.Unmarshal(w.Body.Bytes(), &v), ShouldBeNil)
	return v
}

type errorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details"`
}

const sampleScores = `[{"criterion_id":"1","value":4},{"criterion_id":"2","value":5},{"criterion_id":"3","value":4},{"criterion_id":"4","value":3},{"criterion_id":"5","value":4}]`

func TestOperationalRoutes(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux, svc := newTestMux()
		defer svc.Stop()

		Convey("Then /healthz reports status as JSON", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode[map[string]string](w)["status"], ShouldEqual, "ok")
		})

		Convey("And /healthz serves metrics when text is accepted", func() {
			w := do(mux, http.MethodGet, "/healthz", "", "Accept", "text/plain")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "hrdesk_evaluations_")
		})

		Convey("And /metrics serves the registry", func() {
			w := do(mux, http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "hrdesk_evaluations_queue_capacity")
		})

		Convey("And /stats reports service state", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode[map[string]any](w)["started"], ShouldEqual, true)
		})

		Convey("And /dashboard serves the embedded page", func() {
			w := do(mux, http.MethodGet, "/dashboard", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "/api/v1/evaluations/top")
		})

		Convey("And wrong methods are refused", func() {
			So(do(mux, http.MethodDelete, "/stats", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestCollectionRoutes(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux, svc := newTestMux()
		defer svc.Stop()

		Convey("When listing a page of employees", func() {
			w := do(mux, http.MethodGet, "/api/v1/employees?limit=2&offset=1", "")

			Convey("Then the page and total are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				res := decode[types.ListResult[model.Employee]](w)
				So(res.Total, ShouldEqual, 4)
				So(len(res.Items), ShouldEqual, 2)
				So(res.Items[0].ID, ShouldEqual, "emp-002")
			})
		})

		Convey("When searching", func() {
			w := do(mux, http.MethodGet, "/api/v1/employees?q=sarah", "")

			Convey("Then only matches are returned", func() {
				res := decode[types.ListResult[model.Employee]](w)
				So(res.Total, ShouldEqual, 1)
				So(res.Items[0].Name, ShouldEqual, "Sarah Johnson")
			})
		})

		Convey("When list parameters are invalid", func() {
			tooBig := do(mux, http.MethodGet, "/api/v1/employees?limit=500", "")
			notInt := do(mux, http.MethodGet, "/api/v1/employees?offset=abc", "")

			Convey("Then they are rejected", func() {
				So(tooBig.Code, ShouldEqual, http.StatusBadRequest)
				So(decode[errorBody](tooBig).Code, ShouldEqual, "limit_exceeded")
				So(notInt.Code, ShouldEqual, http.StatusBadRequest)
				So(decode[errorBody](notInt).Code, ShouldEqual, "bad_request")
			})
		})

		Convey("When fetching records", func() {
			found := do(mux, http.MethodGet, "/api/v1/employees/emp-001", "")
			missing := do(mux, http.MethodGet, "/api/v1/employees/ghost", "")

			Convey("Then existing ids resolve and missing ones are 404", func() {
				So(found.Code, ShouldEqual, http.StatusOK)
				So(decode[model.Employee](found).Name, ShouldEqual, "John Smith")
				So(missing.Code, ShouldEqual, http.StatusNotFound)
				So(decode[errorBody](missing).Code, ShouldEqual, "not_found")
			})
		})

		Convey("When creating a department", func() {
			w := do(mux, http.MethodPost, "/api/v1/departments", `{"name":"Finance","budget":1000}`)

			Convey("Then it is stored with a generated id", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				d := decode[model.Department](w)
				So(d.ID, ShouldNotBeEmpty)
				So(do(mux, http.MethodGet, "/api/v1/departments/"+d.ID, "").Code, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When a record is invalid", func() {
			w := do(mux, http.MethodPost, "/api/v1/employees", `{"name":"","email":"x"}`)

			Convey("Then every failed rule is listed", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				body := decode[errorBody](w)
				So(body.Code, ShouldEqual, "bad_request")
				So(len(body.Details), ShouldEqual, 2)
			})
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, http.MethodPost, "/api/v1/employees", `{`)

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When creating a record whose id exists", func() {
			w := do(mux, http.MethodPost, "/api/v1/departments", `{"id":"dept-hr","name":"HR"}`)

			Convey("Then it conflicts", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
			})
		})

		Convey("When updating and deleting", func() {
			put := do(mux, http.MethodPut, "/api/v1/departments/dept-hr", `{"id":"ignored","name":"People","budget":5}`)
			del := do(mux, http.MethodDelete, "/api/v1/departments/dept-hr", "")
			gone := do(mux, http.MethodGet, "/api/v1/departments/dept-hr", "")

			Convey("Then the path id wins and the record is removed", func() {
				So(put.Code, ShouldEqual, http.StatusOK)
				So(decode[model.Department](put).ID, ShouldEqual, "dept-hr")
				So(del.Code, ShouldEqual, http.StatusNoContent)
				So(gone.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When a form's weights are incomplete", func() {
			w := do(mux, http.MethodPost, "/api/v1/evaluation-forms",
				`{"name":"Quick","criteria":[{"id":"a","weight":50}]}`)

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestEvaluationRoutes(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux, svc := newTestMux()
		defer svc.Stop()

		Convey("When scores are submitted synchronously", func() {
			w := do(mux, http.MethodPost, "/api/v1/evaluations/eval-002/submit?sync=true",
				`{"scores":`+sampleScores+`}`, "Idempotency-Key", "key-1")

			Convey("Then the scored evaluation is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				res := decode[types.SubmitResult](w)
				So(res.Status, ShouldEqual, types.SubmitScored)
				So(res.SubmissionID, ShouldEqual, "key-1")
				So(res.Evaluation.OverallScore, ShouldEqual, 4.1)
			})

			Convey("And replaying the idempotency key is a duplicate", func() {
				w := do(mux, http.MethodPost, "/api/v1/evaluations/eval-002/submit",
					`{"scores":[{"criterion_id":"1","value":1}]}`, "Idempotency-Key", "key-1")
				So(w.Code, ShouldEqual, http.StatusOK)
				res := decode[types.SubmitResult](w)
				So(res.Status, ShouldEqual, types.SubmitDuplicate)
				So(res.Duplicate, ShouldBeTrue)
			})
		})

		Convey("When scores are submitted asynchronously", func() {
			w := do(mux, http.MethodPost, "/api/v1/evaluations/eval-002/submit",
				`{"submission_id":"body-id","scores":`+sampleScores+`}`, "Idempotency-Key", "header-id")

			Convey("Then they are accepted under the body id", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				res := decode[types.SubmitResult](w)
				So(res.Status, ShouldEqual, types.SubmitAccepted)
				So(res.SubmissionID, ShouldEqual, "body-id")
			})
		})

		Convey("When a submission is invalid or targets nothing", func() {
			invalid := do(mux, http.MethodPost, "/api/v1/evaluations/eval-002/submit",
				`{"scores":[{"criterion_id":"1","value":9}]}`)
			missing := do(mux, http.MethodPost, "/api/v1/evaluations/nope/submit", `{"scores":`+sampleScores+`}`)
			badSync := do(mux, http.MethodPost, "/api/v1/evaluations/eval-002/submit?sync=maybe", `{"scores":`+sampleScores+`}`)

			Convey("Then each maps to its status", func() {
				So(invalid.Code, ShouldEqual, http.StatusBadRequest)
				So(missing.Code, ShouldEqual, http.StatusNotFound)
				So(badSync.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When requesting the ranking", func() {
			w := do(mux, http.MethodGet, "/api/v1/evaluations/top", "")
			bad := do(mux, http.MethodGet, "/api/v1/evaluations/top?limit=0", "")

			Convey("Then submitted evaluations are ranked", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				top := decode[[]types.RankedEvaluation](w)
				So(len(top), ShouldEqual, 1)
				So(top[0].Rank, ShouldEqual, 1)
				So(top[0].EvaluationID, ShouldEqual, "eval-001")
				So(top[0].OverallScore, ShouldEqual, 4.1)
				So(bad.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When requesting an employee summary", func() {
			w := do(mux, http.MethodGet, "/api/v1/employees/emp-001/performance", "")

			Convey("Then the average is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				sum := decode[types.PerformanceSummary](w)
				So(sum.AverageScore, ShouldEqual, 4.1)
				So(len(sum.Evaluations), ShouldEqual, 1)
			})
		})

		Convey("When previewing a score", func() {
			w := do(mux, http.MethodPost, "/api/v1/scoring/preview",
				`{"criteria":[{"id":"1","weight":25},{"id":"2","weight":75}],"scores":[{"criterion_id":"1","value":5}]}`)

			Convey("Then the aggregator result is returned unvalidated", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode[map[string]float64](w)["overall_score"], ShouldEqual, 1.3)
			})
		})

		Convey("When a preview overflows to infinity", func() {
			w := do(mux, http.MethodPost, "/api/v1/scoring/preview",
				`{"criteria":[{"id":"1","weight":1e308}],"scores":[{"criterion_id":"1","value":5}]}`)

			Convey("Then it is a bad request with an error body", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.Len(), ShouldBeGreaterThan, 0)
				So(decode[errorBody](w).Code, ShouldEqual, "bad_request")
			})
		})

		Convey("When enrolling in trainings", func() {
			ok := do(mux, http.MethodPost, "/api/v1/trainings/trn-leadership/enroll", `{"employee_id":"emp-004"}`)
			again := do(mux, http.MethodPost, "/api/v1/trainings/trn-leadership/enroll", `{"employee_id":"emp-004"}`)
			full := do(mux, http.MethodPost, "/api/v1/trainings/trn-security/enroll", `{"employee_id":"emp-004"}`)

			Convey("Then seats are granted until conflicts", func() {
				So(ok.Code, ShouldEqual, http.StatusOK)
				So(decode[model.Training](ok).IsEnrolled("emp-004"), ShouldBeTrue)
				So(again.Code, ShouldEqual, http.StatusConflict)
				So(full.Code, ShouldEqual, http.StatusConflict)
			})
		})
	})
}

func TestRateLimit(t *testing.T) {
	Convey("Given a server limited to one request", t, func() {
		mux, svc := newTestMux(api.WithRateLimit(0.001, 1))
		defer svc.Stop()

		Convey("When two API requests arrive back to back", func() {
			first := do(mux, http.MethodGet, "/api/v1/employees", "")
			second := do(mux, http.MethodGet, "/api/v1/departments", "")

			Convey("Then the second is rejected", func() {
				So(first.Code, ShouldEqual, http.StatusOK)
				So(second.Code, ShouldEqual, http.StatusTooManyRequests)
				So(decode[errorBody](second).Code, ShouldEqual, "rate_limited")
				So(second.Header().Get("Retry-After"), ShouldEqual, "1")
			})

			Convey("And operational routes are not limited", func() {
				So(do(mux, http.MethodGet, "/healthz", "").Code, ShouldEqual, http.StatusOK)
			})
		})
	})
}

// stubDeps fails every submission with err.
type stubDeps struct {
	err error
}

func (s *stubDeps) Submit(context.Context, string, types.SubmitRequest, bool) (types.SubmitResult, error) {
	return types.SubmitResult{}, s.err
}

func (s *stubDeps) TopEvaluations(context.Context, int, string) ([]types.RankedEvaluation, error) {
	return nil, s.err
}

func (s *stubDeps) EmployeePerformance(context.Context, string) (types.PerformanceSummary, error) {
	return types.PerformanceSummary{}, s.err
}

func (s *stubDeps) Enroll(context.Context, string, string) (model.Training, error) {
	return model.Training{}, s.err
}

func (s *stubDeps) Preview([]model.Criterion, []model.Score) float64 { return 0 }

func (s *stubDeps) GetStats() map[string]interface{} { return map[string]interface{}{} }

func TestErrorMapping(t *testing.T) {
	Convey("Given dependencies that fail", t, func() {
		cases := []struct {
			err    error
			status int
			code   string
		}{
			{service.ErrBackpressure, http.StatusTooManyRequests, "backpressure"},
			{service.ErrNotRunning, http.StatusServiceUnavailable, "unavailable"},
			{service.ErrConflict, http.StatusConflict, "conflict"},
			{service.ErrNotFound, http.StatusNotFound, "not_found"},
			{errors.New("disk on fire"), http.StatusInternalServerError, "internal_error"},
		}

		Convey("Then each error kind maps to its status", func() {
			for _, tc := range cases {
				deps := &stubDeps{err: tc.err}
				mux := http.NewServeMux()
				api.NewServer(deps, deps).Register(context.Background(), mux)

				w := do(mux, http.MethodPost, "/api/v1/evaluations/e1/submit", `{"scores":[]}`)
				So(w.Code, ShouldEqual, tc.status)
				body := decode[errorBody](w)
				So(body.Code, ShouldEqual, tc.code)
			}
		})

		Convey("Then internal errors do not leak their message", func() {
			deps := &stubDeps{err: errors.New("disk on fire")}
			mux := http.NewServeMux()
			api.NewServer(deps, deps).Register(context.Background(), mux)

			w := do(mux, http.MethodGet, "/api/v1/evaluations/top", "")
			So(w.Body.String(), ShouldNotContainSubstring, "disk")
		})
	})
}
