package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"

	httpctrl "safetyrag/internal/controller/http"
	"safetyrag/internal/domain"
	"safetyrag/internal/embedding/tfidf"
	"safetyrag/internal/service"
	"safetyrag/internal/vectorstore/memory"
)

type fakeUseCase struct {
	cases    []domain.AccidentCase
	initErr  error
	queryErr error
	lastK    int
	lastQ    domain.SimilarityQuery
	block    bool
}

func (f *fakeUseCase) Initialize(ctx context.Context) error { return f.initErr }

func (f *fakeUseCase) FindSimilarCases(ctx context.Context, q domain.SimilarityQuery, k int) (domain.RankedResult, error) {
	f.lastK, f.lastQ = k, q
	if f.block {
		<-ctx.Done()
		return nil, goerr.Wrap(ctx.Err(), "canceled while waiting for initialization")
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	res := domain.RankedResult{}
	for i, c := range f.cases {
		if i == k {
			break
		}
		res = append(res, domain.ScoredCase{Case: c, Distance: float64(i)})
	}
	return res, nil
}

func (f *fakeUseCase) GetCaseByID(id int) (domain.AccidentCase, bool) {
	for _, c := range f.cases {
		if c.ID == id {
			return c, true
		}
	}
	return domain.AccidentCase{}, false
}

func (f *fakeUseCase) State() service.State { return service.StateReady }
func (f *fakeUseCase) Len() int             { return len(f.cases) }

func threeCases() []domain.AccidentCase {
	return []domain.AccidentCase{
		{ID: 1, Title: "센서 교체시 감전사고", Severity: domain.SeveritySevere},
		{ID: 2, Title: "센서 교체시 밀폐공간 질식사고"},
		{ID: 3, Title: "조명 교체 중 사다리 추락"},
	}
}

func do(t *testing.T, srv http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestSimilarCases(t *testing.T) {
	uc := &fakeUseCase{cases: threeCases()}
	srv := httpctrl.New(uc)

	rec := do(t, srv, http.MethodPost, "/api/accident-cases/similar",
		`{"workTypes":["전기작업"],"workName":"센서 교체 작업","workDescription":"","equipmentName":"온도센서"}`)
	gt.Value(t, rec.Code).Equal(http.StatusOK)
	gt.Value(t, rec.Header().Get("Content-Type")).Equal("application/json")

	var got []map[string]any
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got)).Required()
	gt.Array(t, got).Length(2).Required()
	gt.Value(t, got[0]["사고명"]).Equal("센서 교체시 감전사고")
	gt.Value(t, got[0]["재해정도"]).Equal("중대재해")
	gt.Value(t, got[0]["id"]).Equal(float64(1))

	gt.Value(t, uc.lastK).Equal(service.DefaultK)
	gt.Value(t, uc.lastQ.EquipmentName).Equal("온도센서")
}

func TestSimilarCasesLimit(t *testing.T) {
	testCases := map[string]struct {
		body  string
		wantK int
	}{
		"explicit":  {body: `{"workTypes":["a"],"limit":3}`, wantK: 3},
		"below one": {body: `{"workTypes":["a"],"limit":0}`, wantK: 1},
		"above max": {body: `{"workTypes":["a"],"limit":500}`, wantK: 5},
		"no limit":  {body: `{"workTypes":["a"]}`, wantK: 2},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			uc := &fakeUseCase{cases: threeCases()}
			srv := httpctrl.New(uc, httpctrl.WithSearchLimits(2, 5))

			rec := do(t, srv, http.MethodPost, "/api/accident-cases/similar", tc.body)
			gt.Value(t, rec.Code).Equal(http.StatusOK)
			gt.Value(t, uc.lastK).Equal(tc.wantK)
		})
	}
}

func TestSimilarCasesBadRequest(t *testing.T) {
	testCases := map[string]string{
		"missing workTypes":   `{"workName":"x"}`,
		"workTypes not array": `{"workTypes":"전기작업"}`,
		"empty workTypes":     `{"workTypes":[]}`,
		"blank workTypes":     `{"workTypes":["  "]}`,
		"malformed json":      `{"workTypes":`,
	}
	for name, body := range testCases {
		t.Run(name, func(t *testing.T) {
			rec := do(t, httpctrl.New(&fakeUseCase{cases: threeCases()}), http.MethodPost, "/api/accident-cases/similar", body)
			gt.Value(t, rec.Code).Equal(http.StatusBadRequest)
			gt.String(t, rec.Body.String()).Contains(`"error"`)
		})
	}
}

func TestSimilarCasesFailureIsGeneric(t *testing.T) {
	uc := &fakeUseCase{queryErr: goerr.Wrap(domain.ErrEmbedding, "quota exceeded", goerr.V("status", 429))}
	rec := do(t, httpctrl.New(uc), http.MethodPost, "/api/accident-cases/similar", `{"workTypes":["a"]}`)

	gt.Value(t, rec.Code).Equal(http.StatusInternalServerError)
	var body map[string]string
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body)).Required()
	gt.Value(t, body["error"]).Equal("internal server error")
}

func TestSimilarCasesTimeout(t *testing.T) {
	uc := &fakeUseCase{block: true}
	srv := httpctrl.New(uc, httpctrl.WithQueryTimeout(20*time.Millisecond))

	rec := do(t, srv, http.MethodPost, "/api/accident-cases/similar", `{"workTypes":["a"]}`)
	gt.Value(t, rec.Code).Equal(http.StatusInternalServerError)
}

func TestCaseByID(t *testing.T) {
	srv := httpctrl.New(&fakeUseCase{cases: threeCases()})

	rec := do(t, srv, http.MethodGet, "/api/accident-cases/2", "")
	gt.Value(t, rec.Code).Equal(http.StatusOK)
	var got domain.AccidentCase
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got)).Required()
	gt.Value(t, got.Title).Equal("센서 교체시 밀폐공간 질식사고")

	gt.Value(t, do(t, srv, http.MethodGet, "/api/accident-cases/999", "").Code).Equal(http.StatusNotFound)
	gt.Value(t, do(t, srv, http.MethodGet, "/api/accident-cases/abc", "").Code).Equal(http.StatusBadRequest)
	gt.Value(t, do(t, srv, http.MethodGet, "/api/accident-cases/-3", "").Code).Equal(http.StatusBadRequest)
}

func TestCaseByIDInitFailure(t *testing.T) {
	uc := &fakeUseCase{initErr: goerr.Wrap(domain.ErrLoad, "missing workbook")}
	rec := do(t, httpctrl.New(uc), http.MethodGet, "/api/accident-cases/1", "")
	gt.Value(t, rec.Code).Equal(http.StatusInternalServerError)
}

func TestStatus(t *testing.T) {
	rec := do(t, httpctrl.New(&fakeUseCase{cases: threeCases()}), http.MethodGet, "/api/accident-cases/status", "")
	gt.Value(t, rec.Code).Equal(http.StatusOK)

	var got map[string]any
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got)).Required()
	gt.Value(t, got["state"]).Equal("ready")
	gt.Value(t, got["cases"]).Equal(float64(3))
}

type sliceLoader []domain.AccidentCase

func (l sliceLoader) Load(ctx context.Context, path string) ([]domain.AccidentCase, error) {
	return l, nil
}

func TestWithSimilarityService(t *testing.T) {
	cases := []domain.AccidentCase{
		{ID: 1, WorkType: "전기작업", Equipment: "온도센서", Title: "센서 교체시 감전사고"},
		{ID: 2, WorkType: "밀폐공간작업", Equipment: "수위센서", Title: "센서 교체시 밀폐공간 질식사고"},
		{ID: 3, WorkType: "고소작업", Equipment: "조명등", Title: "조명 교체 중 사다리 추락"},
	}
	svc := service.NewSimilarityService(sliceLoader(cases), tfidf.NewEmbedder(), memory.NewIndex(), "cases.xlsx")
	srv := httpctrl.New(svc)

	rec := do(t, srv, http.MethodGet, "/api/accident-cases/status", "")
	gt.String(t, rec.Body.String()).Contains(`"uninitialized"`)

	rec = do(t, srv, http.MethodPost, "/api/accident-cases/similar", `{"workTypes":["전기작업"],"workName":"센서 교체 작업"}`)
	gt.Value(t, rec.Code).Equal(http.StatusOK)
	var got []domain.AccidentCase
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got)).Required()
	gt.Array(t, got).Length(2).Required()
	gt.Value(t, got[0].ID).Equal(1)

	rec = do(t, srv, http.MethodGet, "/api/accident-cases/status", "")
	gt.String(t, rec.Body.String()).Contains(`"ready"`)
}
