package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/horyu/NiconiCompare-sub000/internal/adapters/http/api"
	"github.com/horyu/NiconiCompare-sub000/internal/adapters/repository"
	service "github.com/horyu/NiconiCompare-sub000/internal/app"
	"github.com/horyu/NiconiCompare-sub000/internal/domain/model"
	"github.com/horyu/NiconiCompare-sub000/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type env struct {
	svc *service.Service
	mux *http.ServeMux
}

func newEnv() *env {
	svc := service.New(repository.NewMemoryStore())
	mux := http.NewServeMux()
	api.NewServer(svc).Register(context.Background(), mux)
	return &env{svc: svc, mux: mux}
}

func (e *env) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func decode(rec *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	So(json.Unmarshal(rec.Body.Bytes(), &out), ShouldBeNil)
	return out
}

func TestEventRoutes(t *testing.T) {
	Convey("Given the API over a fresh service", t, func() {
		e := newEnv()

		Convey("When posting a valid verdict", func() {
			rec := e.do(http.MethodPost, "/events",
				`{"currentVideoId":"sm100","opponentVideoId":"sm200","verdict":"better"}`)

			Convey("Then the envelope carries the new event id", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				out := decode(rec)
				So(out["ok"], ShouldEqual, true)
				result := out["result"].(map[string]any)
				So(result["eventId"], ShouldEqual, 1)
				So(result["categoryId"], ShouldEqual, model.DefaultCategoryID)
			})
		})

		Convey("When posting a self comparison", func() {
			rec := e.do(http.MethodPost, "/events",
				`{"currentVideoId":"sm100","opponentVideoId":"sm100","verdict":"better"}`)

			Convey("Then the request is rejected with a reason", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				out := decode(rec)
				So(out["ok"], ShouldEqual, false)
				So(out["error"], ShouldNotBeEmpty)
			})
		})

		Convey("When posting broken JSON", func() {
			rec := e.do(http.MethodPost, "/events", `{"currentVideoId":`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When using the wrong method", func() {
			rec := e.do(http.MethodGet, "/events", "")
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When cycling an event through its lifecycle", func() {
			e.do(http.MethodPost, "/events",
				`{"currentVideoId":"sm100","opponentVideoId":"sm200","verdict":"better"}`)

			rec := e.do(http.MethodPost, "/events/delete", `{"eventId":1}`)
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(decode(rec)["result"].(map[string]any)["applied"], ShouldEqual, true)

			Convey("Then a second delete reports no transition", func() {
				rec := e.do(http.MethodPost, "/events/delete", `{"eventId":1}`)
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(decode(rec)["result"].(map[string]any)["applied"], ShouldEqual, false)
			})

			Convey("Then restore and purge report their transitions", func() {
				rec := e.do(http.MethodPost, "/events/restore", `{"eventId":1}`)
				So(decode(rec)["result"].(map[string]any)["applied"], ShouldEqual, true)

				e.do(http.MethodPost, "/events/delete", `{"eventId":1}`)
				rec = e.do(http.MethodPost, "/events/purge", `{"eventId":1}`)
				So(decode(rec)["result"].(map[string]any)["applied"], ShouldEqual, true)
			})
		})

		Convey("When bulk-moving events to an unknown category", func() {
			e.do(http.MethodPost, "/events",
				`{"currentVideoId":"sm100","opponentVideoId":"sm200","verdict":"better"}`)
			rec := e.do(http.MethodPost, "/events/bulk-move",
				`{"eventIds":[1],"categoryId":"ghost"}`)
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestRatingRoutes(t *testing.T) {
	Convey("Given recorded history", t, func() {
		e := newEnv()
		e.do(http.MethodPost, "/events",
			`{"currentVideoId":"sm100","opponentVideoId":"sm200","verdict":"better"}`)
		e.do(http.MethodPost, "/events",
			`{"currentVideoId":"sm300","opponentVideoId":"sm100","verdict":"worse"}`)

		Convey("When fetching the ratings cache", func() {
			rec := e.do(http.MethodGet, "/ratings", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			result := decode(rec)["result"].(map[string]any)
			tables := result["ratings"].(map[string]any)
			So(tables, ShouldContainKey, model.DefaultCategoryID)
		})

		Convey("When fetching rankings with a limit", func() {
			rec := e.do(http.MethodGet, "/rankings?limit=2", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			entries := decode(rec)["result"].([]any)
			So(len(entries), ShouldEqual, 2)

			Convey("Then the top entry has rank 1", func() {
				first := entries[0].(map[string]any)
				So(first["rank"], ShouldEqual, 1)
				So(first["videoId"], ShouldEqual, "sm100")
			})
		})

		Convey("When the limit is not a number", func() {
			rec := e.do(http.MethodGet, "/rankings?limit=lots", "")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When triggering a rebuild", func() {
			rec := e.do(http.MethodPost, "/ratings/rebuild", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestSettingsRoutes(t *testing.T) {
	Convey("Given the API over a fresh service", t, func() {
		e := newEnv()

		Convey("When reading settings", func() {
			rec := e.do(http.MethodGet, "/settings", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			result := decode(rec)["result"].(map[string]any)
			So(result["recentWindowSize"], ShouldEqual, 10)
			So(result["activeCategoryId"], ShouldEqual, model.DefaultCategoryID)
		})

		Convey("When patching a subset of fields", func() {
			rec := e.do(http.MethodPatch, "/settings", `{"recentWindowSize":20}`)
			So(rec.Code, ShouldEqual, http.StatusOK)
			result := decode(rec)["result"].(map[string]any)
			So(result["recentWindowSize"], ShouldEqual, 20)

			Convey("Then untouched fields keep their values", func() {
				So(result["popupRecentCount"], ShouldEqual, 5)
			})
		})

		Convey("When activating an unknown category via patch", func() {
			rec := e.do(http.MethodPatch, "/settings", `{"activeCategoryId":"ghost"}`)
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestCategoryRoutes(t *testing.T) {
	Convey("Given the API over a fresh service", t, func() {
		e := newEnv()

		Convey("When creating and listing categories", func() {
			rec := e.do(http.MethodPost, "/categories", `{"name":"Music"}`)
			So(rec.Code, ShouldEqual, http.StatusOK)
			created := decode(rec)["result"].(map[string]any)
			id := created["id"].(string)

			rec = e.do(http.MethodGet, "/categories", "")
			items := decode(rec)["result"].(map[string]any)["items"].(map[string]any)
			So(items, ShouldContainKey, id)
			So(items, ShouldContainKey, model.DefaultCategoryID)

			Convey("And the new category can be activated", func() {
				rec := e.do(http.MethodPost, "/categories/activate", `{"categoryId":"`+id+`"}`)
				So(rec.Code, ShouldEqual, http.StatusOK)
			})

			Convey("And renamed", func() {
				rec := e.do(http.MethodPost, "/categories/rename",
					`{"categoryId":"`+id+`","name":"Game Music"}`)
				So(rec.Code, ShouldEqual, http.StatusOK)
			})

			Convey("And deleted with its events moved to the default", func() {
				rec := e.do(http.MethodPost, "/categories/delete",
					`{"categoryId":"`+id+`","moveTo":"default"}`)
				So(rec.Code, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When creating a category with a blank name", func() {
			rec := e.do(http.MethodPost, "/categories", `{"name":"  "}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When deleting the default category", func() {
			rec := e.do(http.MethodPost, "/categories/delete", `{"categoryId":"default"}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestArchiveRoutes(t *testing.T) {
	Convey("Given recorded history", t, func() {
		e := newEnv()
		e.do(http.MethodPost, "/events",
			`{"currentVideoId":"sm100","opponentVideoId":"sm200","verdict":"better"}`)

		Convey("When exporting and importing into a fresh instance", func() {
			rec := e.do(http.MethodGet, "/export", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			raw, err := json.Marshal(decode(rec)["result"])
			So(err, ShouldBeNil)

			fresh := newEnv()
			rec = fresh.do(http.MethodPost, "/import", string(raw))
			So(rec.Code, ShouldEqual, http.StatusOK)

			Convey("Then the imported instance serves the same rankings", func() {
				a := e.do(http.MethodGet, "/rankings", "")
				b := fresh.do(http.MethodGet, "/rankings", "")
				So(b.Body.String(), ShouldEqual, a.Body.String())
			})
		})

		Convey("When importing an archive with a newer schema", func() {
			rec := e.do(http.MethodPost, "/import", `{"schemaVersion": 99}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestOperationalRoutes(t *testing.T) {
	Convey("Given the API over a fresh service", t, func() {
		e := newEnv()

		Convey("Then healthz reports ok", func() {
			rec := e.do(http.MethodGet, "/healthz", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(decode(rec)["ok"], ShouldEqual, true)
		})

		Convey("Then stats expose snapshot counts", func() {
			e.do(http.MethodPost, "/events",
				`{"currentVideoId":"sm100","opponentVideoId":"sm200","verdict":"same"}`)
			rec := e.do(http.MethodGet, "/stats", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			result := decode(rec)["result"].(map[string]any)
			So(result["events"], ShouldEqual, 1)
			So(result["activeEvents"], ShouldEqual, 1)
		})

		Convey("Then state exposes the recent window", func() {
			e.do(http.MethodPost, "/events",
				`{"currentVideoId":"sm100","opponentVideoId":"sm200","verdict":"same"}`)
			rec := e.do(http.MethodGet, "/state", "")
			result := decode(rec)["result"].(map[string]any)
			So(result["currentVideoId"], ShouldEqual, "sm100")
		})

		Convey("Then metrics are served in Prometheus text format", func() {
			rec := e.do(http.MethodGet, "/metrics", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, "ncompare_rating")
		})
	})
}
