package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/test", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/teapot", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	ts := httptest.NewServer(r)
	defer ts.Close()

	okBefore := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "200"))
	teapotBefore := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "418"))

	for _, path := range []string{"/test", "/teapot"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		if errInner := resp.Body.Close(); errInner != nil {
			t.Log(errInner)
		}
	}

	if val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "200")); val != okBefore+1 {
		t.Errorf("Expected httpRequestsTotal for GET /test to be %f, got %f", okBefore+1, val)
	}
	if val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "418")); val != teapotBefore+1 {
		t.Errorf("Expected httpRequestsTotal for GET /teapot to be %f, got %f", teapotBefore+1, val)
	}
	if val := testutil.CollectAndCount(httpRequestDurationSeconds); val <= 0 {
		t.Errorf("Expected httpRequestDurationSeconds to be observed, got %d", val)
	}
}

func TestMiddleware_CountsAbortedResponses(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Delete("/abort", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("["))
		panic(http.ErrAbortHandler)
	})

	ts := httptest.NewServer(r)
	defer ts.Close()

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("DELETE", "200"))

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/abort", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err == nil {
		_, _ = io.ReadAll(resp.Body)
		if errInner := resp.Body.Close(); errInner != nil {
			t.Log(errInner)
		}
	}

	deadline := time.Now().Add(time.Second)
	for testutil.ToFloat64(httpRequestsTotal.WithLabelValues("DELETE", "200")) != before+1 {
		if time.Now().After(deadline) {
			t.Fatalf("expected aborted DELETE /abort to be counted once")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestMiddleware_CountsPanicsAsServerErrors(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Put("/boom", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("PUT", "500"))

	func() {
		defer func() {
			if rec := recover(); rec != "boom" {
				t.Errorf("expected panic to propagate, got %v", rec)
			}
		}()
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/boom", nil))
	}()

	if val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("PUT", "500")); val != before+1 {
		t.Errorf("Expected httpRequestsTotal for PUT /boom to be %f, got %f", before+1, val)
	}
}
