package daemon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLearnerLimiter(t *testing.T) {
	l := newLearnerLimiter(2)
	defer l.close(context.Background())

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/learners/{id}/evaluate", l.wrap(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	post := func(id string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/learners/"+id+"/evaluate", nil))
		return w
	}

	for i := range 2 {
		if w := post("alice"); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, w.Code)
		}
	}

	w := post("alice")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") != "30" {
		t.Errorf("Retry-After = %q, want 30", w.Header().Get("Retry-After"))
	}

	if w := post("bob"); w.Code != http.StatusOK {
		t.Errorf("other learner status = %d, want 200", w.Code)
	}
}

func TestLearnerLimiter_Disabled(t *testing.T) {
	l := newLearnerLimiter(0)
	if l != nil {
		t.Fatal("newLearnerLimiter(0) should disable limiting")
	}

	called := false
	h := l.wrap(func(w http.ResponseWriter, r *http.Request) { called = true })
	h(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	if !called {
		t.Error("disabled limiter should pass requests through")
	}
	if err := l.close(context.Background()); err != nil {
		t.Errorf("close() error = %v", err)
	}
}
