package metering

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/public/v1/meters", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "ops@example.com" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[{"meterId":"m1","fullSerialNumber":"1ESY1161229886","type":"EASYMETER"}]`))
	})
	mux.HandleFunc("/public/v1/readings", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("meterId") != "m1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if q.Get("from") != "1580000000000" || q.Get("to") != "1580003600000" || q.Get("resolution") != "fifteen_minutes" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`[{"time":1580000000000,"values":{"energy":198360858657000,"power":2150,"power1":700}},{"time":1580000900000,"values":{"energy":198361858657000,"power":2200}}]`))
	})
	mux.HandleFunc("/public/v1/last_reading", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"time":1580003600000,"values":{"energy":198382608371000,"power":1800}}`))
	})
	mux.HandleFunc("/public/v1/disaggregation", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"1580000900000":{"Grundlast-1":50.5},"1580000000000":{"Kühlschrank-1":80}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Readings(t *testing.T) {
	srv := newTestServer(t)
	client, err := NewClient(srv.URL+"/public/v1/", "ops@example.com", "secret")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	ctx := context.Background()

	if err := client.Login(ctx); err != nil {
		t.Fatalf("login: %v", err)
	}

	readings, err := client.GetReadings(ctx, "m1", 1580000000000, 1580003600000, "fifteen_minutes")
	if err != nil {
		t.Fatalf("get readings: %v", err)
	}
	if len(readings) != 2 {
		t.Fatalf("expected 2 readings, got %d", len(readings))
	}
	if readings[0].Values["energy"].String() != "198360858657000" || readings[0].Time.UnixMilli() != 1580000000000 {
		t.Fatalf("unexpected reading: %+v", readings[0])
	}

	last, err := client.GetLastReading(ctx, "m1")
	if err != nil {
		t.Fatalf("last reading: %v", err)
	}
	if last.Values["energy"].String() != "198382608371000" {
		t.Fatalf("unexpected last reading: %+v", last)
	}

	disaggregation, err := client.GetDisaggregation(ctx, "m1", 1580000000000, 1580003600000)
	if err != nil {
		t.Fatalf("disaggregation: %v", err)
	}
	if len(disaggregation) != 2 || disaggregation[0].Appliances["Kühlschrank-1"] != 80 {
		t.Fatalf("expected time-ordered disaggregation, got %+v", disaggregation)
	}
}

func TestClient_Errors(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	bad, _ := NewClient(srv.URL+"/public/v1", "ops@example.com", "wrong")
	if err := bad.Login(ctx); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	client, _ := NewClient(srv.URL+"/public/v1", "ops@example.com", "secret")
	if _, err := client.GetReadings(ctx, "unknown", 0, 1, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := NewClient("", "", ""); err == nil {
		t.Fatalf("expected empty base url error")
	}
}
