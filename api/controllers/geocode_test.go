package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubReverser struct {
	address string
	err     error
}

func (s stubReverser) Reverse(ctx context.Context, lat, lng float64) (string, error) {
	return s.address, s.err
}

func TestReverseGeocode(t *testing.T) {
	cases := []struct {
		name    string
		query   string
		rev     stubReverser
		status  int
		address string
	}{
		{name: "resolved", query: "?lat=18.52&lng=73.85", rev: stubReverser{address: "Pune, Maharashtra"}, status: http.StatusOK, address: "Pune, Maharashtra"},
		{name: "lookup failure is empty", query: "?lat=18.52&lng=73.85", rev: stubReverser{err: errors.New("timeout")}, status: http.StatusOK, address: ""},
		{name: "missing lat", query: "?lng=73.85", status: http.StatusBadRequest},
		{name: "out of range", query: "?lat=91&lng=0", status: http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/geocode/reverse"+tc.query, nil)
			resp := httptest.NewRecorder()
			ReverseGeocode(tc.rev, testLogger())(resp, req)

			if resp.Code != tc.status {
				t.Fatalf("expected %d got %d", tc.status, resp.Code)
			}
			if tc.status != http.StatusOK {
				return
			}
			var body map[string]string
			decodeData(t, resp, &body)
			if body["address"] != tc.address {
				t.Fatalf("expected %q got %q", tc.address, body["address"])
			}
		})
	}
}
