package oracle

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchKlines(t *testing.T) {
	tt := []struct {
		name    string
		body    string
		wantLen int
		wantErr bool
	}{
		{
			name:    "parses string-encoded fields",
			body:    `[[1700000000000,"65000.10","65100.00","64900.00","65050.25","123.4"]]`,
			wantLen: 1,
		},
		{
			name:    "skips malformed rows",
			body:    `[[1700000000000],[1700000060000,"65000.10","65100.00","64900.00","65050.25","1"]]`,
			wantLen: 1,
		},
		{
			name:    "bad status is an error",
			body:    `not json`,
			wantErr: true,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tc.wantErr {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			klines, err := fetchKlines(t.Context(), srv.Client(), srv.URL)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(klines) != tc.wantLen {
				t.Fatalf("got %d klines, want %d", len(klines), tc.wantLen)
			}
		})
	}
}
