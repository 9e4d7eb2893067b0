package httpserver

import (
	"net/http"
	"testing"

	"github.com/Clark-Hu/cinerate/internal/domain"
)

func TestStatusForKind(t *testing.T) {
	cases := map[domain.ErrorKind]int{
		domain.KindValidation:   http.StatusBadRequest,
		domain.KindNotFound:     http.StatusNotFound,
		domain.KindUnauthorized: http.StatusUnauthorized,
		domain.KindForbidden:    http.StatusForbidden,
		domain.KindConflict:     http.StatusConflict,
		domain.KindInternal:     http.StatusInternalServerError,
		"SOMETHING_ELSE":        http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := statusForKind(kind); got != want {
			t.Fatalf("statusForKind(%s) = %d, want %d", kind, got, want)
		}
	}
}

func TestParseLimit(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{"", 0},
		{" 5 ", 5},
		{"250", 250},
		{"0", 0},
		{"-3", 0},
		{"abc", 0},
		{"2.5", 0},
	}
	for _, c := range cases {
		if got := parseLimit(c.raw); got != c.want {
			t.Fatalf("parseLimit(%q) = %d, want %d", c.raw, got, c.want)
		}
	}
}
