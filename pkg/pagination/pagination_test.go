package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestFromContext_Defaults(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	p := FromContext(c)

	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected default offset 0, got %d", p.Offset)
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?limit=50&offset=10", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	p := FromContext(c)

	if p.Limit != 50 {
		t.Errorf("expected limit 50, got %d", p.Limit)
	}
	if p.Offset != 10 {
		t.Errorf("expected offset 10, got %d", p.Offset)
	}
}

func TestFromContext_MaxLimit(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?limit=500", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	p := FromContext(c)

	if p.Limit != MaxLimit {
		t.Errorf("expected limit capped at %d, got %d", MaxLimit, p.Limit)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Params
		want Params
	}{
		{"zero values", Params{}, Params{Limit: DefaultLimit, Offset: 0}},
		{"negative offset", Params{Limit: 10, Offset: -5}, Params{Limit: 10, Offset: 0}},
		{"over max", Params{Limit: 1000, Offset: 3}, Params{Limit: MaxLimit, Offset: 3}},
		{"in range", Params{Limit: 25, Offset: 50}, Params{Limit: 25, Offset: 50}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Normalize(); got != tt.want {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNewResponse_Links(t *testing.T) {
	r := NewResponse([]int{1, 2}, 25, Params{Limit: 10, Offset: 10}, "/api/v1/visits")
	if r.Count != 25 {
		t.Errorf("expected count 25, got %d", r.Count)
	}
	if r.Next == nil {
		t.Fatal("expected next link")
	}
	if *r.Next != "/api/v1/visits?limit=10&offset=20" {
		t.Errorf("unexpected next link: %s", *r.Next)
	}
	if r.Previous == nil {
		t.Fatal("expected previous link")
	}
	if *r.Previous != "/api/v1/visits?limit=10&offset=0" {
		t.Errorf("unexpected previous link: %s", *r.Previous)
	}
}

func TestNewResponse_FirstAndLastPage(t *testing.T) {
	first := NewResponse(nil, 25, Params{Limit: 10, Offset: 0}, "/api/v1/visits")
	if first.Previous != nil {
		t.Error("did not expect previous link on first page")
	}
	if first.Next == nil {
		t.Error("expected next link on first page")
	}

	last := NewResponse(nil, 25, Params{Limit: 10, Offset: 20}, "/api/v1/visits")
	if last.Next != nil {
		t.Error("did not expect next link on last page")
	}
	if last.Previous == nil {
		t.Error("expected previous link on last page")
	}
}

func TestNewResponse_NoBasePath(t *testing.T) {
	r := NewResponse(nil, 100, Params{Limit: 10, Offset: 10}, "")
	if r.Next != nil || r.Previous != nil {
		t.Error("expected null links when basePath is empty")
	}
}

func TestPreviousOffset_Clamp(t *testing.T) {
	p := Params{Limit: 10, Offset: 5}
	if got := p.PreviousOffset(); got != 0 {
		t.Errorf("PreviousOffset() = %d, want 0", got)
	}
}
