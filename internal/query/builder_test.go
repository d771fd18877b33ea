package query

import (
	"net/url"
	"testing"
)

var roomSort = map[string]string{
	"price":       "price_per_night",
	"room_number": "room_number",
	"capacity":    "capacity",
}

func TestParseOrder(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"empty uses default", "", "room_number ASC", false},
		{"single asc implied", "price", "price_per_night ASC", false},
		{"single desc", "price desc", "price_per_night DESC", false},
		{"multiple", "capacity DESC, room_number", "capacity DESC, room_number ASC", false},
		{"case insensitive key", "PRICE asc", "price_per_night ASC", false},
		{"unknown column", "password_hash", "", true},
		{"bad direction", "price sideways", "", true},
		{"too many tokens", "price desc nulls", "", true},
		{"injection", "price;drop", "", true},
		{"only commas", " , ", "room_number ASC", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOrder(tt.input, roomSort, "room_number ASC")
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParsePage(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", DefaultLimit, 0},
		{"explicit", "limit=10&offset=20", 10, 20},
		{"limit clamped high", "limit=5000", MaxLimit, 0},
		{"limit clamped low", "limit=0", 1, 0},
		{"negative offset ignored", "offset=-5", DefaultLimit, 0},
		{"garbage ignored", "limit=abc&offset=xyz", DefaultLimit, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, _ := url.ParseQuery(tt.query)
			p := ParsePage(v)
			if p.Limit != tt.wantLimit || p.Offset != tt.wantOffset {
				t.Errorf("got %+v, want limit=%d offset=%d", p, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

func TestPageSQL(t *testing.T) {
	p := Page{Limit: 25, Offset: 50}
	if got := p.SQL(); got != " LIMIT 25 OFFSET 50" {
		t.Errorf("SQL() = %q", got)
	}
}
