package page

import "testing"

func TestMatchesFilmURL(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"https://letterboxd.com/film/heat-1995/", true},
		{"https://letterboxd.com/film/", true},
		{"https://Letterboxd.com/film/heat-1995/crew/", true},
		{"http://letterboxd.com/film/heat-1995/", false},
		{"https://letterboxd.com/karlimmer/", false},
		{"https://example.com/film/heat-1995/", false},
		{"://bad", false},
	}
	for _, c := range cases {
		if got := MatchesFilmURL(c.in); got != c.want {
			t.Fatalf("MatchesFilmURL(%q)=%v，期望 %v", c.in, got, c.want)
		}
	}
}
