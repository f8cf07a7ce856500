package core

import "testing"

func TestRouteBands(t *testing.T) {
	r := NewRouter(90, 85)
	cases := []struct {
		confidence int
		want       ResolutionPath
	}{
		{100, PathAutoResolve},
		{95, PathAutoResolve},
		{90, PathAutoResolve},
		{89, PathSecondPass},
		{85, PathSecondPass},
		{84, PathManualReview},
		{50, PathManualReview},
		{0, PathManualReview},
	}
	for _, c := range cases {
		if got := r.Route(c.confidence); got != c.want {
			t.Fatalf("Route(%d) = %s, want %s", c.confidence, got, c.want)
		}
	}
}
