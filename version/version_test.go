package version

import "testing"

func TestCompare(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.0", "1.0.1", -1},
		{"2.0", "1.9.9", 1},
		{"1.0", "1.0.0", 0},
		{"", "0.0.1", -1},
		{"", "", 0},
		{"2025.11.07.0", "2025.11.6.9", 1},
		{"1..2", "1.2", 0},
	}
	for _, tc := range cases {
		if got := Compare(tc.a, tc.b); got != tc.want {
			t.Errorf("Compare(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestSortReleases(t *testing.T) {
	rs := sortReleases([]Release{
		{Version: "2.0.0"},
		{Version: "1.0.0"},
		{Version: "1.5.0"},
	})
	want := []string{"1.0.0", "1.5.0", "2.0.0"}
	for i, w := range want {
		if rs[i].Version != w {
			t.Errorf("rs[%d] = %q, want %q", i, rs[i].Version, w)
		}
	}
}

func TestPending(t *testing.T) {
	if got := Pending(""); len(got) != len(Releases) {
		t.Errorf("fresh user should see all %d active releases, got %d", len(Releases), len(got))
	}
	if got := Pending(Current); len(got) != 0 {
		t.Errorf("up-to-date user should see nothing, got %v", got)
	}
	if got := Pending("2025.01.01.0"); len(got) == 0 {
		t.Error("old last-seen should produce pending releases")
	}
}

func TestCurrent(t *testing.T) {
	if Current != Releases[len(Releases)-1].Version {
		t.Errorf("Current = %q", Current)
	}
}
