package steps

import "testing"

func TestImageWindowDefaults(t *testing.T) {
	w := windowFromEnv()

	cases := []struct {
		name   string
		width  int
		height int
		want   bool
	}{
		{"typical figure", 800, 600, true},
		{"at minimum", 100, 100, true},
		{"too narrow", 99, 600, false},
		{"too short", 800, 99, false},
		{"too wide", 5001, 600, false},
		{"too tall", 800, 5001, false},
	}
	for _, tc := range cases {
		if got := w.accepts(tc.width, tc.height); got != tc.want {
			t.Fatalf("%s: accepts(%d, %d) = %v, want %v", tc.name, tc.width, tc.height, got, tc.want)
		}
	}
}

func TestImageWindowAreaFloor(t *testing.T) {
	t.Setenv("MIN_IMAGE_WIDTH", "10")
	t.Setenv("MIN_IMAGE_HEIGHT", "10")
	t.Setenv("MIN_IMAGE_AREA", "500")

	w := windowFromEnv()
	if w.accepts(20, 20) {
		t.Fatal("400px area should fall below the floor")
	}
	if !w.accepts(25, 20) {
		t.Fatal("500px area should pass")
	}
}

func TestImageWindowFromEnvOverrides(t *testing.T) {
	t.Setenv("MIN_IMAGE_WIDTH", "50")
	t.Setenv("MAX_IMAGE_WIDTH", "200")

	w := windowFromEnv()
	if !w.accepts(60, 120) {
		t.Fatal("inside overridden window")
	}
	if w.accepts(250, 120) {
		t.Fatal("outside overridden max width")
	}
}
