package logging

import "testing"

func TestProgressSamplerSample(t *testing.T) {
	s := NewProgressSampler(25)
	var logged []int
	for i := 1; i <= 10; i++ {
		if s.Sample(i, 10) {
			logged = append(logged, i)
		}
	}
	want := []int{1, 3, 5, 8, 10}
	if len(logged) != len(want) {
		t.Fatalf("logged = %v, want %v", logged, want)
	}
	for i := range want {
		if logged[i] != want[i] {
			t.Fatalf("logged = %v, want %v", logged, want)
		}
	}
	if s.Sample(11, 10) {
		t.Fatal("counts past the total must not log again")
	}
}

func TestProgressSamplerEdges(t *testing.T) {
	tests := []struct {
		name      string
		sampler   *ProgressSampler
		processed int
		total     int
		want      bool
	}{
		{"nil sampler logs", nil, 3, 0, true},
		{"unknown total", NewProgressSampler(10), 3, 0, false},
		{"single item", NewProgressSampler(10), 1, 1, true},
		{"default step", NewProgressSampler(0), 1, 1000, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sampler.Sample(tt.processed, tt.total); got != tt.want {
				t.Fatalf("Sample(%d, %d) = %v, want %v", tt.processed, tt.total, got, tt.want)
			}
		})
	}
	if s := NewProgressSampler(-3); s.step != 5 {
		t.Fatalf("step = %v, want 5", s.step)
	}
}
