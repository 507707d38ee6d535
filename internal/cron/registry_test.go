package cron

import "testing"

func TestRegistrySkipsNilJobsAndPreservesOrder(t *testing.T) {
	first := &testJob{name: "first"}
	second := &testJob{name: "second"}
	registry := NewRegistry(first, nil, second)
	registry.Register(nil)
	registry.Register(&testJob{name: "third"})

	jobs := registry.Jobs()
	if len(jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(jobs))
	}
	want := []string{"first", "second", "third"}
	for i, name := range want {
		if jobs[i].Name() != name {
			t.Fatalf("job %d: expected %q, got %q", i, name, jobs[i].Name())
		}
	}
}
