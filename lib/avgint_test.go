package lib

import "testing"

func TestRunningStat(t *testing.T) {
	rs := &RunningStat{}
	for _, v := range []int64{10, 20, 30, 40} {
		rs.Add(v)
	}
	if x := rs.Samples(); x != 4 {
		t.Errorf("expected 4 samples, got %v", x)
	} else if x := rs.Min(); x != 10 {
		t.Errorf("expected min 10, got %v", x)
	} else if x := rs.Max(); x != 40 {
		t.Errorf("expected max 40, got %v", x)
	} else if x := rs.Mean(); x != 25 {
		t.Errorf("expected mean 25, got %v", x)
	}
}

func TestRunningStatClone(t *testing.T) {
	rs := &RunningStat{}
	rs.Add(5)
	cp := rs.Clone()
	rs.Add(15)
	if cp.Samples() != 1 || cp.Mean() != 5 {
		t.Errorf("clone should not observe later Add calls")
	}
}
