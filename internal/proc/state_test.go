package proc

import "testing"

func TestLegalTransitions(t *testing.T) {
	legal := []struct {
		from, to State
	}{
		{StateCreated, StateReady},
		{StateReady, StateRunning},
		{StateRunning, StateReady},
		{StateReady, StateSuspended},
		{StateReady, StateTerminated},
		{StateRunning, StateWaiting},
		{StateRunning, StateTerminated},
		{StateWaiting, StateReady},
		{StateWaiting, StateTerminated},
		{StateSuspended, StateReady},
		{StateSuspended, StateTerminated},
	}
	for _, tc := range legal {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("CanTransition(%v, %v) = false, want true", tc.from, tc.to)
		}
	}
}

func TestIllegalTransitions(t *testing.T) {
	illegal := []struct {
		from, to State
	}{
		{StateCreated, StateRunning},
		{StateCreated, StateWaiting},
		{StateCreated, StateTerminated},
		{StateReady, StateWaiting},
		{StateWaiting, StateRunning},
		{StateWaiting, StateSuspended},
		{StateSuspended, StateRunning},
		{StateTerminated, StateReady},
		{StateTerminated, StateRunning},
		{StateTerminated, StateCreated},
	}
	for _, tc := range illegal {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("CanTransition(%v, %v) = true, want false", tc.from, tc.to)
		}
	}
}

func TestTransitionLeavesStateOnFailure(t *testing.T) {
	p := &PCB{State: StateCreated}
	if p.Transition(StateRunning) {
		t.Fatal("Created -> Running should fail")
	}
	if p.State != StateCreated {
		t.Errorf("failed transition changed state to %v", p.State)
	}
	if !p.Transition(StateReady) {
		t.Fatal("Created -> Ready should succeed")
	}
	if p.State != StateReady {
		t.Errorf("state = %v, want ready", p.State)
	}
}

func TestTransitionRoundTrip(t *testing.T) {
	// A legal sequence followed by an illegal step leaves the state at the
	// last legal stop.
	p := &PCB{State: StateCreated}
	steps := []State{StateReady, StateRunning, StateWaiting, StateReady, StateRunning, StateTerminated}
	for _, s := range steps {
		if !p.Transition(s) {
			t.Fatalf("legal transition to %v failed", s)
		}
	}
	if p.Transition(StateReady) {
		t.Error("transition out of Terminated succeeded")
	}
	if p.State != StateTerminated {
		t.Errorf("state = %v, want terminated", p.State)
	}
}

func TestNilPCBQueries(t *testing.T) {
	var p *PCB
	if p.Transition(StateReady) {
		t.Error("Transition on nil PCB succeeded")
	}
	if p.IsRunnable() {
		t.Error("IsRunnable on nil PCB = true")
	}
	if p.SetAffinity([2]uint64{1, 0}) {
		t.Error("SetAffinity on nil PCB succeeded")
	}
	if p.AllowedOn(0) {
		t.Error("AllowedOn on nil PCB = true")
	}
}

func TestIsRunnable(t *testing.T) {
	p := &PCB{State: StateReady}
	if !p.IsRunnable() {
		t.Error("Ready process should be runnable")
	}
	for _, s := range []State{StateCreated, StateRunning, StateWaiting, StateSuspended, StateTerminated} {
		p.State = s
		if p.IsRunnable() {
			t.Errorf("%v process should not be runnable", s)
		}
	}
}

func TestAffinityMask(t *testing.T) {
	p := &PCB{}
	if p.SetAffinity([2]uint64{0, 0}) {
		t.Error("all-zero affinity mask accepted")
	}
	if !p.SetAffinity([2]uint64{0b110, 0}) {
		t.Fatal("SetAffinity rejected a valid mask")
	}
	if p.AllowedOn(0) {
		t.Error("core 0 should be excluded")
	}
	if !p.AllowedOn(1) || !p.AllowedOn(2) {
		t.Error("cores 1 and 2 should be included")
	}
	if p.AllowedOn(64) {
		t.Error("high word should be empty")
	}
	if !(&PCB{Affinity: [2]uint64{0, 1}}).AllowedOn(64) {
		t.Error("core 64 should map to the high word")
	}
}
