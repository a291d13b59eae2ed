package client

import (
	"context"
	gosync "sync"
	"testing"
)

// fakeProber drives the monitor with scripted connectivity snapshots.
type fakeProber struct {
	mu      gosync.Mutex
	initial NetStatus
	push    func(NetStatus)
}

func (f *fakeProber) Probe(context.Context) (NetStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initial, nil
}

func (f *fakeProber) Subscribe(fn func(NetStatus)) func() {
	f.mu.Lock()
	f.push = fn
	f.mu.Unlock()
	return func() {}
}

func (f *fakeProber) emit(s NetStatus) {
	f.mu.Lock()
	fn := f.push
	f.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

var (
	statusOnline     = NetStatus{Connected: true, InternetReachable: true, Type: "wifi"}
	statusNoInternet = NetStatus{Connected: true, InternetReachable: false, Type: "cellular"}
	statusOffline    = NetStatus{Type: "none"}
)

func TestNetStatus_Online(t *testing.T) {
	if !statusOnline.Online() {
		t.Error("connected and reachable must count as online")
	}
	// A captive portal looks connected but has no internet egress.
	if statusNoInternet.Online() {
		t.Error("connected without internet must count as offline")
	}
	if statusOffline.Online() {
		t.Error("disconnected must count as offline")
	}
}

func TestNetworkMonitor_InitialProbe(t *testing.T) {
	prober := &fakeProber{initial: statusOnline}
	m := NewNetworkMonitor(prober, testLogger())
	defer m.Close()

	m.Start(context.Background())
	if m.Offline() {
		t.Error("expected online after initial probe")
	}

	offline := &fakeProber{initial: statusOffline}
	m2 := NewNetworkMonitor(offline, testLogger())
	defer m2.Close()
	m2.Start(context.Background())
	if m2.Online() {
		t.Error("expected offline after initial probe")
	}
}

func TestNetworkMonitor_TransitionFiresOnChangeOnly(t *testing.T) {
	prober := &fakeProber{initial: statusOffline}
	m := NewNetworkMonitor(prober, testLogger())
	defer m.Close()

	var transitions []bool
	m.OnTransition(func(online bool) { transitions = append(transitions, online) })
	m.Start(context.Background())

	prober.emit(statusOffline)    // still offline, no callback
	prober.emit(statusOnline)     // offline -> online
	prober.emit(statusOnline)     // still online, no callback
	prober.emit(statusNoInternet) // online -> offline
	prober.emit(statusOnline)     // offline -> online

	want := []bool{true, false, true}
	if len(transitions) != len(want) {
		t.Fatalf("expected %d transitions, got %d (%v)", len(want), len(transitions), transitions)
	}
	for i, online := range want {
		if transitions[i] != online {
			t.Errorf("transition %d: expected online=%v, got %v", i, online, transitions[i])
		}
	}
	if m.Offline() {
		t.Error("expected final state online")
	}
}

func TestNetworkMonitor_AllCallbacksFire(t *testing.T) {
	prober := &fakeProber{initial: statusOffline}
	m := NewNetworkMonitor(prober, testLogger())
	defer m.Close()

	var first, second bool
	m.OnTransition(func(online bool) { first = online })
	m.OnTransition(func(online bool) { second = online })
	m.Start(context.Background())

	prober.emit(statusOnline)
	if !first || !second {
		t.Errorf("both callbacks should observe the transition: first=%v second=%v", first, second)
	}
}
