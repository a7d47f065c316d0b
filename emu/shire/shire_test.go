package shire

import "testing"

func TestBitsetSetHasClear(t *testing.T) {
	var b Bitset
	if !b.None() {
		t.Fatalf("fresh bitset should be none")
	}
	b.Set(3)
	b.Set(7)
	if !b.Has(3) || !b.Has(7) {
		t.Fatalf("expected bits 3 and 7 set")
	}
	if b.Has(4) {
		t.Errorf("bit 4 should not be set")
	}
	b.Clear(3)
	if b.Has(3) {
		t.Errorf("bit 3 should be cleared")
	}
}

func TestCoopTloadStateArriveRendezvous(t *testing.T) {
	s := CoopTloadState{}
	s.All.Set(0)
	s.All.Set(1)
	s.Pending.Set(0)
	s.Pending.Set(1)
	if s.Free() {
		t.Fatalf("entry with participants should not be free")
	}
	if s.Arrive(0) {
		t.Fatalf("rendezvous should not complete with one of two arrived")
	}
	if !s.Arrive(1) {
		t.Fatalf("rendezvous should complete once all have arrived")
	}
}

func TestCoopTloadStateReset(t *testing.T) {
	s := CoopTloadState{}
	s.All.Set(2)
	s.Pending.Set(2)
	s.Reset()
	if !s.Free() {
		t.Errorf("reset entry should be free")
	}
}

func TestCoopTloadTableClearAll(t *testing.T) {
	var tbl CoopTloadTable
	tbl.TLoadA[0][5].All.Set(1)
	tbl.TLoadB[10].All.Set(2)
	tbl.ClearAll()
	if !tbl.TLoadA[0][5].Free() || !tbl.TLoadB[10].Free() {
		t.Errorf("expected all entries free after ClearAll")
	}
}

func TestShireWarmResetClearsCoopTables(t *testing.T) {
	s := New(0, 4)
	s.OtherESRs.CoopMode = true
	s.Neighborhoods[0].Coop.TLoadA[0][0].All.Set(3)
	s.BeginWarmReset()
	if s.CoopModeEnabled() {
		t.Errorf("expected coop mode cleared by warm reset")
	}
	if !s.Neighborhoods[0].Coop.TLoadA[0][0].Free() {
		t.Errorf("expected cooperative table cleared by warm reset")
	}
}

func TestNewShireNeighborhoodCount(t *testing.T) {
	s := New(1, 4)
	if len(s.Neighborhoods) != 4 {
		t.Fatalf("expected 4 neighborhoods, got %d", len(s.Neighborhoods))
	}
	io := New(0, 1)
	if len(io.Neighborhoods) != 1 {
		t.Fatalf("expected 1 neighborhood for I/O shire, got %d", len(io.Neighborhoods))
	}
}
