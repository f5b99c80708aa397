package proto

import "testing"

func TestPayloadLenKnownMagics(t *testing.T) {
	cases := []struct {
		m    Magic
		want int
	}{
		{PairReq, 3},
		{PairSyn, 3},
		{PairAck, 0},
		{PairFin, PairFinLen},
		{PairRst, 0},
		{EnabFeat, 72},
		{UnlockReq, 0},
		{UnlockChal, 72},
		{UnlockResp, 72},
		{UnlockGood, 0},
		{UnlockFeat, 192},
		{UnlockRst, 0},
		{HostSuccess, 0},
		{HostFailure, 0},
	}

	for _, c := range cases {
		got, ok := PayloadLen(c.m)
		if !ok {
			t.Errorf("magic 0x%02x: expected known", byte(c.m))
			continue
		}
		if got != c.want {
			t.Errorf("magic 0x%02x: got len %d want %d", byte(c.m), got, c.want)
		}
	}
}

func TestPayloadLenUnknownMagic(t *testing.T) {
	if _, ok := PayloadLen(Magic(0x00)); ok {
		t.Fatal("expected 0x00 to be unrecognised")
	}
}
