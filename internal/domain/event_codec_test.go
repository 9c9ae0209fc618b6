package domain

import (
	"errors"
	"testing"
)

func TestEventCodec(t *testing.T) {
	in := BattleCompletedEvent{BattleID: "b1", WinnerID: "u1", LoserID: "u2", WinnerDelta: 16, LoserDelta: -16}
	raw, err := EncodeEvent(in, "node-a")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, env, err := DecodeEvent(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Source != "node-a" || env.Type != EventBattleCompleted {
		t.Fatalf("unexpected envelope %+v", env)
	}
	got, ok := out.(BattleCompletedEvent)
	if !ok || got.WinnerDelta != 16 || got.LoserID != "u2" {
		t.Fatalf("unexpected event %#v", out)
	}

	raw, err = EncodeEvent(QueueMatchedEvent{BattleID: "b2", Players: []string{"u1", "u3"}, Score: 72}, "node-b")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, _, err = DecodeEvent(raw)
	if matched, ok := out.(QueueMatchedEvent); err != nil || !ok || matched.Score != 72 || len(matched.Participants()) != 2 {
		t.Fatalf("unexpected queue match %#v err=%v", out, err)
	}

	if _, _, err := DecodeEvent([]byte(`{"type":"nope","payload":{}}`)); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected unknown type rejected, got %v", err)
	}
}
