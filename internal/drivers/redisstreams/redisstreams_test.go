package redisstreams

import (
	"errors"
	"testing"
)

func TestEntryTimestampMsParsesMillisecondPrefix(t *testing.T) {
	cases := map[string]int64{
		"1700000000000-0": 1700000000000,
		"0-1":             0,
		"42-7":            42,
	}
	for id, want := range cases {
		if got := entryTimestampMs(id); got != want {
			t.Errorf("entryTimestampMs(%q) = %d, want %d", id, got, want)
		}
	}
}

func TestIsBusyGroupMatchesRedisErrorPrefix(t *testing.T) {
	if !isBusyGroup(errors.New("BUSYGROUP Consumer Group name already exists")) {
		t.Error("expected BUSYGROUP error to match")
	}
	if isBusyGroup(errors.New("NOGROUP No such key")) {
		t.Error("did not expect NOGROUP error to match")
	}
	if isBusyGroup(nil) {
		t.Error("nil error must not match")
	}
}

func TestTopicNamePrefixReturnsConfigured(t *testing.T) {
	d := New("127.0.0.1:6379", "bench")
	if d.TopicNamePrefix() != "bench" {
		t.Fatalf("TopicNamePrefix() = %q, want %q", d.TopicNamePrefix(), "bench")
	}
}
