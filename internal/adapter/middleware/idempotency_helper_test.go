package middleware

import (
	"context"
	"strings"
	"testing"
	"time"
)

func Test_bodyHash_StableAndDistinct(t *testing.T) {
	a := bodyHash([]byte(`{"x":1}`))
	b := bodyHash([]byte(`{"x":1}`))
	c := bodyHash([]byte(`{"x":2}`))
	if a != b {
		t.Fatalf("hash not stable: %s vs %s", a, b)
	}
	if a == c {
		t.Fatal("distinct bodies hashed equal")
	}
	if len(a) != 64 {
		t.Fatalf("hash length = %d, want 64", len(a))
	}
}

func Test_nowUTC(t *testing.T) {
	if loc := nowUTC().Location(); loc != time.UTC {
		t.Fatalf("location = %v, want UTC", loc)
	}
}

func Test_buildKey(t *testing.T) {
	key := buildKey("POST", "/notes/:note_id/repay", testPrincipal, testReqID)
	want := "idemp:ax:post:/notes/:note_id/repay:" + testPrincipal + ":" + testReqID
	if key != want {
		t.Fatalf("key = %s, want %s", key, want)
	}
}

func Test_validReqID(t *testing.T) {
	cases := []struct {
		id string
		ok bool
	}{
		{"9f1c2b3a-4d5e-4f60-8a1b-2c3d4e5f6071", true}, // uuid v4
		{strings.Repeat("a", 32), true},                // 32 hex
		{strings.ToUpper(strings.Repeat("a", 32)), true}, // lowercased before matching
		{strings.Repeat("a", 31), false},
		{strings.Repeat("a", 33), false},
		{strings.Repeat("g", 32), false},
		{"", false},
	}
	for _, tc := range cases {
		if got := validReqID(tc.id); got != tc.ok {
			t.Fatalf("validReqID(%q) = %v, want %v", tc.id, got, tc.ok)
		}
	}
}

func Test_parseAxRequestAt(t *testing.T) {
	if ts, err := parseAxRequestAt("1736123456"); err != nil || ts.Unix() != 1736123456 {
		t.Fatalf("epoch seconds: ts=%v err=%v", ts, err)
	}
	if ts, err := parseAxRequestAt("1736123456789"); err != nil || ts.UnixMilli() != 1736123456789 {
		t.Fatalf("epoch millis: ts=%v err=%v", ts, err)
	}
	if ts, err := parseAxRequestAt("2026-08-30T10:00:00+07:00"); err != nil || ts.UTC().Hour() != 3 {
		t.Fatalf("rfc3339 with offset: ts=%v err=%v", ts, err)
	}
	if _, err := parseAxRequestAt("2026-08-30T10:00:00Z"); err != nil {
		t.Fatalf("rfc3339 zulu: %v", err)
	}
	if _, err := parseAxRequestAt("2026-08-30T10:00:00"); err == nil {
		t.Fatal("naive timestamp accepted")
	}
	if _, err := parseAxRequestAt(""); err == nil {
		t.Fatal("empty accepted")
	}
}

func Test_provisional_Load_SaveFinal(t *testing.T) {
	mr, rdb := newMiniredisClient(t)
	defer mr.Close()
	ctx := context.Background()

	key := buildKey("POST", "/notes/:note_id/repay", testPrincipal, testReqID)
	entry := idempEntry{
		InProgress:  true,
		BodySHA256:  bodyHash([]byte(`{}`)),
		RequestID:   testReqID,
		RequestAtMS: time.Now().UnixMilli(),
		CreatedAt:   nowUTC(),
	}

	ok, err := provisionalSet(ctx, rdb, key, entry)
	if err != nil || !ok {
		t.Fatalf("first provisionalSet ok=%v err=%v", ok, err)
	}
	// Second set on the same key loses the race.
	ok, err = provisionalSet(ctx, rdb, key, entry)
	if err != nil || ok {
		t.Fatalf("second provisionalSet ok=%v err=%v, want false", ok, err)
	}
	if ttl := mr.TTL(key); ttl <= 0 || ttl > provisionalLockTTL {
		t.Fatalf("provisional ttl = %v", ttl)
	}

	got, err := loadEntry(ctx, rdb, key)
	if err != nil {
		t.Fatalf("loadEntry: %v", err)
	}
	if !got.InProgress || got.RequestID != testReqID {
		t.Fatalf("unexpected entry: %+v", got)
	}

	final := entry
	final.InProgress = false
	final.Code = 200
	final.Body = []byte(`{"state":"repaid"}`)
	if err := saveFinal(ctx, rdb, key, final, 5*time.Minute); err != nil {
		t.Fatalf("saveFinal: %v", err)
	}
	got, err = loadEntry(ctx, rdb, key)
	if err != nil {
		t.Fatalf("loadEntry after final: %v", err)
	}
	if got.InProgress || got.Code != 200 || string(got.Body) != `{"state":"repaid"}` {
		t.Fatalf("unexpected final entry: %+v", got)
	}
	if ttl := mr.TTL(key); ttl <= 0 || ttl > 5*time.Minute {
		t.Fatalf("final ttl = %v", ttl)
	}
}
