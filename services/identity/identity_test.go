package identity

import (
	"testing"

	"jfresolve/models"
)

func TestIdentifyDeterministic(t *testing.T) {
	a := Identify(models.KindMovie, "42")
	b := Identify(models.KindMovie, "42")
	if a != b {
		t.Fatalf("identify not deterministic: %s vs %s", a, b)
	}
}

func TestIdentifyKindSeparation(t *testing.T) {
	if Identify(models.KindMovie, "100") == Identify(models.KindSeries, "100") {
		t.Fatal("movie and series with the same external id must not collide")
	}
}

func TestIdentifyDistinctIDs(t *testing.T) {
	seen := make(map[ID]string)
	for _, id := range []string{"1", "2", "10", "100", "9999", "123456"} {
		got := Identify(models.KindMovie, id)
		if prev, ok := seen[got]; ok {
			t.Fatalf("collision between external ids %s and %s", prev, id)
		}
		seen[got] = id
	}
}

func TestParseRoundTrip(t *testing.T) {
	orig := Identify(models.KindSeries, "7")
	parsed, err := Parse(orig.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != orig {
		t.Fatalf("round trip mismatch: %s vs %s", parsed, orig)
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	for _, in := range []string{"", "zz", "abcd", "not-hex-at-all-not-hex-at-all-12"} {
		if _, err := Parse(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestParseCanonical(t *testing.T) {
	kind, externalID, err := ParseCanonical(Canonical(models.KindMovie, "42"))
	if err != nil {
		t.Fatalf("parse canonical: %v", err)
	}
	if kind != models.KindMovie || externalID != "42" {
		t.Fatalf("unexpected pair: %s/%s", kind, externalID)
	}
}

func TestParseCanonicalRejectsForeignStrings(t *testing.T) {
	cases := []string{
		"http://movie/42",
		"jfresolve://movie",
		"jfresolve://widget/42",
		"",
	}
	for _, in := range cases {
		if _, _, err := ParseCanonical(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestDeriveArtifactStable(t *testing.T) {
	a := DeriveArtifact(models.KindEpisode, "/lib/Foo (2020)/Season 01/Foo S01E01.strm", "https://r/1")
	b := DeriveArtifact(models.KindEpisode, "/lib/Foo (2020)/Season 01/Foo S01E01.strm", "https://r/1")
	if a != b {
		t.Fatal("artifact identity not stable")
	}
	c := DeriveArtifact(models.KindEpisode, "/lib/Foo (2020)/Season 01/Foo S01E02.strm", "https://r/1")
	if a == c {
		t.Fatal("different paths must yield different identities")
	}
}
