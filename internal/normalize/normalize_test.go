package normalize

import "testing"

func TestNormalize_Idempotent(t *testing.T) {
	urls := []string{
		"https://www.youtube.com/watch?v=abc123&utm_source=share",
		"HTTPS://Example.COM:443/Path/?b=2&a=1",
		"not a url at all",
		"https://ex.com/a?utm_campaign=s",
	}
	for _, u := range urls {
		once := Normalize(u)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize(%q) = %q, Normalize(that) = %q; want idempotent", u, once, twice)
		}
	}
}

func TestNormalize_YouTubeVideosDistinct(t *testing.T) {
	a := Normalize("https://www.youtube.com/watch?v=abc123")
	b := Normalize("https://www.youtube.com/watch?v=xyz789")
	if a == b {
		t.Fatalf("distinct videos collapsed to the same key: %q", a)
	}
}

func TestNormalize_TrackingParamsCollapse(t *testing.T) {
	base := Normalize("https://ex.com/a")
	withTracking := Normalize("https://ex.com/a?utm_source=t&fbclid=x")
	withCampaign := Normalize("https://ex.com/a?utm_campaign=s")
	if base != withTracking {
		t.Fatalf("tracking params not stripped: %q vs %q", base, withTracking)
	}
	if base != withCampaign {
		t.Fatalf("tracking params not stripped: %q vs %q", base, withCampaign)
	}
}

func TestNormalize_GoogleSearchDistinct(t *testing.T) {
	a := Normalize("https://www.google.com/search?q=cats")
	b := Normalize("https://www.google.com/search?q=dogs")
	if a == b {
		t.Fatalf("distinct search results collapsed to the same key: %q", a)
	}
}

func TestNormalize_StripsFragmentAndDefaultPort(t *testing.T) {
	got := Normalize("https://example.com:443/path#section")
	if got != "https://example.com/path" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalize_TrailingSlashStrippedExceptRoot(t *testing.T) {
	if got := Normalize("https://example.com/path/"); got != "https://example.com/path" {
		t.Fatalf("got %q", got)
	}
	if got := Normalize("https://example.com/"); got != "https://example.com/" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalize_InvalidURLReturnsLowercasedInput(t *testing.T) {
	got := Normalize("Not A Valid URL \x7f")
	if got != "not a valid url \x7f" {
		t.Fatalf("got %q", got)
	}
}

func TestDomain_StripsWWWAndLowercases(t *testing.T) {
	if got := Domain("https://WWW.Example.COM/x"); got != "example.com" {
		t.Fatalf("got %q", got)
	}
}

func TestDomain_InvalidURLReturnsEmpty(t *testing.T) {
	if got := Domain("::not a url::"); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}
