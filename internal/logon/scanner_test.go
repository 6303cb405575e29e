package logon

import (
	"net/http"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidates_FiltersByPrefixAndShape(t *testing.T) {
	jar := cookies(
		"session", "alice:1:sig",
		"auth_site1", "alice:100:abc",
		"auth_site2", "missing-separators",
		"auth_site3", "bob:200",
		"auth_empty", "",
		"auth_site4", "carol:300:sig:with:colons",
		"xauth_site", "dave:1:sig",
	)

	got := slices.Collect(Candidates(jar, DefaultCookiePrefix))

	assert.Equal(t, []Candidate{
		{Name: "auth_site1", Value: "alice:100:abc"},
		{Name: "auth_site4", Value: "carol:300:sig:with:colons"},
	}, got)
}

func TestCandidates_Restartable(t *testing.T) {
	seq := Candidates(cookies("auth_a", "a:1:x", "auth_b", "b:2:y"), DefaultCookiePrefix)

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, first, second)
	assert.Len(t, first, 2)
}

func TestCandidates_StopsEarly(t *testing.T) {
	seq := Candidates(cookies("auth_a", "a:1:x", "auth_b", "b:2:y"), DefaultCookiePrefix)

	var seen []string
	for c := range seq {
		seen = append(seen, c.Name)
		break
	}
	assert.Equal(t, []string{"auth_a"}, seen)
}

func TestCandidate_SignatureKeepsColons(t *testing.T) {
	u, ts, sig, ok := Candidate{Value: "carol:300:a:b"}.fields()
	assert.True(t, ok)
	assert.Equal(t, "carol", u)
	assert.Equal(t, "300", ts)
	assert.Equal(t, "a:b", sig)
}

func TestRequestCookies(t *testing.T) {
	h := http.Header{}
	h.Add("Cookie", "auth_a=j%C3%B6rg:1:x; auth_b=jörg:2:y ;junk; =nameless")
	h.Add("Cookie", "auth_c=bad%zzescape:3:z")

	got := RequestCookies(h)

	require.Len(t, got, 3)
	assert.Equal(t, "auth_a", got[0].Name)
	assert.Equal(t, "jörg:1:x", got[0].Value)
	assert.Equal(t, "jörg:2:y", got[1].Value)
	assert.Equal(t, "bad%zzescape:3:z", got[2].Value, "undecodable values stay raw")
}

func TestDecodeCookieValue(t *testing.T) {
	assert.Equal(t, "a b", DecodeCookieValue("a+b"))
	assert.Equal(t, "100%", DecodeCookieValue("100%"))
	assert.Equal(t, "alice:1:abc", DecodeCookieValue("alice%3A1%3Aabc"))
}
