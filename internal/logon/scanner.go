// ABOUTME: Enumerates request cookies that look like external auth cookies
// ABOUTME: Yields a restartable lazy sequence and drops values that cannot be parsed

package logon

import (
	"iter"
	"net/http"
	"net/url"
	"strings"
)

// DefaultCookiePrefix is the name prefix of cookies issued by the external
// login system.
const DefaultCookiePrefix = "auth_"

// RequestCookies parses every Cookie header in h. Unlike
// http.Request.Cookies it keeps values containing non-ASCII bytes and
// URL-decodes them, so usernames outside ASCII survive either encoding.
func RequestCookies(h http.Header) []*http.Cookie {
	var out []*http.Cookie
	for _, line := range h.Values("Cookie") {
		for _, pair := range strings.Split(line, ";") {
			name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
			name = strings.TrimSpace(name)
			if !ok || name == "" {
				continue
			}
			out = append(out, &http.Cookie{Name: name, Value: DecodeCookieValue(strings.TrimSpace(value))})
		}
	}
	return out
}

// DecodeCookieValue URL-decodes v, returning v unchanged when it is not
// valid percent-encoding.
func DecodeCookieValue(v string) string {
	decoded, err := url.QueryUnescape(v)
	if err != nil {
		return v
	}
	return decoded
}

// Candidate is an auth cookie that has not been verified yet.
type Candidate struct {
	Name  string
	Value string
}

// fields splits the value into username, issue time and signature. The
// signature keeps any further colons.
func (c Candidate) fields() (username, issueTime, signature string, ok bool) {
	parts := strings.SplitN(c.Value, ":", 3)
	if len(parts) != 3 {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

// Candidates yields the cookies whose name starts with prefix and whose value
// has the username:issueTime:signature shape. The order follows the cookie
// slice and carries no meaning.
func Candidates(cookies []*http.Cookie, prefix string) iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		for _, ck := range cookies {
			if ck == nil || !strings.HasPrefix(ck.Name, prefix) || ck.Value == "" {
				continue
			}
			c := Candidate{Name: ck.Name, Value: ck.Value}
			if _, _, _, ok := c.fields(); !ok {
				continue
			}
			if !yield(c) {
				return
			}
		}
	}
}
