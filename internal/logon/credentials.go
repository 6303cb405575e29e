// ABOUTME: Username to per-user secret table loaded from the serial or htpasswd file
// ABOUTME: Source selection happens once; the table itself is reloaded on every pass

package logon

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// CredentialSource selects which file is authoritative for per-user secrets.
type CredentialSource int

const (
	SourceNone CredentialSource = iota
	SourceSerial
	SourceHtpasswd
)

func (s CredentialSource) String() string {
	switch s {
	case SourceSerial:
		return "serial"
	case SourceHtpasswd:
		return "htpasswd"
	default:
		return "none"
	}
}

// CredentialPaths names the two interchangeable credential files.
type CredentialPaths struct {
	Serials  string
	Htpasswd string
}

// Path returns the file backing src.
func (p CredentialPaths) Path(src CredentialSource) string {
	switch src {
	case SourceSerial:
		return p.Serials
	case SourceHtpasswd:
		return p.Htpasswd
	default:
		return ""
	}
}

// SelectSource picks the serial file when it exists, otherwise the htpasswd
// file. It fails when neither exists.
func SelectSource(p CredentialPaths) (CredentialSource, error) {
	if fileExists(p.Serials) {
		return SourceSerial, nil
	}
	if fileExists(p.Htpasswd) {
		return SourceHtpasswd, nil
	}
	return SourceNone, &ConfigurationError{
		Op:  fmt.Sprintf("checking %q and %q", p.Htpasswd, p.Serials),
		Err: ErrNoCredentialSource,
	}
}

// CredentialTable maps a username to its per-user secret.
type CredentialTable map[string]string

// Lookup returns the secret for username.
func (t CredentialTable) Lookup(username string) (string, bool) {
	secret, ok := t[username]
	return secret, ok
}

// LoadCredentials reads the credential file at path. Both file formats share
// the same layout so there is a single parser.
func LoadCredentials(path string) (CredentialTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ConfigurationError{Op: "opening credential file", Path: path, Err: err}
	}
	defer f.Close()

	table, err := ParseCredentials(f)
	if err != nil {
		return nil, &ConfigurationError{Op: "reading credential file", Path: path, Err: err}
	}
	return table, nil
}

// ParseCredentials parses newline-delimited "username:secret[:...]" records.
// Lines without a colon or with an empty username are skipped, anything after
// a second colon is ignored and a repeated username overwrites the earlier one.
func ParseCredentials(r io.Reader) (CredentialTable, error) {
	table := make(CredentialTable)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		username, rest, ok := strings.Cut(scanner.Text(), ":")
		if !ok || username == "" {
			continue
		}
		secret, _, _ := strings.Cut(rest, ":")
		table[username] = strings.TrimRight(secret, " \t\r\n\x00\x0b")
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return table, nil
}
