// ABOUTME: Validates a single candidate cookie against the credential table
// ABOUTME: Returns an explicit Failure value instead of an error for expected rejections

package logon

// Failure says why a candidate was rejected. Callers must not expose it to
// the end user.
type Failure int

const (
	FailureNone Failure = iota
	FailureMalformed
	FailureUnknownUser
	FailureSignatureMismatch
)

func (f Failure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureMalformed:
		return "malformed"
	case FailureUnknownUser:
		return "unknown_user"
	case FailureSignatureMismatch:
		return "signature_mismatch"
	default:
		return "unknown"
	}
}

// Validate returns the username carried by c when its signature matches the
// one derived from the user's secret and the shared secret.
func Validate(c Candidate, table CredentialTable, signer Signer, shared []byte) (string, Failure) {
	username, issueTime, signature, ok := c.fields()
	if !ok {
		return "", FailureMalformed
	}

	userSecret, ok := table.Lookup(username)
	if !ok {
		return "", FailureUnknownUser
	}

	expected := signer.Sign(username, issueTime, userSecret, shared)
	if !SignatureEqual(expected, signature) {
		return "", FailureSignatureMismatch
	}
	return username, FailureNone
}
