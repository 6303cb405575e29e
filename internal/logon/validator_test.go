package logon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	table := CredentialTable{"alice": "s3cr3t"}
	shared := []byte("top")
	signer, err := NewSigner(AlgorithmHMACSHA256)
	require.NoError(t, err)

	valid := cookieValue(t, AlgorithmHMACSHA256, "alice", "100", "s3cr3t", "top")

	t.Run("valid cookie", func(t *testing.T) {
		user, failure := Validate(Candidate{Name: "auth_x", Value: valid}, table, signer, shared)
		assert.Equal(t, FailureNone, failure)
		assert.Equal(t, "alice", user)
	})

	t.Run("any flipped signature character fails", func(t *testing.T) {
		sigStart := len("alice:100:")
		for i := sigStart; i < len(valid); i++ {
			b := []byte(valid)
			if b[i] == '0' {
				b[i] = '1'
			} else {
				b[i] = '0'
			}
			user, failure := Validate(Candidate{Value: string(b)}, table, signer, shared)
			assert.Equal(t, FailureSignatureMismatch, failure, "position %d", i)
			assert.Empty(t, user)
		}
	})

	t.Run("unknown user fails even with a correct signature", func(t *testing.T) {
		v := cookieValue(t, AlgorithmHMACSHA256, "mallory", "100", "s3cr3t", "top")
		user, failure := Validate(Candidate{Value: v}, table, signer, shared)
		assert.Equal(t, FailureUnknownUser, failure)
		assert.Empty(t, user)
	})

	t.Run("forged issue time fails", func(t *testing.T) {
		sig := signer.Sign("alice", "100", "s3cr3t", shared)
		_, failure := Validate(Candidate{Value: "alice:999:" + sig}, table, signer, shared)
		assert.Equal(t, FailureSignatureMismatch, failure)
	})

	t.Run("malformed", func(t *testing.T) {
		_, failure := Validate(Candidate{Value: "alice"}, table, signer, shared)
		assert.Equal(t, FailureMalformed, failure)
	})
}

func TestFailure_String(t *testing.T) {
	assert.Equal(t, "unknown_user", FailureUnknownUser.String())
	assert.Equal(t, "signature_mismatch", FailureSignatureMismatch.String())
	assert.Equal(t, "malformed", FailureMalformed.String())
	assert.Equal(t, "none", FailureNone.String())
}
