package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapKeepsCodeAcrossFmtWrapping(t *testing.T) {
	cause := stdErrors.New("dial tcp: refused")
	err := Wrap(CodeNetworkFailure, cause, "connect testnet", WithMetadata("network", "testnet"))
	outer := fmt.Errorf("run task: %w", err)

	assert.True(t, HasCode(outer, CodeNetworkFailure))
	assert.False(t, HasCode(outer, CodeChainMismatch))
	assert.Equal(t, CodeNetworkFailure, CodeOf(outer))
	assert.ErrorIs(t, outer, cause)
	assert.True(t, RetryableError(outer))
	assert.Equal(t, "[NETWORK_FAILURE] connect testnet: dial tcp: refused", err.Error())

	parsed, ok := From(outer)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"network": "testnet"}, parsed.Metadata())
}

func TestDefaultsAndOverrides(t *testing.T) {
	err := New(CodeChainMismatch, "")
	assert.Equal(t, "chain id mismatch", err.Message())
	assert.Equal(t, SeverityCritical, err.Severity())
	assert.False(t, err.Retryable())

	overridden := New(CodeChainMismatch, "x", WithSeverity(SeverityInfo), WithRetryable(true))
	assert.Equal(t, SeverityInfo, overridden.Severity())
	assert.True(t, overridden.Retryable())

	assert.Equal(t, CodeUnknown, CodeOf(stdErrors.New("plain")))
	assert.Equal(t, SeverityCritical, SeverityOf(stdErrors.New("plain")))
}

func TestRegisterCustomCode(t *testing.T) {
	const code Code = "TEST_CUSTOM"
	Register(code, Attributes{Message: "custom", Severity: SeverityInfo, Retryable: true})

	assert.Contains(t, Codes(), code)
	assert.Equal(t, "custom", New(code, "").Message())
	assert.True(t, New(code, "").Retryable())
	assert.Equal(t, "unknown error", AttributesOf("NEVER_REGISTERED").Message)
}
