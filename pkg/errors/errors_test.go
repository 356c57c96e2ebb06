package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haebom/tariff/pkg/errors"
)

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"internal", errors.CodeInternal, "unexpected failure"},
		{"node not found", errors.ErrCodeNodeNotFound, "node china/x not found"},
		{"policy load", errors.ErrCodePolicyLoad, "document is not an object"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ae := errors.New(tc.code, tc.message)
			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail)
			assert.Nil(t, ae.Cause)
		})
	}
}

func TestError_Format(t *testing.T) {
	t.Parallel()

	ae := errors.New(errors.ErrCodeReferenceLoad, "entries unreadable")
	assert.Equal(t, "[LOAD_002] entries unreadable", ae.Error())

	withDetail := ae.WithDetail("hs.csv")
	assert.Equal(t, "[LOAD_002] entries unreadable: hs.csv", withDetail.Error())
	assert.Empty(t, ae.Detail, "WithDetail must not mutate the receiver")
}

func TestWrap_NilReturnsNil(t *testing.T) {
	t.Parallel()
	assert.Nil(t, errors.Wrap(nil, errors.CodeInternal, "x"))
}

func TestWrap_PreservesChain(t *testing.T) {
	t.Parallel()

	root := fmt.Errorf("disk on fire")
	wrapped := errors.Wrap(root, errors.ErrCodeSourceUnavailable, "read failed")

	assert.True(t, stderrors.Is(wrapped, root))
	assert.True(t, errors.IsCode(wrapped, errors.ErrCodeSourceUnavailable))
	assert.Contains(t, wrapped.Error(), "disk on fire")
}

func TestIsCode_NestedAppErrors(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.ErrCodePolicyLoad, "bad json")
	outer := errors.Wrap(inner, errors.CodeInternal, "reload failed")

	assert.True(t, errors.IsCode(outer, errors.ErrCodePolicyLoad))
	assert.True(t, errors.IsCode(outer, errors.CodeInternal))
	assert.False(t, errors.IsCode(outer, errors.ErrCodeFeedFetch))
	assert.False(t, errors.IsCode(fmt.Errorf("plain"), errors.CodeInternal))
}

func TestIsLoadError(t *testing.T) {
	t.Parallel()

	assert.True(t, errors.IsLoadError(errors.New(errors.ErrCodePolicyLoad, "x")))
	assert.True(t, errors.IsLoadError(errors.New(errors.ErrCodeReferenceLoad, "x")))
	assert.False(t, errors.IsLoadError(errors.NotFound("x")))
	assert.False(t, errors.IsLoadError(nil))
}

func TestGetCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, errors.ErrorCode(""), errors.GetCode(nil))
	assert.Equal(t, errors.CodeInternal, errors.GetCode(fmt.Errorf("plain")))
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(errors.NotFound("x")))
	assert.True(t, errors.IsNotFound(errors.New(errors.ErrCodeNodeNotFound, "x")))
}

func TestIs_MatchesSentinelCopies(t *testing.T) {
	sentinel := errors.New(errors.ErrCodeNewsStore, "store unavailable")
	wrapped := fmt.Errorf("ingest: %w", sentinel.WithCause(stderrors.New("dial tcp")).WithDetail("news:all"))

	assert.True(t, stderrors.Is(wrapped, sentinel))
	assert.False(t, stderrors.Is(wrapped, errors.New(errors.ErrCodeNewsStore, "other message")))
	assert.False(t, stderrors.Is(wrapped, errors.New(errors.ErrCodeFeedFetch, "store unavailable")))
}
