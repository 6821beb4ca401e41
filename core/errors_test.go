package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigurationError_Error(t *testing.T) {
	err := ConfigurationError{Option: "prefetch", Reason: "must be at least 1, got 0"}
	assert.Equal(t, "invalid configuration: prefetch: must be at least 1, got 0", err.Error())

	err = ConfigurationError{Reason: "bad"}
	assert.Equal(t, "invalid configuration: bad", err.Error())
}

func TestMapperError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := MapperError{Cause: cause}
	assert.Contains(t, err.Error(), "boom")
	assert.True(t, errors.Is(err, cause))
}

func TestNullItemError_Error(t *testing.T) {
	err := NullItemError{Origin: "mapper"}
	assert.Equal(t, "mapper produced a nil result", err.Error())
}

func TestOverflowError_Error(t *testing.T) {
	err := OverflowError{Source: "inner sequence"}
	assert.Contains(t, err.Error(), "more items than requested")
}

func TestAggregateError(t *testing.T) {
	e1 := errors.New("first")
	e2 := errors.New("second")
	agg := AggregateError{Causes: []error{e1, e2}}

	assert.Contains(t, agg.Error(), "2 sources failed")
	assert.Contains(t, agg.Error(), "first")
	assert.Contains(t, agg.Error(), "second")

	// errors.Is reaches every cause through Unwrap.
	assert.True(t, errors.Is(agg, e1))
	assert.True(t, errors.Is(agg, e2))

	var target AggregateError
	require.True(t, errors.As(error(agg), &target))
	assert.Len(t, target.Causes, 2)
}

func TestFusionMode_String(t *testing.T) {
	assert.Equal(t, "none", FusionNone.String())
	assert.Equal(t, "sync", FusionSync.String())
	assert.Equal(t, "async", FusionAsync.String())
	assert.Equal(t, "any", FusionAny.String())
}
