package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormat(t *testing.T) {
	e := E(KindArgumentMismatch, "arguments do not match Classify")
	e.Function = "Classify"
	e.Params = []string{"msg"}
	e.Fields = []string{"msg.sender", "msg.text"}

	assert.Equal(t,
		"ARGUMENT_MISMATCH: arguments do not match Classify (function=Classify, params=msg, fields=msg.sender,msg.text)",
		e.Error())

	wrapped := &Error{Kind: KindBackendError, Message: "backend failed", Variant: "down", Cause: New("unavailable")}
	assert.Equal(t, "BACKEND_ERROR: backend failed (variant=down): unavailable", wrapped.Error())
}

func TestKindThroughWrapping(t *testing.T) {
	cause := New("provider unavailable")
	e := &Error{Kind: KindBackendError, Message: "call failed", Cause: cause}
	err := Wrap(e, "invoke")

	assert.Equal(t, KindBackendError, KindOf(err))
	assert.True(t, IsKind(err, KindBackendError))
	assert.False(t, IsKind(err, KindTimeout))
	assert.True(t, Is(err, cause))

	var fe *Error
	assert.True(t, As(fmt.Errorf("outer: %w", err), &fe))
	assert.Equal(t, "call failed", fe.Message)

	assert.Equal(t, Kind(""), KindOf(cause))
	assert.False(t, IsKind(nil, KindBackendError))
}

func TestKindClassification(t *testing.T) {
	tests := []struct {
		kind       Kind
		build      bool
		validation bool
	}{
		{KindUnknownType, true, false},
		{KindUnresolvedReference, true, false},
		{KindRecursiveDefinition, true, false},
		{KindMultipleDefaults, true, false},
		{KindInvalidVariantConfig, true, false},
		{KindRegistryClosed, true, false},
		{KindArgumentMismatch, false, true},
		{KindOutputTypeMismatch, false, true},
		{KindUnknownVariant, false, false},
		{KindTimeout, false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := E(tt.kind, "x")
			assert.Equal(t, tt.build, IsBuildError(err))
			assert.Equal(t, tt.validation, IsValidationError(err))
		})
	}
	assert.False(t, IsBuildError(New("plain")))
}

func TestHintsSurviveWrapping(t *testing.T) {
	err := Wrap(WithHint(New("invalid format"), "use text or json"), "load config")
	assert.Equal(t, "use text or json", FlattenHints(err))
}
