package tree

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/treestore/internal/treepath"
)

func TestError_MatchesSentinels(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		sentinel error
		is       func(error) bool
	}{
		{CodeInvalidPath, ErrInvalidPath, IsInvalidPath},
		{CodeNotFound, ErrNotFound, IsNotFound},
		{CodeParentNotFound, ErrParentNotFound, IsParentNotFound},
		{CodeRootProtected, ErrRootProtected, IsRootProtected},
		{CodeInvalidPayload, ErrInvalidPayload, IsInvalidPayload},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", newError(tt.code, "/x/", nil))

			assert.True(t, errors.Is(err, tt.sentinel))
			assert.True(t, tt.is(err))
			assert.Equal(t, tt.code, CodeOf(err))
		})
	}
}

func TestError_Message(t *testing.T) {
	assert.Equal(t, "NOT_FOUND: node not found (path=/x/)", newError(CodeNotFound, "/x/", nil).Error())
	assert.Equal(t, "ROOT_PROTECTED: root node cannot be deleted", (&Error{Code: CodeRootProtected}).Error())

	cause := errors.New("field size: conflicting values")
	err := newError(CodeInvalidPayload, "/x/", cause)
	assert.Equal(t, "INVALID_PAYLOAD: field size: conflicting values (path=/x/)", err.Error())
	assert.True(t, errors.Is(err, cause))

	withMsg := &Error{Code: CodeParentNotFound, Path: "/a/b/", Message: "parent /a/ does not exist"}
	assert.Equal(t, "PARENT_NOT_FOUND: parent /a/ does not exist (path=/a/b/)", withMsg.Error())
}

func TestError_InvalidPathKeepsCause(t *testing.T) {
	_, cause := treepath.Collapse("/..", "/")
	err := newError(CodeInvalidPath, "/..", cause)

	assert.True(t, IsInvalidPath(err))
	assert.Contains(t, err.Error(), "escapes the root")
}

func TestCodeOf_PlainError(t *testing.T) {
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
	assert.False(t, IsNotFound(errors.New("plain")))
}
