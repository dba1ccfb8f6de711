package router

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type codedErr struct{}

func (codedErr) Error() string { return "coded" }
func (codedErr) Code() string  { return "stale payload" }

type plainErr struct{}

func (*plainErr) Error() string { return "plain" }

func TestDeriveErrorCode(t *testing.T) {
	assert.Equal(t, "", deriveErrorCode(nil))
	assert.Equal(t, "STALE_PAYLOAD", deriveErrorCode(codedErr{}))
	assert.Equal(t, "STALE_PAYLOAD", deriveErrorCode(fmt.Errorf("wrap: %w", codedErr{})))
	assert.Equal(t, "PLAINERR", deriveErrorCode(&plainErr{}))
	assert.Equal(t, "ERRORSTRING", deriveErrorCode(errors.New("x")))
}

func TestNormalizeHandlerName(t *testing.T) {
	assert.Equal(t, "search", normalizeHandlerName("/Search"))
	assert.Equal(t, "unknown", normalizeHandlerName("  "))
	assert.Equal(t, "a_b", normalizeHandlerName("a b"))
}
