package passthru

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCarriesCodeAndMessage(t *testing.T) {
	err := newErr(InvalidChannelID, "no channel open with id %d", 3)
	assert.Equal(t, InvalidChannelID, err.Code())
	assert.Equal(t, "no channel open with id 3", err.Error())
}

func TestCodeOfDefaultsToFailedForForeignErrors(t *testing.T) {
	assert.Equal(t, Failed, codeOf(assertAsError("boom")))
}

func TestCodeOfNilIsSuccess(t *testing.T) {
	assert.Equal(t, Success, codeOf(nil))
}

func TestCodeStringFallsBackForUnknownValues(t *testing.T) {
	assert.Equal(t, "Code(0xFF)", Code(0xFF).String())
	assert.Equal(t, "No error", Success.String())
}

type stringError string

func (e stringError) Error() string { return string(e) }

func assertAsError(s string) error { return stringError(s) }
