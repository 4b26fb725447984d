package helper_test

import (
	"hotel/config"
	"hotel/helper"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunner_UnknownAction(t *testing.T) {
	err := helper.Runner(&config.Config{}, "sideways")

	assert.ErrorIs(t, err, helper.ErrUnknownAction)
	assert.Contains(t, err.Error(), `"sideways"`)
}
