package project_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/amd-eai/airm/internal/project"
)

func TestValidateNameRejectsRestricted(t *testing.T) {
	err := project.ValidateName("catch-all")
	assert.Error(t, err)
}

func TestValidateNameRejectsTooLong(t *testing.T) {
	long := ""
	for i := 0; i < 42; i++ {
		long += "a"
	}

	err := project.ValidateName(long)
	assert.Error(t, err)
}

func TestValidateNameRejectsNonDNSLabel(t *testing.T) {
	assert.Error(t, project.ValidateName("Has_Underscore"))
	assert.Error(t, project.ValidateName("-leading-hyphen"))
}

func TestValidateNameAcceptsGoodName(t *testing.T) {
	assert.NoError(t, project.ValidateName("my-project-1"))
}
