package quota

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCommandRejectsInvalidProjectID(t *testing.T) {
	cmd := newGetCommand()
	cmd.SetArgs([]string{"not-a-uuid"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
}

func TestListCommandRejectsInvalidClusterID(t *testing.T) {
	cmd := newListCommand()
	cmd.SetArgs([]string{"not-a-uuid"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
}

func TestNewQuotaWriterFormatsTabSeparatedColumns(t *testing.T) {
	var buf bytes.Buffer

	w := newQuotaWriter(&buf)
	_, _ = w.Write([]byte("A\tB\n1\t22\n"))
	require.NoError(t, w.Flush())

	out := buf.String()
	assert.Contains(t, out, "A")
	assert.Contains(t, out, "B")
	assert.Contains(t, out, "1")
	assert.Contains(t, out, "22")
}
