package logging

import (
	"bytes"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestSetDebugTogglesLevel(t *testing.T) {
	defer SetDebug(false)

	SetDebug(true)
	assert.Equal(t, logrus.DebugLevel, Logger().GetLevel())

	SetDebug(false)
	assert.Equal(t, logrus.WarnLevel, Logger().GetLevel())
}

func TestFormatterWritesSortedFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	SetDebug(true)
	defer SetDebug(false)

	Logger().WithFields(logrus.Fields{"page": 2, "count": 50}).Debug("registry page")

	out := buf.String()
	assert.Contains(t, out, "registry page")
	assert.Contains(t, out, "count=50 page=2")
	assert.Contains(t, out, "DEBUG")
}
