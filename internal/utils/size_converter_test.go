package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertBytesToHumanReadable(t *testing.T) {
	assert.Equal(t, "0 B", ConvertBytesToHumanReadable(0))
	assert.Contains(t, ConvertBytesToHumanReadable(1024), "KiB")
	assert.Contains(t, ConvertBytesToHumanReadable(1024*1024), "MiB")
}

func TestConvertSpeedToHumanReadable(t *testing.T) {
	assert.Contains(t, ConvertSpeedToHumanReadable(1_500_000), "/s")
}
