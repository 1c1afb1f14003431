package extensions

import (
	"testing"

	"github.com/RobsonDevCode/metascan/internal/clients/models"
	"github.com/stretchr/testify/assert"
)

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))
	assert.Equal(t, "Trojan....", TruncateString("Trojan.Win32.Generic", 10))
	assert.Equal(t, "abcdef", TruncateString("abcdef", 2))
}

func TestSortedEngines(t *testing.T) {
	result := &models.ScanResult{}
	result.ScanResults.ScanDetails = map[string]models.EngineResult{
		"Zillya": {}, "Avira": {}, "ClamAV": {},
	}
	assert.Equal(t, []string{"Avira", "ClamAV", "Zillya"}, SortedEngines(result))
}

func TestFormatDefTime(t *testing.T) {
	assert.Equal(t, "2026-10-17 00:00:00 UTC", FormatDefTime("2026-10-17T00:00:00.000Z"))
	assert.Equal(t, "2026-10-17 14:05:09 UTC", FormatDefTime("2026-10-17T14:05:09.000Z"))
	assert.Equal(t, "2026-10-17 12:30:00 UTC", FormatDefTime("2026-10-17T14:30:00+02:00"))
	assert.Equal(t, "yesterday", FormatDefTime("yesterday"))
}

func TestThreatFound(t *testing.T) {
	assert.Equal(t, "-", ThreatFound(models.EngineResult{}))
	assert.Equal(t, "Eicar", ThreatFound(models.EngineResult{ThreatFound: "Eicar"}))
}
