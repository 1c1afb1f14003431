package extensions

import (
	"slices"
	"time"

	"github.com/RobsonDevCode/metascan/internal/clients/models"
)

// SortedEngines returns the engine names of the report in alphabetical order.
func SortedEngines(result *models.ScanResult) []string {
	engines := make([]string, 0, len(result.ScanResults.ScanDetails))
	for engine := range result.ScanResults.ScanDetails {
		engines = append(engines, engine)
	}
	slices.Sort(engines)
	return engines
}

func ThreatFound(engine models.EngineResult) string {
	if engine.ThreatFound == "" {
		return "-"
	}
	return engine.ThreatFound
}

// FormatDefTime renders the service's RFC 3339 timestamps as UTC date and
// time, leaving anything unparsable untouched.
func FormatDefTime(defTime string) string {
	parsed, err := time.Parse(time.RFC3339, defTime)
	if err != nil {
		return defTime
	}
	return parsed.UTC().Format(time.DateTime) + " UTC"
}

func IsClean(result *models.ScanResult) bool {
	return result.ScanResults.ScanAllResultI == 0
}
