package models

// ScanResult is the report returned by both the hash lookup and the
// submission status endpoints.
type ScanResult struct {
	DataId      string      `json:"data_id"`
	FileInfo    FileInfo    `json:"file_info"`
	ScanResults ScanResults `json:"scan_results"`
}

type FileInfo struct {
	DisplayName string `json:"display_name"`
	FileSize    int64  `json:"file_size"`
	FileType    string `json:"file_type_description"`
	Sha256      string `json:"sha256"`
}

type ScanResults struct {
	ScanAllResultA     string                  `json:"scan_all_result_a"`
	ScanAllResultI     int                     `json:"scan_all_result_i"`
	ProgressPercentage int                     `json:"progress_percentage"`
	TotalAvs           int                     `json:"total_avs"`
	TotalDetectedAvs   int                     `json:"total_detected_avs"`
	StartTime          string                  `json:"start_time"`
	ScanDetails        map[string]EngineResult `json:"scan_details"`
}

type EngineResult struct {
	ThreatFound string `json:"threat_found"`
	ScanResultI int    `json:"scan_result_i"`
	DefTime     string `json:"def_time"`
	ScanTime    int    `json:"scan_time"`
}

// ScanComplete is the progress percentage the service reports once every engine has finished.
const ScanComplete = 100

func (r *ScanResult) IsComplete() bool {
	return r.ScanResults.ProgressPercentage >= ScanComplete
}
