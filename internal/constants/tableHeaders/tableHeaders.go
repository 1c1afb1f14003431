package tableHeaders

var EngineTableHeaders = []string{"Engine", "Threat Found", "Scan Result", "Definitions", "Scan Time (ms)"}

var ExcelEngineTableHeaders = []string{"File", "Sha256", "Overall Verdict", "Engine", "Threat Found", "Scan Result", "Definitions", "Scan Time (ms)"}
