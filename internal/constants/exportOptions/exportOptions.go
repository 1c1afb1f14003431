package exportOptions

const (
	Yes = "Yes"
	No  = "No"
)

var ExcelOptions = []string{Yes, No}
