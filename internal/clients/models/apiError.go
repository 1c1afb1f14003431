package models

// ErrorResponse is the body the service sends with every non-200 status,
// e.g. {"error":{"code":404003,"messages":["The hash was not found"]}}.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code     int      `json:"code"`
	Messages []string `json:"messages"`
}
