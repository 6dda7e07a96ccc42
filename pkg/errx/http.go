package errx

// HTTPErrorResponse is the wire shape of an error returned by an API route
type HTTPErrorResponse struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Type       string                 `json:"type"`
	Details    map[string]interface{} `json:"details,omitempty"`
	StatusCode int                    `json:"status_code"`
}

// ToHTTPResponse converts an Error to an HTTPErrorResponse
func (e *Error) ToHTTPResponse() HTTPErrorResponse {
	return HTTPErrorResponse{
		Code:       e.Code,
		Message:    e.Message,
		Type:       string(e.Type),
		Details:    e.Details,
		StatusCode: e.HTTPStatus,
	}
}
