package api

type HTTPError struct {
	StatusCode int
	Message    string
	ErrorLog   error
}

func (e *HTTPError) Error() string {
	return e.Message
}

// ApiError is the failure envelope every endpoint shares.
type ApiError struct {
	Success bool   `json:"success"`
	Error   string `json:"message"`
}
