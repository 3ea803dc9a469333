package entities

type ResponseStatus string

const (
	StatusSuccess ResponseStatus = "success"
	StatusError   ResponseStatus = "error"
)

// ClientResponse is the envelope of every REST response.
type ClientResponse struct {
	Status ResponseStatus `json:"status"`
	Data   interface{}    `json:"data,omitempty"`
	Error  string         `json:"error,omitempty"`
	Kind   string         `json:"kind,omitempty"`
}

func NewClientResponse(r ClientResponse) ClientResponse {
	if r.Status == "" {
		if r.Error != "" {
			r.Status = StatusError
		} else {
			r.Status = StatusSuccess
		}
	}
	return r
}
