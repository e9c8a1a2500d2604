package ledger

// CountResponse is returned by GET /count.
type CountResponse struct {
	Count int `json:"count"`
}

// ShareResponse is returned by POST /share.
type ShareResponse struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
}

// DeleteHistoryRequest is the body of POST /delete.
type DeleteHistoryRequest struct {
	URL string `json:"url"`
}
