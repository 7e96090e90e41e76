package model

// ErrorResponse is the JSON body of every failed agent request. RetryAfter is
// set for transfers refused by the cooldown.
type ErrorResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code,omitempty"`
	RetryAfter int64  `json:"retryAfterSeconds,omitempty"`
}
