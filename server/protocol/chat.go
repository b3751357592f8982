package protocol

import "encoding/json"

// JSONText wraps a message into the JSON chat component form carried by chat
// and disconnect packets. Legacy § formatting codes survive the wrapping, so
// callers may colour messages before passing them here.
func JSONText(msg string) string {
	b, err := json.Marshal(struct {
		Text string `json:"text"`
	}{Text: msg})
	if err != nil {
		return `{"text":""}`
	}
	return string(b)
}
