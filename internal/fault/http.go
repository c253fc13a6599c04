package fault

import (
	"encoding/json"
	"net/http"
)

// Response is the JSON body of every failed request.
type Response struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// ResponseFor builds the body for err. The message is the classified
// message, falling back to the kind name.
func ResponseFor(err error) Response {
	fe := As(err)
	msg := fe.Message
	if msg == "" {
		msg = fe.Kind.String()
	}
	return Response{
		Status:  fe.Kind.Status(),
		Message: msg,
		Code:    fe.Kind.Code(),
		Details: fe.Detail(),
	}
}

// WriteHTTP writes err as a JSON response.
func WriteHTTP(w http.ResponseWriter, err error) {
	resp := ResponseFor(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	json.NewEncoder(w).Encode(resp) //nolint:errcheck
}
