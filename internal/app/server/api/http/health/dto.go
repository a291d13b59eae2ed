package health

import "time"

type Input struct{}

type Output struct {
	Body HResponse
}

// HResponse doubles as the connectivity-probe payload: clients treat
// any well-formed response as proof of real internet access, so it
// identifies the service and reports the server clock.
type HResponse struct {
	Status  string    `json:"status"`
	Service string    `json:"service"`
	Time    time.Time `json:"time" format:"date-time"`
}
