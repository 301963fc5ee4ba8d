// Package testdata builds raw capture-shaped event messages for tests.
package testdata

import (
	"github.com/tidwall/sjson"
)

var base = []byte(`{"uuid":"0f7e3b9d-6f1a-4f7e-9a2b-1c9d1e8f0a11","event":"$pageview","distinct_id":"user-1","team_id":1,"timestamp":"2024-03-29T14:23:50+11:00","properties":{}}`)

// Event returns a raw queue message for one analytics event.
func Event(teamID int64, name string, properties map[string]any) []byte {
	msg, _ := sjson.SetBytes(base, "team_id", teamID)
	msg, _ = sjson.SetBytes(msg, "event", name)
	if properties != nil {
		msg, _ = sjson.SetBytes(msg, "properties", properties)
	}
	return msg
}
