package types

import (
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// Event is a parsed queue message: one analytics event with its properties.
type Event struct {
	TeamID           int64
	Name             string
	Properties       map[string]any
	PersonProperties map[string]any
}

// property keys that carry person/group bookkeeping rather than event data
var skippedEventProperties = map[string]struct{}{
	"$set":             {},
	"$set_once":        {},
	"$unset":           {},
	"$group_0":         {},
	"$group_1":         {},
	"$group_2":         {},
	"$group_3":         {},
	"$group_4":         {},
	"$groups":          {},
	"$performance_raw": {},
	"$elements":        {},
}

// MessageToEvent parses a raw queue message into an Event. Malformed or
// uninteresting messages yield (nil, false) and are not an error.
func MessageToEvent(raw []byte) (*Event, bool) {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return nil, false
	}
	name := gjson.GetBytes(raw, "event")
	team := gjson.GetBytes(raw, "team_id")
	if !name.Exists() || name.Str == "" || !team.Exists() || team.Int() <= 0 {
		return nil, false
	}

	ev := &Event{
		TeamID: team.Int(),
		Name:   name.Str,
	}

	// the capture envelope carries properties either inline or as a
	// stringified JSON object
	props := gjson.GetBytes(raw, "properties")
	var propBytes []byte
	switch {
	case props.IsObject():
		propBytes = []byte(props.Raw)
	case props.Type == gjson.String:
		propBytes = []byte(props.Str)
	}
	if len(propBytes) > 0 {
		if err := json.Unmarshal(propBytes, &ev.Properties); err != nil {
			return nil, false
		}
	}

	ev.PersonProperties = map[string]any{}
	for _, key := range []string{"$set", "$set_once"} {
		if set, ok := ev.Properties[key].(map[string]any); ok {
			for k, v := range set {
				if _, seen := ev.PersonProperties[k]; !seen {
					ev.PersonProperties[k] = v
				}
			}
		}
	}
	return ev, true
}

// IntoUpdates derives the definition updates implied by the event. An event
// that would contribute more than skipThreshold updates contributes none at
// all, so one malformed event cannot flood the pipeline.
func (e *Event) IntoUpdates(skipThreshold int) []Update {
	updates := e.intoUpdatesInner()
	if len(updates) > skipThreshold {
		return nil
	}
	return updates
}

func (e *Event) intoUpdatesInner() []Update {
	updates := make([]Update, 0, 1+2*len(e.Properties)+len(e.PersonProperties))

	updates = append(updates, Update{
		Kind:   KindEvent,
		TeamID: e.TeamID,
		Event:  e.Name,
	})

	for name, value := range e.Properties {
		if _, skip := skippedEventProperties[name]; skip {
			continue
		}
		valueType := DetectPropertyType(name, value)
		updates = append(updates,
			Update{
				Kind:        KindProperty,
				TeamID:      e.TeamID,
				Property:    name,
				Parent:      ParentEvent,
				ValueType:   valueType,
				IsNumerical: valueType == TypeNumeric,
			},
			Update{
				Kind:     KindEventProperty,
				TeamID:   e.TeamID,
				Event:    e.Name,
				Property: name,
			},
		)
	}

	for name, value := range e.PersonProperties {
		valueType := DetectPropertyType(name, value)
		updates = append(updates, Update{
			Kind:        KindProperty,
			TeamID:      e.TeamID,
			Property:    name,
			Parent:      ParentPerson,
			ValueType:   valueType,
			IsNumerical: valueType == TypeNumeric,
		})
	}
	return updates
}

// property names that always hold a timestamp
var dateTimeProperties = map[string]struct{}{
	"$time":      {},
	"$timestamp": {},
	"$sent_at":   {},
	"time":       {},
	"timestamp":  {},
	"sent_at":    {},
	"created_at": {},
	"paid_at":    {},
}

// DetectPropertyType infers a value type for a property, returning "" when
// nothing sensible can be said (objects, arrays, nulls).
func DetectPropertyType(name string, value any) PropertyValueType {
	// campaign params are always strings, even when they look numeric
	if strings.HasPrefix(name, "utm_") {
		return TypeString
	}
	// feature flag payloads are stringly typed
	if strings.HasPrefix(name, "$feature/") {
		return TypeString
	}
	if _, ok := dateTimeProperties[strings.ToLower(name)]; ok {
		return TypeDateTime
	}

	switch v := value.(type) {
	case bool:
		return TypeBoolean
	case float64, int, int64:
		return TypeNumeric
	case string:
		s := strings.TrimSpace(v)
		if strings.EqualFold(s, "true") || strings.EqualFold(s, "false") {
			return TypeBoolean
		}
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			return TypeNumeric
		}
		if looksLikeTimestamp(s) {
			return TypeDateTime
		}
		return TypeString
	default:
		return ""
	}
}

var timestampLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func looksLikeTimestamp(s string) bool {
	for _, layout := range timestampLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
