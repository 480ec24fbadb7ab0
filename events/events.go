package events

import "fmt"

type AdbEvent struct {
	Event EventType
	Item  interface{}
}

func (e AdbEvent) String() string {
	if e.Item == nil {
		return string(e.Event)
	}
	return fmt.Sprintf("%s: %v", e.Event, e.Item)
}

type EventType string

const (
	DevicesChanged    EventType = "DevicesChanged"
	SelectionChanged  EventType = "SelectionChanged"
	SelectionCleared  EventType = "SelectionCleared"
	DetailsLoaded     EventType = "DetailsLoaded"
	AppsLoaded        EventType = "AppsLoaded"
	OperationStarted  EventType = "OperationStarted"
	OperationFinished EventType = "OperationFinished"
	AdbStatus         EventType = "AdbStatus"
	ConfigChanged     EventType = "ConfigChanged"
)

// Operation is the Item of OperationStarted and OperationFinished events.
type Operation struct {
	TaskID string
	Name   string
	Device string
	// Result and Err are only set on OperationFinished.
	Result interface{}
	Err    error
}

func (o Operation) String() string {
	s := o.Name
	if o.Device != "" {
		s += " [" + o.Device + "]"
	}
	if o.Err != nil {
		s += ": " + o.Err.Error()
	}
	return s
}
