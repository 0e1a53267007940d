package notify

import (
	"context"
	"errors"
	"fmt"
)

// Kind identifies a notification channel.
type Kind string

const (
	KindEmail   Kind = "email"
	KindSlack   Kind = "slack"
	KindDiscord Kind = "discord"
)

// Status of a pipeline outcome.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusError   Status = "ERROR"
)

// Outcome is the terminal result of one pipeline run. Build it with Success
// or Failure.
type Outcome struct {
	Status Status
	Title  string
	Detail string // success payload description
	Err    error
	RunID  string
}

// Success builds a successful outcome.
func Success(title, detail string) Outcome {
	return Outcome{Status: StatusSuccess, Title: title, Detail: detail}
}

// Failure builds a failed outcome carrying err.
func Failure(title string, err error) Outcome {
	return Outcome{Status: StatusError, Title: title, Err: err}
}

// IsError reports whether the outcome is a failure.
func (o Outcome) IsError() bool {
	return o.Status == StatusError
}

// Message renders the outcome for transports.
func (o Outcome) Message() Message {
	body := o.Detail
	if o.IsError() {
		if o.Err != nil {
			body = o.Err.Error()
		}
		if o.Detail != "" {
			body = o.Detail + "\n" + body
		}
	}
	if o.RunID != "" {
		body += "\n\nRun ID: " + o.RunID
	}
	return Message{
		Status:  o.Status,
		Subject: fmt.Sprintf("[%s] %s", o.Status, o.Title),
		Body:    body,
	}
}

// Message is what a transport sends.
type Message struct {
	Status  Status
	Subject string // already tagged with [ERROR] or [SUCCESS]
	Body    string
}

// Text is the single-line form used by chat transports.
func (m Message) Text() string {
	return fmt.Sprintf("[%s] %s", m.Status, m.Body)
}

// Notifier delivers a message over one channel.
type Notifier interface {
	Kind() Kind
	Send(ctx context.Context, msg Message) error
}

// Route decides when a channel fires. A disabled route never fires.
type Route struct {
	Enabled   bool `json:"enabled"`
	OnSuccess bool `json:"on_success"`
	OnFailure bool `json:"on_failure"`
}

// Fires reports whether a channel with this route fires for the outcome.
func (r Route) Fires(isError bool) bool {
	if !r.Enabled {
		return false
	}
	if isError {
		return r.OnFailure
	}
	return r.OnSuccess
}

// TransportError wraps a channel send failure.
type TransportError struct {
	Channel Kind
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport: %v", e.Channel, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err came from a channel transport.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
