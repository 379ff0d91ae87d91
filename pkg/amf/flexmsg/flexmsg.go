// Package flexmsg provides the flex.messaging.messages vocabulary
// carried inside NetConnection packets: typed RPC envelopes with UUID
// message identity, expressed as class definitions for the codec's
// type mapper.
package flexmsg

import (
	"time"

	"github.com/google/uuid"

	"github.com/limscoder/amfast/pkg/amf"
)

// Message aliases.
const (
	RemotingMessageAlias    = "flex.messaging.messages.RemotingMessage"
	AsyncMessageAlias       = "flex.messaging.messages.AsyncMessage"
	AcknowledgeMessageAlias = "flex.messaging.messages.AcknowledgeMessage"
	CommandMessageAlias     = "flex.messaging.messages.CommandMessage"
	ErrorMessageAlias       = "flex.messaging.messages.ErrorMessage"
)

// CommandMessage operations.
const (
	OperationSubscribe    = 0
	OperationUnsubscribe  = 1
	OperationPoll         = 2
	OperationClientSync   = 4
	OperationClientPing   = 5
	OperationClusterReq   = 7
	OperationLoginOp      = 8
	OperationLogoutOp     = 9
	OperationUnknown      = 10000
)

// AbstractMessage carries the attributes every Flex message shares.
type AbstractMessage struct {
	Body        any            `amf:"body"`
	ClientID    any            `amf:"clientId"`
	Destination string         `amf:"destination"`
	Headers     map[string]any `amf:"headers"`
	MessageID   string         `amf:"messageId"`
	Timestamp   float64        `amf:"timestamp"`
	TimeToLive  float64        `amf:"timeToLive"`
}

var abstractAttrs = []string{
	"body", "clientId", "destination", "headers",
	"messageId", "timestamp", "timeToLive",
}

// RemotingMessage invokes a method on a remote service destination.
type RemotingMessage struct {
	AbstractMessage
	Operation string `amf:"operation"`
	Source    string `amf:"source"`
}

// AsyncMessage is the base of correlated responses.
type AsyncMessage struct {
	AbstractMessage
	CorrelationID string `amf:"correlationId"`
}

// AcknowledgeMessage answers a request message.
type AcknowledgeMessage struct {
	AsyncMessage
}

// CommandMessage performs channel housekeeping (ping, subscribe, ...).
type CommandMessage struct {
	AsyncMessage
	Operation      float64 `amf:"operation"`
	MessageRefType string  `amf:"messageRefType"`
}

// ErrorMessage reports a fault for a correlated request.
type ErrorMessage struct {
	AcknowledgeMessage
	ExtendedData map[string]any `amf:"extendedData"`
	FaultCode    string         `amf:"faultCode"`
	FaultDetail  string         `amf:"faultDetail"`
	FaultString  string         `amf:"faultString"`
	RootCause    any            `amf:"rootCause"`
}

// NewRemotingMessage returns a message addressed to destination with a
// fresh UUID identity and a millisecond timestamp.
func NewRemotingMessage(destination, operation string) *RemotingMessage {
	m := &RemotingMessage{Operation: operation}
	m.Destination = destination
	m.MessageID = uuid.NewString()
	m.Timestamp = float64(time.Now().UnixMilli())
	return m
}

// NewAcknowledge returns the acknowledgement for a request, correlated
// by the request's message ID and addressed to its client.
func NewAcknowledge(request *AbstractMessage) *AcknowledgeMessage {
	m := &AcknowledgeMessage{}
	m.MessageID = uuid.NewString()
	m.Timestamp = float64(time.Now().UnixMilli())
	if request != nil {
		m.CorrelationID = request.MessageID
		m.ClientID = request.ClientID
	}
	if m.ClientID == nil || m.ClientID == "" {
		m.ClientID = uuid.NewString()
	}
	return m
}

// NewErrorMessage returns a fault response for a request.
func NewErrorMessage(request *AbstractMessage, faultCode, faultString string) *ErrorMessage {
	m := &ErrorMessage{}
	m.MessageID = uuid.NewString()
	m.Timestamp = float64(time.Now().UnixMilli())
	if request != nil {
		m.CorrelationID = request.MessageID
		m.ClientID = request.ClientID
	}
	m.FaultCode = faultCode
	m.FaultString = faultString
	return m
}

// RegisterAll adds the message class definitions to a mapper. All
// message classes are AMF3-flagged: an AMF0 session escapes into AMF3
// to carry them, the way Flash 9 remoting does.
func RegisterAll(m *amf.DefaultTypeMapper) error {
	defs := []*amf.ClassDef{
		{
			Alias:       RemotingMessageAlias,
			StaticAttrs: append(append([]string{}, abstractAttrs...), "operation", "source"),
			AMF3:        true,
			Factory:     func() any { return &RemotingMessage{} },
		},
		{
			Alias:       AsyncMessageAlias,
			StaticAttrs: append(append([]string{}, abstractAttrs...), "correlationId"),
			AMF3:        true,
			Factory:     func() any { return &AsyncMessage{} },
		},
		{
			Alias:       AcknowledgeMessageAlias,
			StaticAttrs: append(append([]string{}, abstractAttrs...), "correlationId"),
			AMF3:        true,
			Factory:     func() any { return &AcknowledgeMessage{} },
		},
		{
			Alias:       CommandMessageAlias,
			StaticAttrs: append(append([]string{}, abstractAttrs...), "correlationId", "operation", "messageRefType"),
			AMF3:        true,
			Factory:     func() any { return &CommandMessage{} },
		},
		{
			Alias:       ErrorMessageAlias,
			StaticAttrs: append(append([]string{}, abstractAttrs...), "correlationId", "extendedData", "faultCode", "faultDetail", "faultString", "rootCause"),
			AMF3:        true,
			Factory:     func() any { return &ErrorMessage{} },
		},
	}
	for _, def := range defs {
		if err := m.Register(def); err != nil {
			return err
		}
	}
	return nil
}
