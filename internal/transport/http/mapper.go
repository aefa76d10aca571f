package http

import (
	"github.com/vovakirdan/roomcast-server/internal/core"
	"github.com/vovakirdan/roomcast-server/internal/proto"
)

func payloadFromMessage(msg core.Message) proto.Payload {
	return proto.Payload{
		Message:   msg.Body,
		Name:      msg.Name,
		Timestamp: msg.Timestamp,
	}
}
