package websocket

import "errors"

var (
	ErrProtocol            = errors.New("protocol error")
	ErrConnectionClosed    = errors.New("connection closed")
	ErrSendBufferFull      = errors.New("send buffer full")
	ErrDuplicateConnection = errors.New("duplicate connection id")
)
