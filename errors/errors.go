package errors

import "fmt"

var (
	ErrWorkerPanic          = fmt.Errorf("worker panic")
	ErrConversationNotFound = fmt.Errorf("conversation not found")
	ErrMessageNotFound      = fmt.Errorf("message not found")
	ErrEmptyContent         = fmt.Errorf("message content is empty")
	ErrDelivery             = fmt.Errorf("delivery to connection failed")
	ErrSendBufferFull       = fmt.Errorf("connection send buffer full")
	ErrInvalidFrame         = fmt.Errorf("invalid client frame")
	ErrUnauthenticated      = fmt.Errorf("connection has no resolved user")
)
