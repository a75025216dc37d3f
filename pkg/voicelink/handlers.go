package voicelink

import (
	"fmt"
	"strings"
)

// Factory functions for common observers.

// CreateLoggingMessageHandler logs every inbound message by tag.
func CreateLoggingMessageHandler(verbose bool) MessageHandler {
	logger := GetGlobalLogger().WithComponent("MessageLog")
	return func(env *Envelope) {
		if verbose {
			logger.WithField("tag", env.Type).Infof("Received %s", env.Type)
		} else {
			logger.Debugf("Received %s", env.Type)
		}
	}
}

// CreateConnectionStatusHandler logs state changes and forwards them to an
// optional callback.
func CreateConnectionStatusHandler(callback func(ConnectionState)) ConnectionHandler {
	logger := GetGlobalLogger().WithComponent("Connection")
	return func(state ConnectionState) {
		logger.LogConnectionEvent("observed", state)
		if callback != nil {
			callback(state)
		}
	}
}

// CreateErrorLoggingHandler logs errors with a prefix identifying the
// subscriber.
func CreateErrorLoggingHandler(prefix string) ErrorHandler {
	logger := GetGlobalLogger().WithComponent(prefix)
	return func(err *StreamError) {
		logger.LogStreamError(err)
	}
}

// CreateTextPrinter prints remote text messages to stdout.
func CreateTextPrinter() TextHandler {
	return func(text string) {
		fmt.Println(text)
	}
}

// CreateVolumeMonitor renders a coarse text meter for a volume stream.
// A 0 level prints nothing, matching the idle state.
func CreateVolumeMonitor(label string, width int) VolumeHandler {
	if width <= 0 {
		width = 20
	}
	return func(level float64) {
		if level <= 0 {
			return
		}
		filled := int(level * float64(width))
		if filled > width {
			filled = width
		}
		fmt.Printf("\r%s [%s%s]", label,
			strings.Repeat("#", filled), strings.Repeat("-", width-filled))
	}
}

// CreateTagFilter forwards only messages with the given tag.
func CreateTagFilter(tag string, handler MessageHandler) MessageHandler {
	return func(env *Envelope) {
		if env.Type == tag {
			handler(env)
		}
	}
}

// ChainMessageHandlers runs handlers in order.
func ChainMessageHandlers(handlers ...MessageHandler) MessageHandler {
	return func(env *Envelope) {
		for _, h := range handlers {
			h(env)
		}
	}
}

// ChainErrorHandlers runs handlers in order.
func ChainErrorHandlers(handlers ...ErrorHandler) ErrorHandler {
	return func(err *StreamError) {
		for _, h := range handlers {
			h(err)
		}
	}
}
