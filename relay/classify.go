package relay

import (
	"errors"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

// transientMarkers are the message substrings that identify connectivity
// problems worth retrying on the next poll cycle. The last two cover
// broker-originated AMQP failures.
var transientMarkers = []string{
	"connection",
	"timeout",
	"unavailable",
	"network",
	"refused",
	"rabbitmq",
	"amqp",
}

// isTransient reports whether err looks like an infrastructure hiccup rather
// than a bad event. A closed AMQP channel is transient regardless of message;
// everything that matches no marker is permanent.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp.ErrClosed) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
