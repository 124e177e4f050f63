package workorders

import "strings"

const (
	// StatusReceived is the status every order starts in.
	StatusReceived = "RECEIVED"
	// StatusDelivered stamps delivered_at when reached.
	StatusDelivered = "DELIVERED"
)

// StatusPolicy decides whether an order may move from one status to another.
// Status codes are free-form; the policy is the single place to tighten them.
type StatusPolicy interface {
	Allow(from, to string) bool
}

// StatusPolicyFunc adapts a function to StatusPolicy.
type StatusPolicyFunc func(from, to string) bool

// Allow implements StatusPolicy.
func (f StatusPolicyFunc) Allow(from, to string) bool {
	return f(from, to)
}

// AnyStatusPolicy accepts any non-empty target, including the current status.
var AnyStatusPolicy StatusPolicy = StatusPolicyFunc(func(_, to string) bool {
	return strings.TrimSpace(to) != ""
})

// TablePolicy allows only the listed transitions. A nil or empty table allows nothing.
type TablePolicy map[string][]string

// Allow implements StatusPolicy.
func (t TablePolicy) Allow(from, to string) bool {
	for _, candidate := range t[strings.TrimSpace(from)] {
		if candidate == strings.TrimSpace(to) {
			return true
		}
	}
	return false
}
