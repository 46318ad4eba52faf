package sessions

import (
	"fmt"
	"time"
)

// GreetingBucket maps the hour of t to morning, afternoon or evening.
func GreetingBucket(t time.Time) string {
	switch h := t.Hour(); {
	case h < 12:
		return "morning"
	case h < 17:
		return "afternoon"
	default:
		return "evening"
	}
}

var welcomeTemplates = []func(user, bucket string) string{
	func(user, bucket string) string {
		return fmt.Sprintf("Welcome back, %s. Good %s! How may I assist you today?", user, bucket)
	},
	func(user, bucket string) string {
		return fmt.Sprintf("Good %s, %s. All systems are now at your command.", bucket, user)
	},
	func(user, bucket string) string {
		return fmt.Sprintf("Good %s, %s. Session open, I'm listening.", bucket, user)
	},
}

var farewellTemplates = []func(user string, duration time.Duration, turns int) string{
	func(user string, duration time.Duration, turns int) string {
		return fmt.Sprintf("Over and out, %s. Session closed after %s and %s.", user, duration, turnsText(turns))
	},
	func(user string, duration time.Duration, turns int) string {
		return fmt.Sprintf("Goodbye, %s. That was %s over %s. Say the phrase when you need me again.", user, turnsText(turns), duration)
	},
}

func turnsText(turns int) string {
	if turns == 1 {
		return "1 turn"
	}
	return fmt.Sprintf("%d turns", turns)
}

func (m *Manager) welcome(user string, now time.Time) string {
	return welcomeTemplates[m.choose(len(welcomeTemplates))](user, GreetingBucket(now))
}

func (m *Manager) farewell(user string, duration time.Duration, turns int) string {
	return farewellTemplates[m.choose(len(farewellTemplates))](user, duration, turns)
}

// choose clamps the chooser's answer into range.
func (m *Manager) choose(n int) int {
	i := m.chooser(n)
	if i < 0 || i >= n {
		return 0
	}
	return i
}
