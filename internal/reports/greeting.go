package reports

// Greeting picks the salutation for an hour of the day. Hours outside 0-23
// wrap around the clock.
func Greeting(hour int) string {
	hour %= 24
	if hour < 0 {
		hour += 24
	}
	switch {
	case hour >= 6 && hour < 12:
		return "Good morning"
	case hour >= 12 && hour < 18:
		return "Good afternoon"
	case hour >= 18:
		return "Good evening"
	default:
		return "Good night"
	}
}
