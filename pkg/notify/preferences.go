package notify

// DefaultPreferences materializes the default delivery policy for a user who
// has never stored any: one record per known notification type, in-app only,
// enabled. Callers persist the result so "no preferences yet" stays
// behaviorally identical to "default preferences".
func DefaultPreferences(userID string) []Preference {
	types := KnownTypes()
	prefs := make([]Preference, 0, len(types))
	for _, t := range types {
		prefs = append(prefs, Preference{
			UserID:    userID,
			Type:      t,
			Channels:  []Channel{ChannelInApp},
			Enabled:   true,
			Frequency: FrequencyImmediate,
		})
	}
	return prefs
}

// FilterChannels intersects the candidate channel set with the user's allowed
// channels for the notification type. It returns nil when no matching
// preference exists or the matching preference is disabled. An empty candidate
// set means "whatever the user allows" and yields the preference's channels
// unchanged. Pure function, no side effects.
func FilterChannels(candidates []Channel, typ Type, prefs []Preference) []Channel {
	var match *Preference
	for i := range prefs {
		if prefs[i].Type == typ {
			match = &prefs[i]
			break
		}
	}
	if match == nil || !match.Enabled {
		return nil
	}

	if len(candidates) == 0 {
		out := make([]Channel, len(match.Channels))
		copy(out, match.Channels)
		return out
	}

	allowed := make(map[Channel]bool, len(match.Channels))
	for _, ch := range match.Channels {
		allowed[ch] = true
	}

	var out []Channel
	for _, ch := range candidates {
		if allowed[ch] {
			out = append(out, ch)
		}
	}
	return out
}
