package core

import "gaugecode-go/bus"

// Opaque-topic helpers

func topicConfigHAL() bus.Topic { return bus.T("config", "hal") }
func topicHALState() bus.Topic  { return bus.T("hal", "state") }

// hal/cap/<domain>/<kind>/<name>/...
func capBase(domain, kind, name string) bus.Topic { return bus.T("hal", "cap", domain, kind, name) }

func capInfo(domain, kind, name string) bus.Topic { return capBase(domain, kind, name).Append("info") }
func capStatus(domain, kind, name string) bus.Topic {
	return capBase(domain, kind, name).Append("status")
}
func capValue(domain, kind, name string) bus.Topic {
	return capBase(domain, kind, name).Append("value")
}
func capEventTagged(domain, kind, name, tag string) bus.Topic {
	return capBase(domain, kind, name).Append("event", tag)
}

// hal/cap/<domain>/<kind>/<name>/control/<verb>
func capCtrl(domain, kind, name, verb string) bus.Topic {
	return capBase(domain, kind, name).Append("control", verb)
}

// hal/cap/+/+/+/control/+
func ctrlWildcard() bus.Topic {
	return bus.T("hal", "cap", bus.Wildcard, bus.Wildcard, bus.Wildcard, "control", bus.Wildcard)
}
