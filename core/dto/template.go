package dto

// Template selects envelopes during a selective receive.
type Template func(env Envelope) bool

// MatchAll accepts every envelope.
func MatchAll() Template {
	return func(Envelope) bool { return true }
}

// MatchPerformative accepts envelopes carrying any of the given performatives.
func MatchPerformative(ps ...Performative) Template {
	return func(env Envelope) bool {
		for _, p := range ps {
			if env.Performative == p {
				return true
			}
		}
		return false
	}
}

// MatchConversation accepts envelopes of the conversation id.
func MatchConversation(id string) Template {
	return func(env Envelope) bool { return env.ConversationID == id }
}

// MatchCorrelation accepts replies to the request minted with id.
func MatchCorrelation(id string) Template {
	return func(env Envelope) bool { return env.CorrelationID == id }
}

// And accepts envelopes matched by every template.
func And(templates ...Template) Template {
	return func(env Envelope) bool {
		for _, t := range templates {
			if !t(env) {
				return false
			}
		}
		return true
	}
}

// Not accepts envelopes rejected by t.
func Not(t Template) Template {
	return func(env Envelope) bool { return !t(env) }
}
