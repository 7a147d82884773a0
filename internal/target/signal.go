package target

// Reason explains why a lifecycle signal fired, so holders can log and tests
// can assert the cause.
type Reason string

const (
	// ReasonRecolored fires when a console switches team color.
	ReasonRecolored Reason = "recolored"
	// ReasonBarrierDown fires when the barrier gating a door deactivates.
	ReasonBarrierDown Reason = "barrier_down"
	// ReasonArenaEnded fires when the episode resets.
	ReasonArenaEnded Reason = "arena_ended"
	// ReasonThreatNearby fires when avoidance flags the objective as unsafe.
	ReasonThreatNearby Reason = "threat_nearby"
	// ReasonClaimed fires when a rival agent announces pursuit, pushing
	// earlier holders off the objective.
	ReasonClaimed Reason = "claimed"
	// ReasonFreed fires when jailed teammates no longer need rescuing.
	ReasonFreed Reason = "freed"
	// ReasonConsumed fires when an objective was completed or collected.
	ReasonConsumed Reason = "consumed"
	// ReasonUnreachable fires when pathing cannot serve the objective.
	ReasonUnreachable Reason = "unreachable"
	// ReasonRemoved fires when the registry destroys an objective outright.
	ReasonRemoved Reason = "removed"
)

// Token identifies one live subscription on a Signal.
type Token uint64

// Signal is a synchronous callback list dispatched on the simulation
// goroutine. Subscribers that release their objective must unsubscribe, or
// the callback keeps firing against state they no longer hold.
type Signal struct {
	next  Token
	subs  map[Token]func(Reason)
	order []Token
}

// Subscribe registers a callback and returns the token that removes it.
func (s *Signal) Subscribe(fn func(Reason)) Token {
	if s == nil || fn == nil {
		return 0
	}
	if s.subs == nil {
		s.subs = make(map[Token]func(Reason))
	}
	s.next++
	token := s.next
	s.subs[token] = fn
	s.order = append(s.order, token)
	return token
}

// Unsubscribe removes a subscription. Unknown or zero tokens are ignored.
func (s *Signal) Unsubscribe(token Token) {
	if s == nil || token == 0 || s.subs == nil {
		return
	}
	if _, ok := s.subs[token]; !ok {
		return
	}
	delete(s.subs, token)
	for i, t := range s.order {
		if t == token {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Emit invokes every subscriber in subscription order. Callbacks may
// unsubscribe themselves (or others) during dispatch.
func (s *Signal) Emit(reason Reason) {
	if s == nil || len(s.subs) == 0 {
		return
	}
	tokens := make([]Token, len(s.order))
	copy(tokens, s.order)
	for _, token := range tokens {
		if fn, ok := s.subs[token]; ok {
			fn(reason)
		}
	}
}

// Len reports the number of live subscriptions.
func (s *Signal) Len() int {
	if s == nil {
		return 0
	}
	return len(s.subs)
}
