package game

// Message is one line of table talk.
type Message struct {
	Turn     int    `json:"turn" yaml:"turn"`
	Round    int    `json:"round" yaml:"round"`
	Speaker  string `json:"speaker" yaml:"speaker"`
	Text     string `json:"text" yaml:"text"`
	Proposal bool   `json:"proposal,omitempty" yaml:"proposal,omitempty"`
}

// Channel carries messages between the players and the draw proposals of the
// current round. Text is never inspected.
type Channel struct {
	messages  []Message
	proposals [2]bool
}

// NewChannel returns an empty channel with no proposals.
func NewChannel() *Channel {
	return &Channel{}
}

// Record appends a message to the transcript.
func (c *Channel) Record(turn, round int, speaker, text string, proposal bool) {
	c.messages = append(c.messages, Message{
		Turn:     turn,
		Round:    round,
		Speaker:  speaker,
		Text:     text,
		Proposal: proposal,
	})
}

// ProposeDraw sets the seat's flag for the current round.
func (c *Channel) ProposeDraw(seat int) { c.proposals[seat] = true }

// Proposed reports whether seat proposed a draw this round.
func (c *Channel) Proposed(seat int) bool { return c.proposals[seat] }

// Agreed reports whether both players proposed a draw this round.
func (c *Channel) Agreed() bool { return c.proposals[0] && c.proposals[1] }

// ResetRound clears the proposal flags at the end of a full round.
func (c *Channel) ResetRound() { c.proposals = [2]bool{} }

// Transcript returns a copy of every message so far.
func (c *Channel) Transcript() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}
