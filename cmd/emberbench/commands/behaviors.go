package commands

import "github.com/roasbeef/ember"

// counterBehavior tallies how many messages it has handled in its own
// state, and answers a ping from a valid sender with an empty pong.
type counterBehavior struct{}

func (counterBehavior) Receive(ctx *ember.ActorContext, msg ember.Message) ember.Verdict {
	count, _ := ctx.State().(int)
	count++
	ctx.SetState(count)

	if msg.Tag == tagPing && msg.Sender.Valid() {
		ctx.Loop().SendAsync(msg.Sender, ember.Message{Tag: tagPong})
	}

	return ember.VerdictOK
}

const (
	tagPing uint32 = 1
	tagPong uint32 = 2
)
