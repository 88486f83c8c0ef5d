package analysis

import "themochi.app/analytics/internal/model"

// setterAccum accumulates one setter's metrics during a pass.
type setterAccum struct {
	conversations    map[string]struct{}
	messagesSent     int
	repliedMessages  int
	creatorMessages  int
	delays           []float64
	stageChanges     map[string]int
	setterActivity   map[model.TimeBin]int
	leadActivity     map[model.TimeBin]int
	delayedResponses map[model.TimeBin]int
}

func newSetterAccum() *setterAccum {
	return &setterAccum{
		conversations:    make(map[string]struct{}),
		stageChanges:     zeroFilledStages(),
		setterActivity:   zeroFilledBins(),
		leadActivity:     zeroFilledBins(),
		delayedResponses: zeroFilledBins(),
	}
}

type setterAccums map[string]*setterAccum

func (a setterAccums) get(setter string) *setterAccum {
	acc, ok := a[setter]
	if !ok {
		acc = newSetterAccum()
		a[setter] = acc
	}
	return acc
}

func (a setterAccums) finalize() map[string]model.SetterMetrics {
	result := make(map[string]model.SetterMetrics, len(a))
	for setter, acc := range a {
		result[setter] = model.SetterMetrics{
			TotalConversations:       len(acc.conversations),
			TotalMessagesSentFromApp: acc.messagesSent,
			CreatorMessagesWithReply: acc.repliedMessages,
			CreatorMessageReplyRate:  replyRate(acc.repliedMessages, acc.creatorMessages),
			MedianReplyDelaySeconds:  medianSeconds(acc.delays),
			StageChanges:             acc.stageChanges,
			SetterActivityByTime:     acc.setterActivity,
			LeadActivityByTime:       acc.leadActivity,
			DelayedResponsesByTime:   acc.delayedResponses,
		}
	}
	return result
}

// SettersBySender attributes each CREATOR message to the identity that
// physically sent it. Messages without a sent-by identity are excluded
// from message-level counts entirely; there is no fallback to the
// conversation owner. Conversation and stage counts go to the set of
// distinct senders observed in the conversation, so one conversation
// can count toward several setters. LEAD activity is credited to every
// sender seen so far in that conversation.
func SettersBySender(conversations []model.Conversation) map[string]model.SetterMetrics {
	accums := make(setterAccums)

	for _, conv := range conversations {
		sendersInConv := make(map[string]struct{})

		for i, msg := range conv.Messages {
			switch msg.Sender {
			case model.SenderCreator:
				if msg.SentBy == "" {
					continue
				}
				sendersInConv[msg.SentBy] = struct{}{}

				acc := accums.get(msg.SentBy)
				acc.conversations[conv.ID] = struct{}{}
				acc.messagesSent++
				acc.creatorMessages++
				acc.setterActivity[TimeBinForHour(msg.SentAt.Hour())]++

				if delay, ok := firstReplyDelay(conv.Messages, i); ok {
					acc.repliedMessages++
					acc.delays = append(acc.delays, delay.Seconds())
				}

			case model.SenderLead:
				bin := TimeBinForHour(msg.SentAt.Hour())
				for sender := range sendersInConv {
					accums.get(sender).leadActivity[bin]++
				}
			}
		}

		if conv.Stage != "" {
			for sender := range sendersInConv {
				accums.get(sender).stageChanges[conv.Stage]++
			}
		}
	}

	return accums.finalize()
}

// SettersByAssignment attributes every metric of a conversation wholly
// to its assigned owner, regardless of who sent each message.
func SettersByAssignment(conversations []model.Conversation) map[string]model.SetterMetrics {
	accums := make(setterAccums)

	for _, conv := range conversations {
		acc := accums.get(conv.SetterEmail)
		acc.conversations[conv.ID] = struct{}{}

		if conv.Stage != "" {
			acc.stageChanges[conv.Stage]++
		}

		for i, msg := range conv.Messages {
			switch msg.Sender {
			case model.SenderCreator:
				acc.messagesSent++
				acc.creatorMessages++
				acc.setterActivity[TimeBinForHour(msg.SentAt.Hour())]++

				if delay, ok := firstReplyDelay(conv.Messages, i); ok {
					acc.repliedMessages++
					acc.delays = append(acc.delays, delay.Seconds())
				}

			case model.SenderLead:
				acc.leadActivity[TimeBinForHour(msg.SentAt.Hour())]++
			}
		}
	}

	return accums.finalize()
}
