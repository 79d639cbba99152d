/*
Package events distributes node and partition state changes observed by
the status monitor to in-process subscribers.

A Broker fans each published Event out to every subscriber channel. Publish
never blocks the monitor: events that do not fit the broker queue, or a
full subscriber channel, are dropped and reported through OnDrop.

	broker := events.NewBroker(256)
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe(64)
	defer broker.Unsubscribe(sub)
	for ev := range sub {
		logger.Info().Str("type", string(ev.Type)).Str("subject", ev.Subject).Msg("state change")
	}
*/
package events
