package nop_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/circuitchat/pkg/eventstream"
	"github.com/papercomputeco/circuitchat/pkg/eventstream/nop"
)

var _ = Describe("Publisher", func() {
	var p eventstream.Publisher = nop.NewPublisher()

	It("returns ErrNilRelayEvent for nil events", func() {
		err := p.PublishRelay(context.Background(), nil)
		Expect(err).To(MatchError(eventstream.ErrNilRelayEvent))
	})

	It("succeeds for non-nil events", func() {
		event := eventstream.NewRelayCompletedEvent("relay-1", eventstream.EventSource{Provider: "ollama"})
		Expect(p.PublishRelay(context.Background(), event)).To(Succeed())
	})

	It("closes successfully", func() {
		Expect(p.Close()).To(Succeed())
	})
})
