package notify_test

import (
	"time"

	jsoniter "github.com/json-iterator/go"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/crocme10/ctl2mimir/notify"
	"github.com/crocme10/ctl2mimir/state"
)

// Envelope is the wire shape subscribers decode (§4.3/§6); its JSON
// round-trip is the one piece of notify that needs no live broker to check.
var _ = Describe("Envelope", func() {
	It("survives a marshal/unmarshal round trip through the wire shape", func() {
		s := state.NewDownloaded("/work/andorra", 2*time.Second)
		body, err := state.Marshal(s)
		Expect(err).NotTo(HaveOccurred())

		env := notify.Envelope{IndexID: 42, Status: jsoniter.RawMessage(body)}
		wire, err := jsoniter.Marshal(env)
		Expect(err).NotTo(HaveOccurred())

		var got notify.Envelope
		Expect(jsoniter.Unmarshal(wire, &got)).To(Succeed())
		Expect(got.IndexID).To(Equal(int64(42)))

		roundtripped, err := state.Unmarshal(got.Status)
		Expect(err).NotTo(HaveOccurred())
		Expect(roundtripped.Type).To(Equal(state.Downloaded))
		Expect(roundtripped.FilePath).To(Equal(s.FilePath))
	})
})
