package trace_test

import (
	"bytes"
	"encoding/json"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/irsim/trace"
)

var _ = Describe("Sink", func() {
	It("opens with [ and closes with the {} EOF placeholder", func() {
		buf := &bytes.Buffer{}
		sink, err := trace.NewSink(buf)
		Expect(err).NotTo(HaveOccurred())

		Expect(sink.Close()).To(Succeed())

		out := buf.String()
		Expect(out).To(HavePrefix("[\n"))
		Expect(strings.TrimSpace(out)).To(HaveSuffix("{}\n]"))
	})

	It("separates events with a comma and keeps the trailing {} legal", func() {
		buf := &bytes.Buffer{}
		sink, _ := trace.NewSink(buf)

		Expect(sink.Emit(trace.Event{Name: "op", Cat: trace.CategoryOperation, Ph: trace.PhaseBegin, TS: 0, PID: 0, TID: 0})).To(Succeed())
		Expect(sink.Emit(trace.Event{Name: "op", Cat: trace.CategoryOperation, Ph: trace.PhaseEnd, TS: 5, PID: 0, TID: 0})).To(Succeed())
		Expect(sink.Close()).To(Succeed())

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		// "[", begin-obj, ",", end-obj, ",", "{}", "]" roughly — assert
		// each event line is valid JSON, not the exact line layout.
		var objCount int
		for _, l := range lines {
			l = strings.TrimSuffix(strings.TrimSpace(l), ",")
			if l == "[" || l == "]" || l == "" {
				continue
			}
			var v map[string]any
			Expect(json.Unmarshal([]byte(l), &v)).To(Succeed())
			objCount++
		}
		Expect(objCount).To(Equal(3)) // two events + the {} placeholder
	})

	It("rejects Emit after Close", func() {
		buf := &bytes.Buffer{}
		sink, _ := trace.NewSink(buf)
		Expect(sink.Close()).To(Succeed())

		err := sink.Emit(trace.Event{Name: "late"})
		Expect(err).To(HaveOccurred())
	})
})
