package utils

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Truncate", func() {
	It("returns the string unchanged when within the limit", func() {
		Expect(Truncate("short", 10)).To(Equal("short"))
	})

	It("returns the string unchanged when exactly at the limit", func() {
		Expect(Truncate("12345", 5)).To(Equal("12345"))
	})

	It("truncates with ellipsis when over the limit", func() {
		Expect(Truncate("this is a long string", 10)).To(Equal("this is a ..."))
	})

	It("counts runes rather than bytes", func() {
		Expect(Truncate("héllo wörld", 5)).To(Equal("héllo..."))
	})

	It("flattens newlines", func() {
		Expect(Truncate("line one\nline two", 40)).To(Equal("line one line two"))
	})
})

var _ = Describe("UserAgent", func() {
	It("carries the version", func() {
		Expect(UserAgent()).To(Equal("churnsense/" + Version))
	})
})
