package domain_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/smallbiznis/orgadmin/internal/rotation/domain"
	serviceaccountdomain "github.com/smallbiznis/orgadmin/internal/serviceaccount/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var _ = Describe("ParseName", func() {
	DescribeTable("extracts the encoded date",
		func(name, prefix string, ok bool, expected time.Time) {
			got, parsed := domain.ParseName(name, prefix)
			Expect(parsed).To(Equal(ok))
			if ok {
				Expect(got).To(Equal(expected))
			}
		},
		Entry("full date", "api-key-2024-11-13", "api-key", true, day(2024, time.November, 13)),
		Entry("short date is the first of the month", "chatbot-server-24-11", "chatbot-server", true, day(2024, time.November, 1)),
		Entry("prefix containing digits", "svc-2-25-01", "svc-2", true, day(2025, time.January, 1)),
		Entry("other prefix", "api-key-2024-11-13", "chatbot", false, time.Time{}),
		Entry("prefix without separator", "api-key2024-11-13", "api-key", false, time.Time{}),
		Entry("impossible day", "api-key-2024-02-30", "api-key", false, time.Time{}),
		Entry("month out of range", "api-key-24-13", "api-key", false, time.Time{}),
		Entry("trailing text", "api-key-24-11-old", "api-key", false, time.Time{}),
		Entry("empty prefix", "-24-11", "", false, time.Time{}),
	)
})

var _ = Describe("NameFor", func() {
	at := time.Date(2025, time.March, 7, 23, 30, 0, 0, time.UTC)

	DescribeTable("formats the current period",
		func(format domain.DateFormat, expected string) {
			Expect(domain.NameFor("inventory-server", format, at)).To(Equal(expected))
		},
		Entry("short", domain.FormatShort, "inventory-server-25-03"),
		Entry("full", domain.FormatFull, "inventory-server-2025-03-07"),
	)

	It("round-trips through ParseName", func() {
		got, ok := domain.ParseName(domain.NameFor("p", domain.FormatFull, at), "p")
		Expect(ok).To(BeTrue())
		Expect(got).To(Equal(day(2025, time.March, 7)))
	})
})

var _ = Describe("ParseDateFormat", func() {
	DescribeTable("accepts known layouts",
		func(raw string, expected domain.DateFormat, ok bool) {
			got, parsed := domain.ParseDateFormat(raw)
			Expect(parsed).To(Equal(ok))
			Expect(got).To(Equal(expected))
		},
		Entry("default", "", domain.FormatShort, true),
		Entry("short", "YY-MM", domain.FormatShort, true),
		Entry("full lower case", "yyyy-mm-dd", domain.FormatFull, true),
		Entry("unknown", "MM-YY", domain.DateFormat(""), false),
	)
})

var _ = Describe("Match", func() {
	It("keeps matching names ordered newest first", func() {
		accounts := []serviceaccountdomain.ServiceAccount{
			{ID: "a", Name: "bot-25-01", CreatedAt: 100},
			{ID: "b", Name: "bot-2025-03-02", CreatedAt: 300},
			{ID: "c", Name: "unrelated", CreatedAt: 400},
			{ID: "d", Name: "bot-25-03", CreatedAt: 200},
			{ID: "e", Name: "bot-25-03", CreatedAt: 250},
		}

		matched := domain.Match(accounts, "bot")

		ids := make([]string, 0, len(matched))
		for _, m := range matched {
			ids = append(ids, m.ID)
		}
		Expect(ids).To(Equal([]string{"b", "e", "d", "a"}))
		Expect(matched[0].HasDate()).To(BeTrue())
	})
})

var _ = Describe("Advise", func() {
	DescribeTable("grades the newest key by age",
		func(age int, expected domain.Advice) {
			Expect(domain.Advise(age)).To(Equal(expected))
		},
		Entry("today", 0, domain.AdviceCurrent),
		Entry("one week", 7, domain.AdviceRecent),
		Entry("eight days", 8, domain.AdviceConsider),
		Entry("thirty days", 30, domain.AdviceConsider),
		Entry("older", 31, domain.AdviceRecommended),
	)

	It("counts whole days", func() {
		now := time.Date(2025, time.November, 13, 10, 0, 0, 0, time.UTC)
		Expect(domain.AgeDays(now, now.Add(-47*time.Hour).Unix())).To(Equal(1))
		Expect(domain.AgeDays(now, now.Add(time.Hour).Unix())).To(Equal(0))
	})

	It("detects date suffixes without a prefix", func() {
		Expect(domain.HasDateSuffix("anything-24-11")).To(BeTrue())
		Expect(domain.HasDateSuffix("anything-2024-11-13")).To(BeTrue())
		Expect(domain.HasDateSuffix("anything")).To(BeFalse())
	})
})
