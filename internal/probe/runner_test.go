package probe_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/bgricker/apiprobe/internal/apitest"
	"github.com/bgricker/apiprobe/internal/client"
	"github.com/bgricker/apiprobe/internal/output"
	"github.com/bgricker/apiprobe/internal/probe"
	"github.com/bgricker/apiprobe/internal/probe/filter"
	"github.com/bgricker/apiprobe/internal/report"
)

// fixedIntN makes generated emails and usernames predictable.
func fixedIntN(int) int { return 2345 }

var fixedNow = func() time.Time { return time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC) }

var _ = Describe("Runner", func() {
	var (
		ctx     context.Context
		server  *apitest.Server
		out     *bytes.Buffer
		catalog probe.CatalogOptions
		only    []string
		skip    []string
	)

	BeforeEach(func() {
		ctx = context.Background()
		server = apitest.New(GinkgoT())
		out = &bytes.Buffer{}
		catalog = probe.DefaultCatalogOptions()
		catalog.IntN = fixedIntN
		only, skip = nil, nil
	})

	run := func(baseURL string) (probe.Outcome, error) {
		selector, err := filter.NewSelector(only, skip)
		Expect(err).NotTo(HaveOccurred())
		runner := probe.New(probe.Options{
			Client:   client.New(client.Options{BaseURL: baseURL}),
			Reporter: output.NewPlain(out),
			Selector: selector,
			Groups:   probe.Catalog(catalog),
			Now:      fixedNow,
		})
		return runner.Run(ctx)
	}

	resultFor := func(outcome probe.Outcome, name string) report.Result {
		for _, r := range outcome.Results {
			if r.Name == name {
				return r
			}
		}
		Fail("no result named " + name)
		return report.Result{}
	}

	Context("against a healthy API", func() {
		It("passes every probe and exits 0", func() {
			outcome, err := run(server.URL)
			Expect(err).NotTo(HaveOccurred())

			Expect(outcome.Stats.Total).To(Equal(15))
			Expect(outcome.Stats.Failed).To(BeZero())
			Expect(outcome.Stats.SkippedGroups).To(BeZero())
			Expect(outcome.Stats.ExitCode()).To(Equal(0))
			Expect(outcome.Stats.SuccessRate()).To(Equal(100.0))
			Expect(out.String()).To(ContainSubstring("All probes passed!"))
		})

		It("keeps the stats in step with the result sequence", func() {
			outcome, err := run(server.URL)
			Expect(err).NotTo(HaveOccurred())

			Expect(outcome.Stats).To(Equal(report.Tally(outcome.Results)))
			Expect(outcome.Stats.Total).To(Equal(outcome.Stats.Passed + outcome.Stats.Failed))
			Expect(outcome.Results).To(HaveLen(outcome.Stats.Total))
		})

		It("sends a randomised registration payload", func() {
			_, err := run(server.URL)
			Expect(err).NotTo(HaveOccurred())

			var sent probe.Credentials
			req, ok := server.Find(http.MethodPost, "/auth/register")
			Expect(ok).To(BeTrue())
			Expect(json.Unmarshal([]byte(req.Body), &sent)).To(Succeed())
			Expect(sent).To(Equal(probe.Credentials{
				Email:    "test12345@example.com",
				Password: "password123",
				Username: "testuser12345",
			}))
			Expect(out.String()).To(ContainSubstring("status: 201, email: test12345@example.com"))
		})

		It("authenticates user probes with the most recent token", func() {
			_, err := run(server.URL)
			Expect(err).NotTo(HaveOccurred())

			req, ok := server.Find(http.MethodGet, "/user/info")
			Expect(ok).To(BeTrue())
			Expect(req.Header.Get("Authorization")).To(Equal("Bearer " + apitest.LoginToken))
			Expect(req.Header.Get("Traceparent")).NotTo(BeEmpty())
			Expect(out.String()).To(ContainSubstring("token saved: login-token-abcdefgh..."))
		})

		It("posts machine reports for the configured node", func() {
			catalog.NodeID = "7"
			_, err := run(server.URL)
			Expect(err).NotTo(HaveOccurred())

			req, ok := server.Find(http.MethodPost, "/node/mu/nodes/7/online")
			Expect(ok).To(BeTrue())
			Expect(req.Body).To(MatchJSON(`{"count":15}`))
		})

		It("runs the extended checks when asked", func() {
			catalog.Extended = true
			outcome, err := run(server.URL)
			Expect(err).NotTo(HaveOccurred())

			Expect(outcome.Stats.Total).To(Equal(17))
			Expect(outcome.Stats.Failed).To(BeZero())
			Expect(resultFor(outcome, "Unknown path returns 404").Passed).To(BeTrue())
		})

		It("prints no detail under the liveness results", func() {
			outcome, err := run(server.URL)
			Expect(err).NotTo(HaveOccurred())

			Expect(resultFor(outcome, "API root").Detail).To(BeEmpty())
			Expect(resultFor(outcome, "Health endpoint").Detail).To(BeEmpty())
		})
	})

	Context("with the extended checks on", func() {
		BeforeEach(func() {
			catalog.Extended = true
		})

		DescribeTable("accepts an anonymous user info refusal",
			func(status int) {
				server.Override(http.MethodGet, "/user/info", status, `{"error":"nope"}`)
				outcome, err := run(server.URL)
				Expect(err).NotTo(HaveOccurred())

				r := resultFor(outcome, "Reject anonymous user info")
				Expect(r.Passed).To(BeTrue())
				Expect(r.Detail).To(Equal(fmt.Sprintf("status: %d", status)))
			},
			Entry("401", http.StatusUnauthorized),
			Entry("404", http.StatusNotFound),
		)

		It("fails when user info is served anonymously", func() {
			server.Override(http.MethodGet, "/user/info", http.StatusOK, `{"data":{}}`)
			outcome, err := run(server.URL)
			Expect(err).NotTo(HaveOccurred())

			Expect(resultFor(outcome, "Reject anonymous user info").Passed).To(BeFalse())
		})
	})

	Context("with the account journey on", func() {
		BeforeEach(func() {
			catalog.Journey = true
		})

		It("walks subscription, ticket and traffic endpoints", func() {
			outcome, err := run(server.URL)
			Expect(err).NotTo(HaveOccurred())

			Expect(outcome.Stats.Total).To(Equal(23))
			Expect(outcome.Stats.Failed).To(BeZero())
			Expect(out.String()).To(ContainSubstring("9. End-to-end account journey"))
			Expect(out.String()).To(ContainSubstring("subscription token saved: sub-0123..."))
			Expect(out.String()).To(ContainSubstring("ticket 1 opened"))
			Expect(out.String()).To(ContainSubstring("subscription token rotated: sub-fedc..."))

			Expect(resultFor(outcome, "Fetch subscription content").Detail).To(Equal(
				"status: 200, links: 2 (2 ss://), upload: 1.00 GB, download: 2.00 GB, total: 10.00 GB"))
			Expect(resultFor(outcome, "Traffic statistics").Detail).To(Equal("status: 200, used: 30.00%"))
			Expect(resultFor(outcome, "Account overview").Detail).To(Equal(
				"status: 200, balance: 10.00, class: 1, transfer: 10.00 GB"))

			_, fetched := server.Find(http.MethodGet, "/subscribe/"+apitest.SubscriptionToken)
			Expect(fetched).To(BeTrue())
			req, ok := server.Find(http.MethodPost, "/user/tickets")
			Expect(ok).To(BeTrue())
			Expect(req.Header.Get("Authorization")).To(Equal("Bearer " + apitest.LoginToken))
			Expect(server.Tickets()).To(Equal(map[int]int{1: 0}))
		})

		It("fails dependent requests without sending them when nothing was captured", func() {
			server.Override(http.MethodGet, "/user/subscription", http.StatusInternalServerError, `{"error":"boom"}`)
			server.Override(http.MethodPost, "/user/tickets", http.StatusInternalServerError, `{"error":"boom"}`)
			outcome, err := run(server.URL)
			Expect(err).NotTo(HaveOccurred())

			Expect(outcome.Stats.Total).To(Equal(23))
			Expect(outcome.Stats.Failed).To(Equal(5))
			Expect(resultFor(outcome, "Fetch subscription content").Detail).To(Equal("not sent: no subscription token captured"))
			Expect(resultFor(outcome, "Ticket appears in list").Detail).To(Equal("not sent: no ticket id captured"))
			Expect(resultFor(outcome, "Close support ticket").Passed).To(BeFalse())
			Expect(resultFor(outcome, "Reset subscription token").Passed).To(BeTrue())

			_, listed := server.Find(http.MethodGet, "/user/tickets")
			Expect(listed).To(BeFalse())
		})

		It("fails when the opened ticket is missing from the list", func() {
			server.Override(http.MethodGet, "/user/tickets", http.StatusOK, `{"tickets":[{"id":99}]}`)
			outcome, err := run(server.URL)
			Expect(err).NotTo(HaveOccurred())

			Expect(resultFor(outcome, "Ticket appears in list").Passed).To(BeFalse())
			Expect(resultFor(outcome, "Close support ticket").Passed).To(BeTrue())
		})

		It("fails an empty subscription feed", func() {
			server.Override(http.MethodGet, "/subscribe/{token}", http.StatusOK, "")
			outcome, err := run(server.URL)
			Expect(err).NotTo(HaveOccurred())

			r := resultFor(outcome, "Fetch subscription content")
			Expect(r.Passed).To(BeFalse())
			Expect(r.Detail).To(Equal("status: 200, links: 0 (0 ss://), no subscription-userinfo header"))
		})

		It("is skipped with the user group when no token is captured", func() {
			server.Override(http.MethodPost, "/auth/register", http.StatusInternalServerError, `{"error":"db down"}`)
			server.Override(http.MethodPost, "/auth/login", http.StatusUnauthorized, `{"error":"invalid credentials"}`)
			outcome, err := run(server.URL)
			Expect(err).NotTo(HaveOccurred())

			Expect(outcome.Stats.SkippedGroups).To(Equal(2))
			for _, r := range outcome.Results {
				Expect(r.Group).NotTo(Equal(probe.GroupJourney))
			}
		})
	})

	Context("when the API is unreachable", func() {
		It("fails every probe with an error detail and skips the user group", func() {
			outcome, err := run(apitest.UnreachableURL(GinkgoT()))
			Expect(err).NotTo(HaveOccurred())

			Expect(outcome.Stats.Total).To(Equal(10))
			Expect(outcome.Stats.Failed).To(Equal(outcome.Stats.Total))
			Expect(outcome.Stats.SkippedGroups).To(Equal(1))
			Expect(outcome.Stats.ExitCode()).To(Equal(1))
			for _, r := range outcome.Results {
				Expect(r.Detail).NotTo(BeEmpty(), r.Name)
				Expect(r.Group).NotTo(Equal(probe.GroupUser))
			}
		})
	})

	Context("when validation is judged", func() {
		It("passes when the API rejects with 422", func() {
			server.Override(http.MethodPost, "/auth/register", http.StatusUnprocessableEntity, `{"error":"invalid"}`)
			outcome, err := run(server.URL)
			Expect(err).NotTo(HaveOccurred())

			Expect(resultFor(outcome, "Reject malformed email").Passed).To(BeTrue())
			Expect(resultFor(outcome, "Reject malformed email").Detail).To(Equal("status: 422 (rejection expected)"))
			Expect(resultFor(outcome, "Register user").Passed).To(BeFalse())
		})

		DescribeTable("fails when the API accepts the payload",
			func(status int) {
				server.Override(http.MethodPost, "/auth/register", status, `{"data":{}}`)
				outcome, err := run(server.URL)
				Expect(err).NotTo(HaveOccurred())

				Expect(resultFor(outcome, "Reject malformed email").Passed).To(BeFalse())
				Expect(resultFor(outcome, "Reject short password").Passed).To(BeFalse())
			},
			Entry("200", http.StatusOK),
			Entry("201", http.StatusCreated),
		)
	})

	Context("when no token is captured", func() {
		BeforeEach(func() {
			server.Override(http.MethodPost, "/auth/register", http.StatusInternalServerError, `{"error":"db down"}`)
			server.Override(http.MethodPost, "/auth/login", http.StatusUnauthorized, `{"error":"invalid credentials"}`)
		})

		It("skips the user group visibly and records nothing for it", func() {
			outcome, err := run(server.URL)
			Expect(err).NotTo(HaveOccurred())

			Expect(outcome.Stats.SkippedGroups).To(Equal(1))
			for _, r := range outcome.Results {
				Expect(r.Group).NotTo(Equal(probe.GroupUser))
			}
			Expect(out.String()).To(ContainSubstring("⚠ skipped: no token available"))
			_, called := server.Find(http.MethodGet, "/user/info")
			Expect(called).To(BeFalse())
		})

		It("still passes the login probe on 401", func() {
			outcome, err := run(server.URL)
			Expect(err).NotTo(HaveOccurred())

			Expect(resultFor(outcome, "Login endpoint").Passed).To(BeTrue())
			Expect(resultFor(outcome, "Login endpoint").Detail).To(Equal("status: 401"))
		})
	})

	Context("when the registration token is the only one", func() {
		It("uses it for the user group", func() {
			server.Override(http.MethodPost, "/auth/login", http.StatusUnauthorized, `{"error":"invalid credentials"}`)
			outcome, err := run(server.URL)
			Expect(err).NotTo(HaveOccurred())

			Expect(outcome.Stats.Failed).To(BeZero())
			req, ok := server.Find(http.MethodGet, "/user/shop")
			Expect(ok).To(BeTrue())
			Expect(req.Header.Get("Authorization")).To(Equal("Bearer " + apitest.RegisterToken))
		})
	})

	Context("when liveness bodies are wrong", func() {
		It("fails a missing status marker", func() {
			server.Override(http.MethodGet, "/", http.StatusOK, `{"status":"down"}`)
			outcome, err := run(server.URL)
			Expect(err).NotTo(HaveOccurred())

			Expect(resultFor(outcome, "API root").Passed).To(BeFalse())
			Expect(resultFor(outcome, "Health endpoint").Passed).To(BeTrue())
		})

		It("fails malformed JSON with the decode error as detail", func() {
			server.Override(http.MethodGet, "/health", http.StatusOK, `<html>oops</html>`)
			outcome, err := run(server.URL)
			Expect(err).NotTo(HaveOccurred())

			r := resultFor(outcome, "Health endpoint")
			Expect(r.Passed).To(BeFalse())
			Expect(r.Detail).To(ContainSubstring("invalid JSON"))
			Expect(outcome.Stats.Total).To(Equal(15))
		})

		It("honours configured markers", func() {
			catalog.HealthMarker = "green"
			server.Override(http.MethodGet, "/health", http.StatusOK, `{"status":"green"}`)
			outcome, err := run(server.URL)
			Expect(err).NotTo(HaveOccurred())

			Expect(resultFor(outcome, "Health endpoint").Passed).To(BeTrue())
		})
	})

	Context("with group filters", func() {
		It("runs only the selected groups", func() {
			only = []string{"mu"}
			outcome, err := run(server.URL)
			Expect(err).NotTo(HaveOccurred())

			Expect(outcome.Results).To(HaveLen(2))
			Expect(out.String()).To(ContainSubstring("7. Machine reporting"))
		})

		It("drops skipped groups", func() {
			skip = []string{"/^(user|validation)$/"}
			outcome, err := run(server.URL)
			Expect(err).NotTo(HaveOccurred())

			Expect(outcome.Stats.Total).To(Equal(8))
			Expect(outcome.Stats.SkippedGroups).To(BeZero())
		})
	})

	Context("when interrupted", func() {
		It("stops before the first probe without a summary", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			ctx = cancelled

			outcome, err := run(server.URL)
			Expect(err).To(MatchError(probe.ErrInterrupted))
			Expect(outcome.Results).To(BeEmpty())
			Expect(out.String()).NotTo(ContainSubstring("Summary"))
		})
	})
})

// cancellingDoer cancels the run after a number of requests, then reports
// the transport error the cancellation causes.
type cancellingDoer struct {
	inner  probe.Doer
	after  int
	cancel context.CancelFunc
	calls  int
}

func (d *cancellingDoer) BaseURL() string { return d.inner.BaseURL() }

func (d *cancellingDoer) Do(ctx context.Context, req client.Request) (client.Response, error) {
	d.calls++
	if d.calls > d.after {
		d.cancel()
		return client.Response{}, context.Canceled
	}
	return d.inner.Do(ctx, req)
}

var _ = Describe("Runner interrupted mid-flight", func() {
	It("drops the in-flight probe and keeps what already ran", func() {
		server := apitest.New(GinkgoT())
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		out := &bytes.Buffer{}
		runner := probe.New(probe.Options{
			Client: &cancellingDoer{
				inner:  client.New(client.Options{BaseURL: server.URL}),
				after:  3,
				cancel: cancel,
			},
			Reporter: output.NewPlain(out),
			Groups:   probe.Catalog(probe.CatalogOptions{IntN: fixedIntN}),
		})

		outcome, err := runner.Run(ctx)
		Expect(err).To(MatchError(probe.ErrInterrupted))
		Expect(outcome.Results).To(HaveLen(3))
		Expect(outcome.Stats.Total).To(Equal(3))
		Expect(out.String()).NotTo(ContainSubstring("Success rate"))
	})
})
